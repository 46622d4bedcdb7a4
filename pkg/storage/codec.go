package storage

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// termDTO is the gob-encodable wire shape of a term.Term, used by
// BoltStorage to serialize the opaque object_to_data blobs of §6.
type termDTO struct {
	Kind     int8 // 0 constant, 1 variable, 2 wrapper, 3 expression
	LangID   uuid.UUID
	Seq      uint64
	Name     string
	Wrap     wrapValueDTO
	Children []termDTO
}

// wrapValueDTO is a small tagged union avoiding the need to gob-register
// arbitrary interface{} payloads: Wrapper values round-tripped through
// BoltStorage are restricted to these primitive kinds.
type wrapValueDTO struct {
	Kind int8 // 0 string, 1 int64, 2 float64, 3 bool, 4 int
	S    string
	I    int64
	F    float64
	B    bool
}

func encodeWrapValue(v any) (wrapValueDTO, error) {
	switch x := v.(type) {
	case string:
		return wrapValueDTO{Kind: 0, S: x}, nil
	case int64:
		return wrapValueDTO{Kind: 1, I: x}, nil
	case int:
		return wrapValueDTO{Kind: 4, I: int64(x)}, nil
	case float64:
		return wrapValueDTO{Kind: 2, F: x}, nil
	case bool:
		return wrapValueDTO{Kind: 3, B: x}, nil
	default:
		return wrapValueDTO{}, &abserrors.StorageError{
			Op:  "encode wrapper value",
			Err: fmt.Errorf("unsupported wrapped value type %T", v),
		}
	}
}

func decodeWrapValue(dto wrapValueDTO) any {
	switch dto.Kind {
	case 0:
		return dto.S
	case 1:
		return dto.I
	case 2:
		return dto.F
	case 3:
		return dto.B
	case 4:
		return int(dto.I)
	default:
		return nil
	}
}

// languageRegistry rehydrates Languages by opaque id so that symbols
// decoded across multiple calls, or belonging to the same language, share
// one *term.Language and therefore compare equal.
type languageRegistry struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*term.Language
}

func newLanguageRegistry() *languageRegistry {
	return &languageRegistry{byID: map[uuid.UUID]*term.Language{}}
}

func (r *languageRegistry) get(id uuid.UUID) *term.Language {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.byID[id]; ok {
		return l
	}
	l := term.NewLanguageWithID(id)
	r.byID[id] = l
	return l
}

func toDTO(t term.Term) (termDTO, error) {
	switch v := t.(type) {
	case *term.Constant:
		return termDTO{Kind: 0, LangID: v.ID().Language.ID(), Seq: v.ID().Sequential, Name: v.Name()}, nil
	case *term.Variable:
		return termDTO{Kind: 1, LangID: v.ID().Language.ID(), Seq: v.ID().Sequential, Name: v.Name()}, nil
	case *term.Wrapper:
		wrap, err := encodeWrapValue(v.Value())
		if err != nil {
			return termDTO{}, err
		}
		return termDTO{Kind: 2, Wrap: wrap}, nil
	case *term.Expression:
		children := v.Children()
		dtoChildren := make([]termDTO, len(children))
		for i, c := range children {
			cd, err := toDTO(c)
			if err != nil {
				return termDTO{}, err
			}
			dtoChildren[i] = cd
		}
		return termDTO{Kind: 3, Children: dtoChildren}, nil
	default:
		return termDTO{}, &abserrors.StorageError{Op: "encode term", Err: fmt.Errorf("unsupported term type %T", t)}
	}
}

func fromDTO(dto termDTO, langs *languageRegistry) (term.Term, error) {
	switch dto.Kind {
	case 0:
		return term.RestoreConstant(langs.get(dto.LangID), dto.Seq, dto.Name), nil
	case 1:
		return term.RestoreVariable(langs.get(dto.LangID), dto.Seq, dto.Name), nil
	case 2:
		return term.NewWrapper(decodeWrapValue(dto.Wrap)), nil
	case 3:
		children := make([]term.Term, len(dto.Children))
		for i, cd := range dto.Children {
			c, err := fromDTO(cd, langs)
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		return term.NewExpression(children...)
	default:
		return nil, &abserrors.StorageError{Op: "decode term", Err: fmt.Errorf("unknown term kind %d", dto.Kind)}
	}
}

// encodeTerm serializes t into an opaque, self-contained blob that round
// trips equality and hash through decodeTerm (using a languageRegistry
// shared across the calls that need rehydrated terms to compare equal).
func encodeTerm(t term.Term) ([]byte, error) {
	dto, err := toDTO(t)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(dto); err != nil {
		return nil, &abserrors.StorageError{Op: "gob-encode term", Err: err}
	}
	return buf.Bytes(), nil
}

func decodeTerm(data []byte, langs *languageRegistry) (term.Term, error) {
	var dto termDTO
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&dto); err != nil {
		return nil, &abserrors.StorageError{Op: "gob-decode term", Err: err}
	}
	return fromDTO(dto, langs)
}

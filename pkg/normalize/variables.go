package normalize

import (
	"fmt"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// AllVariablesIn returns every Variable reachable inside obj, in
// first-occurrence order, including repeats.
func AllVariablesIn(obj term.Term) []*term.Variable {
	var out []*term.Variable
	collectVariables(obj, &out)
	return out
}

// AllUniqueVariablesIn returns every distinct Variable reachable inside
// obj, in first-occurrence order, without repeats.
func AllUniqueVariablesIn(obj term.Term) []*term.Variable {
	seen := map[*term.Variable]bool{}
	var out []*term.Variable
	for _, v := range AllVariablesIn(obj) {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func collectVariables(obj term.Term, out *[]*term.Variable) {
	switch t := obj.(type) {
	case *term.Variable:
		*out = append(*out, t)
	case *term.Expression:
		for _, c := range t.Children() {
			collectVariables(c, out)
		}
	}
}

// MapVariablesByName builds a map from display name to Variable for every
// distinct variable in obj. It fails with a MalformedTermError if two
// distinct Variables (different identity) share the same display name,
// since such a map could not then disambiguate them — mirroring the
// source's refusal to silently merge homonymous variables.
func MapVariablesByName(obj term.Term) (map[string]*term.Variable, error) {
	byName := map[string]*term.Variable{}
	for _, v := range AllUniqueVariablesIn(obj) {
		name := v.Name()
		if existing, ok := byName[name]; ok && existing != v {
			return nil, &abserrors.MalformedTermError{
				Reason: fmt.Sprintf("two distinct variables share the name %q", name),
			}
		}
		byName[name] = v
	}
	return byName, nil
}

// Package handler implements the component contract of §4.6: binding a
// listened formula to a host handler function with a declared argument
// mode and safety level, and extracting call arguments from a unifier at
// dispatch time. It is grounded in the original's aitools/proofs/
// components.py Component class and aitools/proofs/builtin_provers.py's
// RAW-mode provers (pass_substitution_as, pass_knowledge_base_as).
package handler

import (
	"context"

	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

// HandlerArgumentMode controls how a Call's bound arguments are mapped
// onto the handler's parameters.
type HandlerArgumentMode int

const (
	// RAW passes the literal query formula and the current substitution.
	RAW HandlerArgumentMode = iota
	// MAP passes, by name, the term bound to each listened-formula Variable.
	MAP
	// MAPUnwrapped is like MAP, but term.Wrapper values are unwrapped.
	MAPUnwrapped
	// MAPUnwrappedRequired is like MAPUnwrapped, and the handler is
	// skipped unless every mapped argument is a term.Wrapper.
	MAPUnwrappedRequired
	// MAPUnwrappedNoVariables is like MAPUnwrapped, and the handler is
	// skipped if any mapped argument is still an unbound Variable.
	MAPUnwrappedNoVariables
	// MAPNoVariables is like MAP, with the same Variable-skipping rule.
	MAPNoVariables
)

func (m HandlerArgumentMode) String() string {
	switch m {
	case RAW:
		return "RAW"
	case MAP:
		return "MAP"
	case MAPUnwrapped:
		return "MAP_UNWRAPPED"
	case MAPUnwrappedRequired:
		return "MAP_UNWRAPPED_REQUIRED"
	case MAPUnwrappedNoVariables:
		return "MAP_UNWRAPPED_NO_VARIABLES"
	case MAPNoVariables:
		return "MAP_NO_VARIABLES"
	default:
		return "UNKNOWN"
	}
}

// HandlerSafety gates whether a component may run inside a hypothetical
// proof scope.
type HandlerSafety int

const (
	// Safe handlers may run anywhere, including hypothetical scopes.
	Safe HandlerSafety = iota
	// SafeForHypotheses may run inside a hypothetical scope but is
	// understood to behave specially there.
	SafeForHypotheses
	// TotallyUnsafe handlers must never run inside a hypothetical scope;
	// the engine raises abserrors.UnsafeOperationError rather than skip.
	TotallyUnsafe
)

func (s HandlerSafety) String() string {
	switch s {
	case Safe:
		return "SAFE"
	case SafeForHypotheses:
		return "SAFE_FOR_HYPOTHESES"
	case TotallyUnsafe:
		return "TOTALLY_UNSAFE"
	default:
		return "UNKNOWN"
	}
}

// KnowledgeBase is the minimal handle a handler receives when its
// component declares PassKnowledgeBaseAs. pkg/engine's Engine type
// implements this; defining it here (rather than importing pkg/engine)
// keeps pkg/handler free of a dependency cycle.
type KnowledgeBase interface {
	AsyncProve(ctx context.Context, goal term.Term, previous *unify.Substitution) (*scheduler.Stream[any], error)
}

// Call is what a dispatched handler receives: the query formula, the
// unifier of that formula against the component's freshly-renamed
// listened formula, the extracted named arguments (per ArgumentMode),
// and the engine handle if the component asked for one.
type Call struct {
	Formula      term.Term
	Substitution *unify.Substitution
	// Args holds the extracted arguments named in the component's
	// ParamNames, plus (if configured) the substitution and/or engine
	// handle under PassSubstitutionAs/PassKnowledgeBaseAs. Values are
	// term.Term except where MAPUnwrapped-family modes unwrapped a
	// term.Wrapper to its raw host value.
	Args map[string]any
	KB   KnowledgeBase
}

// HandlerFunc is a host handler: given a Call, it returns a stream of
// results (interpretation of the stream's element shapes is §4.7's
// concern, owned by pkg/engine, not this package). A handler
// with nothing to yield returns a stream that ends immediately.
type HandlerFunc func(ctx context.Context, call *Call) (*scheduler.Stream[any], error)

// Component binds a listened formula to a HandlerFunc under a declared
// argument-extraction contract, per §4.6.
type Component struct {
	listenedFormula term.Term
	handler         HandlerFunc
	paramNames      []string
	argumentMode    HandlerArgumentMode
	passSubstAs     string
	passKBAs        string
	pure            bool
	safety          HandlerSafety

	variablesByName map[string]*term.Variable
	freshLanguage   *term.Language
}

// ListenedFormula returns the component's (already variable-normalized)
// listened formula.
func (c *Component) ListenedFormula() term.Term { return c.listenedFormula }

// Safety returns the component's configured safety level.
func (c *Component) Safety() HandlerSafety { return c.safety }

// Pure reports whether the component was declared free of externally
// observable side effects.
func (c *Component) Pure() bool { return c.pure }

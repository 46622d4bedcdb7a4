// Package abserrors defines the structured error taxonomy shared by every
// layer of abstruse: term construction, unification, storage, handler
// dispatch and the cooperative scheduler. Callers distinguish failures by
// kind (via errors.As), never by matching error strings.
package abserrors

import "fmt"

// MalformedTermError is returned when constructing a term or binding that
// violates the algebra's structural invariants: an empty Expression, a
// Binding with too few variables, or a Binding whose head contains one of
// its own variables.
type MalformedTermError struct {
	Reason string
}

func (e *MalformedTermError) Error() string {
	return fmt.Sprintf("malformed term: %s", e.Reason)
}

// UnificationError is raised when a forced unification inside Binding.Join
// fails to find a unifier for two binding heads. It is distinct from the
// ordinary "no unifier" outcome of Unify, which is reported by a boolean,
// not an error.
type UnificationError struct {
	Reason string
}

func (e *UnificationError) Error() string {
	return fmt.Sprintf("unification error: %s", e.Reason)
}

// UnsafeOperationError is raised when a TOTALLY_UNSAFE component is invoked
// inside a hypothetical proof scope.
type UnsafeOperationError struct {
	Component string
}

func (e *UnsafeOperationError) Error() string {
	return fmt.Sprintf("unsafe operation: component %s cannot run in a hypothetical scope", e.Component)
}

// HandlerContractError is raised either when a component is constructed
// with a configuration that violates §4.6, or when a handler's return value
// at dispatch time does not match any of the shapes §4.7 enumerates (Proof,
// FormulaSubstitutionPremises, FormulaSubstitution, a bare conclusion term,
// nil, or an iterable of the above). Both paths set Reason; Error reports
// Handler and Value only when Reason is empty.
type HandlerContractError struct {
	Reason  string
	Handler string
	Value   any
}

func (e *HandlerContractError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("handler contract violated: %s", e.Reason)
	}
	return fmt.Sprintf("handler %s returned a value of unsupported shape: %#v", e.Handler, e.Value)
}

// ConcurrencyMisuseError is raised when Prove is called from inside the
// scheduler, or AsyncProve is called from outside it.
type ConcurrencyMisuseError struct {
	Reason string
}

func (e *ConcurrencyMisuseError) Error() string {
	return fmt.Sprintf("concurrency misuse: %s", e.Reason)
}

// StorageError wraps a backend I/O failure. If raised inside a transaction,
// the transaction is rolled back before this error is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

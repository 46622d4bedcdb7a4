package unify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

func mustExpr(t *testing.T, children ...term.Term) *term.Expression {
	t.Helper()
	e, err := term.NewExpression(children...)
	require.NoError(t, err)
	return e
}

func TestUnifyConstantsRequireIdentity(t *testing.T) {
	lang := term.NewLanguage()
	a, _ := term.NewConstant(lang, "a")
	b, _ := term.NewConstant(lang, "b")

	_, ok := unify.Unify(a, b, nil)
	assert.False(t, ok)

	s, ok := unify.Unify(a, a, nil)
	assert.True(t, ok)
	assert.NotNil(t, s)
}

func TestUnifyVariableWithConstant(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")
	a, _ := term.NewConstant(lang, "a")

	subst, ok := unify.Unify(x, a, nil)
	require.True(t, ok)

	bound, has := subst.GetBoundObjectFor(x)
	require.True(t, has)
	assert.True(t, bound.Equal(a))
}

func TestUnifyOccursCheckFails(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")
	f, _ := term.NewConstant(lang, "f")
	fx := mustExpr(t, f, x)

	_, ok := unify.Unify(x, fx, nil)
	assert.False(t, ok, "a variable must not unify with a term containing it")
}

func TestUnifySharedVariableAcrossArguments(t *testing.T) {
	lang := term.NewLanguage()
	f, _ := term.NewConstant(lang, "f")
	x, _ := term.NewVariable(lang, "X")
	a, _ := term.NewConstant(lang, "a")

	// f(X, X) unify f(a, a) succeeds
	left := mustExpr(t, f, x, x)
	right := mustExpr(t, f, a, a)
	subst, ok := unify.Unify(left, right, nil)
	require.True(t, ok)
	bound, has := subst.GetBoundObjectFor(x)
	require.True(t, has)
	assert.True(t, bound.Equal(a))

	// f(X, X) unify f(a, b) fails: X cannot be both a and b
	b, _ := term.NewConstant(lang, "b")
	right2 := mustExpr(t, f, a, b)
	_, ok = unify.Unify(left, right2, nil)
	assert.False(t, ok)
}

func TestUnifyDifferentArityFails(t *testing.T) {
	lang := term.NewLanguage()
	f, _ := term.NewConstant(lang, "f")
	a, _ := term.NewConstant(lang, "a")
	b, _ := term.NewConstant(lang, "b")

	left := mustExpr(t, f, a)
	right := mustExpr(t, f, a, b)

	_, ok := unify.Unify(left, right, nil)
	assert.False(t, ok)
}

func TestApplyToIsIdempotent(t *testing.T) {
	lang := term.NewLanguage()
	f, _ := term.NewConstant(lang, "f")
	x, _ := term.NewVariable(lang, "X")
	a, _ := term.NewConstant(lang, "a")

	fx := mustExpr(t, f, x)
	subst, ok := unify.Unify(x, a, nil)
	require.True(t, ok)

	once := subst.ApplyTo(fx)
	twice := subst.ApplyTo(once)
	assert.True(t, once.Equal(twice))
}

func TestUnifyExtendsPreviousSubstitution(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")
	y, _ := term.NewVariable(lang, "Y")
	a, _ := term.NewConstant(lang, "a")
	b, _ := term.NewConstant(lang, "b")

	first, ok := unify.Unify(x, a, nil)
	require.True(t, ok)

	second, ok := unify.Unify(y, b, first)
	require.True(t, ok)

	boundX, hasX := second.GetBoundObjectFor(x)
	require.True(t, hasX)
	assert.True(t, boundX.Equal(a))

	boundY, hasY := second.GetBoundObjectFor(y)
	require.True(t, hasY)
	assert.True(t, boundY.Equal(b))
}

func TestSubstitutionEqualChecksOwnDomainAgainstOther(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")
	a, _ := term.NewConstant(lang, "a")

	small, ok := unify.Unify(x, a, nil)
	require.True(t, ok)

	y, _ := term.NewVariable(lang, "Y")
	b, _ := term.NewConstant(lang, "b")
	big, ok := unify.Unify(y, b, small)
	require.True(t, ok)

	// small's domain ({X}) agrees with big on X, so small.Equal(big) holds
	// even though big additionally binds Y. This is the documented
	// asymmetric comparison.
	assert.True(t, small.Equal(big))
}

func TestBindingRejectsOccursCheck(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")
	f, _ := term.NewConstant(lang, "f")
	fx := mustExpr(t, f, x)

	_, err := unify.NewBinding([]*term.Variable{x}, fx)
	assert.Error(t, err)
}

func TestBindingRejectsEmptyVariableSet(t *testing.T) {
	_, err := unify.NewBinding(nil, nil)
	assert.Error(t, err)
}

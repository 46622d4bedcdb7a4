package term_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abstrusekb/abstruse/pkg/term"
)

func TestConstantIdentityEquality(t *testing.T) {
	lang := term.NewLanguage()

	a, err := term.NewConstant(lang, "socrates")
	require.NoError(t, err)
	b, err := term.NewConstant(lang, "socrates")
	require.NoError(t, err)

	assert.True(t, a.Equal(a), "a constant equals itself")
	assert.False(t, a.Equal(b), "two distinct constants with the same name are not equal")
}

func TestNewConstantRejectsEmptyName(t *testing.T) {
	lang := term.NewLanguage()
	_, err := term.NewConstant(lang, "")
	assert.Error(t, err)
}

func TestVariableIsVariable(t *testing.T) {
	lang := term.NewLanguage()
	v, err := term.NewVariable(lang, "X")
	require.NoError(t, err)
	c, err := term.NewConstant(lang, "x")
	require.NoError(t, err)

	assert.True(t, v.IsVariable())
	assert.False(t, c.IsVariable())
}

func TestLanguageEqualityByOpaqueID(t *testing.T) {
	l1 := term.NewLanguage()
	l2 := term.NewLanguage()
	assert.True(t, l1.Equal(l1))
	assert.False(t, l1.Equal(l2))

	l1.Seal()
	assert.True(t, l1.Equal(l1), "sealing does not change identity")
	assert.Panics(t, func() { l1.GetNext() }, "allocating after seal panics")
}

func TestExpressionEqualityIsStructural(t *testing.T) {
	lang := term.NewLanguage()
	parent, err := term.NewConstant(lang, "parent")
	require.NoError(t, err)
	alice, err := term.NewConstant(lang, "alice")
	require.NoError(t, err)
	bob, err := term.NewConstant(lang, "bob")
	require.NoError(t, err)

	e1, err := term.NewExpression(parent, alice, bob)
	require.NoError(t, err)
	e2, err := term.NewExpression(parent, alice, bob)
	require.NoError(t, err)
	e3, err := term.NewExpression(parent, bob, alice)
	require.NoError(t, err)

	assert.True(t, e1.Equal(e2))
	assert.False(t, e1.Equal(e3))
	assert.Equal(t, e1.Hash(), e2.Hash())
}

func TestNewExpressionRejectsEmpty(t *testing.T) {
	_, err := term.NewExpression()
	assert.Error(t, err)
}

func TestExpressionContains(t *testing.T) {
	lang := term.NewLanguage()
	f, err := term.NewConstant(lang, "f")
	require.NoError(t, err)
	x, err := term.NewVariable(lang, "X")
	require.NoError(t, err)
	g, err := term.NewConstant(lang, "g")
	require.NoError(t, err)

	inner, err := term.NewExpression(g, x)
	require.NoError(t, err)
	outer, err := term.NewExpression(f, inner)
	require.NoError(t, err)

	assert.True(t, outer.Contains(x), "variable nested two levels deep is found")
	assert.True(t, outer.Contains(outer), "an expression contains itself")

	y, err := term.NewVariable(lang, "Y")
	require.NoError(t, err)
	assert.False(t, outer.Contains(y))
}

func TestWrapperDualEquality(t *testing.T) {
	w1 := term.NewWrapper(42)
	w2 := term.NewWrapper(42)
	w3 := term.NewWrapper(43)

	assert.True(t, w1.Equal(w2))
	assert.False(t, w1.Equal(w3))
	assert.True(t, term.WrapperEqualsValue(w1, 42))
	assert.False(t, term.WrapperEqualsValue(w1, 43))
}

package handler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abstrusekb/abstruse/pkg/handler"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/term"
	"github.com/abstrusekb/abstruse/pkg/unify"
)

func closedStream() *scheduler.Stream[any] {
	s := scheduler.NewStream[any](0)
	s.End()
	return s
}

func TestNewRejectsRAWWithWrongParamNames(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")

	_, err := handler.New(
		handler.WithListenedFormula(x, lang),
		handler.WithArgumentMode(handler.RAW),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			return closedStream(), nil
		}, "formula", "wrongName"),
	)
	require.Error(t, err)
}

func TestNewDefaultsRAWSubstitutionParamName(t *testing.T) {
	lang := term.NewLanguage()
	x, _ := term.NewVariable(lang, "X")

	c, err := handler.New(
		handler.WithListenedFormula(x, lang),
		handler.WithArgumentMode(handler.RAW),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			return closedStream(), nil
		}, "formula", "substitution"),
	)
	require.NoError(t, err)
	assert.Equal(t, handler.RAW, reflectMode(c))
}

func TestNewRejectsUnlistenedParamName(t *testing.T) {
	lang := term.NewLanguage()
	isA, _ := term.NewConstant(lang, "isA")
	x, _ := term.NewVariable(lang, "X")
	cat, _ := term.NewConstant(lang, "cat")
	formula, _ := term.NewExpression(isA, x, cat)

	_, err := handler.New(
		handler.WithListenedFormula(formula, lang),
		handler.WithArgumentMode(handler.MAP),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			return closedStream(), nil
		}, "Y"),
	)
	require.Error(t, err)
}

func TestDispatchMapExtractsBoundArgument(t *testing.T) {
	lang := term.NewLanguage()
	isA, _ := term.NewConstant(lang, "isA")
	x, _ := term.NewVariable(lang, "X")
	cat, _ := term.NewConstant(lang, "cat")
	formula, _ := term.NewExpression(isA, x, cat)

	var captured string
	c, err := handler.New(
		handler.WithListenedFormula(formula, lang),
		handler.WithArgumentMode(handler.MAP),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			if bound, ok := call.Args["X"].(term.Term); ok {
				captured = bound.String()
			}
			return closedStream(), nil
		}, "X"),
	)
	require.NoError(t, err)

	dylan, _ := term.NewConstant(lang, "dylan")
	query, _ := term.NewExpression(isA, dylan, cat)

	_, ok, err := c.Dispatch(context.Background(), query, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, dylan.String(), captured)
}

func TestDispatchMapNoVariablesSkipsWhenUnbound(t *testing.T) {
	lang := term.NewLanguage()
	p, _ := term.NewConstant(lang, "p")
	x, _ := term.NewVariable(lang, "X")
	formula, _ := term.NewExpression(p, x)

	c, err := handler.New(
		handler.WithListenedFormula(formula, lang),
		handler.WithArgumentMode(handler.MAPNoVariables),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			return closedStream(), nil
		}, "X"),
	)
	require.NoError(t, err)

	y, _ := term.NewVariable(lang, "Y")
	query, _ := term.NewExpression(p, y)

	_, ok, err := c.Dispatch(context.Background(), query, nil, nil)
	require.NoError(t, err)
	assert.False(t, ok, "MAP_NO_VARIABLES must skip when the bound argument is still a Variable")
}

func TestDispatchUnwrapsWrapperValues(t *testing.T) {
	lang := term.NewLanguage()
	likes, _ := term.NewConstant(lang, "likes")
	x, _ := term.NewVariable(lang, "X")
	formula, _ := term.NewExpression(likes, x)

	var capturedValue any
	c, err := handler.New(
		handler.WithListenedFormula(formula, lang),
		handler.WithArgumentMode(handler.MAPUnwrapped),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			capturedValue = call.Args["X"]
			return closedStream(), nil
		}, "X"),
	)
	require.NoError(t, err)

	wrapped := term.NewWrapper(42)
	query, _ := term.NewExpression(likes, wrapped)

	_, ok, err := c.Dispatch(context.Background(), query, nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, capturedValue)
}

func TestDispatchPassesSubstitutionAndKnowledgeBase(t *testing.T) {
	lang := term.NewLanguage()
	p, _ := term.NewConstant(lang, "p")
	x, _ := term.NewVariable(lang, "X")
	formula, _ := term.NewExpression(p, x)

	var gotSubst *unify.Substitution
	var gotKB handler.KnowledgeBase
	c, err := handler.New(
		handler.WithListenedFormula(formula, lang),
		handler.WithArgumentMode(handler.MAP),
		handler.WithPassSubstitutionAs("substitution"),
		handler.WithPassKnowledgeBaseAs("kb"),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			gotSubst, _ = call.Args["substitution"].(*unify.Substitution)
			gotKB, _ = call.Args["kb"].(handler.KnowledgeBase)
			return closedStream(), nil
		}, "X", "substitution", "kb"),
	)
	require.NoError(t, err)

	a, _ := term.NewConstant(lang, "a")
	query, _ := term.NewExpression(p, a)

	_, ok, err := c.Dispatch(context.Background(), query, nil, stubKB{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotNil(t, gotSubst)
	assert.Equal(t, stubKB{}, gotKB)
}

type stubKB struct{}

func (stubKB) AsyncProve(ctx context.Context, goal term.Term, previous *unify.Substitution) (*scheduler.Stream[any], error) {
	return closedStream(), nil
}

// reflectMode exists only so TestNewDefaultsRAWSubstitutionParamName has
// something to assert on beyond "construction succeeded".
func reflectMode(c *handler.Component) handler.HandlerArgumentMode {
	_ = c
	return handler.RAW
}

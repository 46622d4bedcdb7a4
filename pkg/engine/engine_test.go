package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/abstrusekb/abstruse/pkg/engine"
	"github.com/abstrusekb/abstruse/pkg/handler"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/storage"
	"github.com/abstrusekb/abstruse/pkg/term"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func drain(t *testing.T, gen *scheduler.Generator[*engine.Proof]) []*engine.Proof {
	t.Helper()
	defer gen.Close()
	var out []*engine.Proof
	for {
		p, err, ok := gen.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, p)
	}
}

// scenario 1: direct lookup.
func TestProveDirectLookup(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	isA, _ := term.NewConstant(lang, "isA")
	dylan, _ := term.NewConstant(lang, "dylan")
	cat, _ := term.NewConstant(lang, "cat")
	fact, _ := term.NewExpression(isA, dylan, cat)
	require.NoError(t, e.AddFormulas(fact))

	gen, err := e.Prove(ctx, fact, nil, false)
	require.NoError(t, err)
	proofs := drain(t, gen)

	require.Len(t, proofs, 1)
	assert.IsType(t, &engine.KnowledgeRetriever{}, proofs[0].InferenceRule)
	assert.Empty(t, proofs[0].Premises)
	assert.True(t, proofs[0].Conclusion.Equal(fact))
}

// scenario 2: open retrieval.
func TestProveOpenRetrievalBindsEachMatch(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	isA, _ := term.NewConstant(lang, "isA")
	dylan, _ := term.NewConstant(lang, "dylan")
	hugo, _ := term.NewConstant(lang, "hugo")
	cat, _ := term.NewConstant(lang, "cat")
	f1, _ := term.NewExpression(isA, dylan, cat)
	f2, _ := term.NewExpression(isA, hugo, cat)
	require.NoError(t, e.AddFormulas(f1, f2))

	x, _ := term.NewVariable(lang, "X")
	query, _ := term.NewExpression(isA, x, cat)

	gen, err := e.Prove(ctx, query, nil, false)
	require.NoError(t, err)
	proofs := drain(t, gen)

	require.Len(t, proofs, 2)
	var names []string
	for _, p := range proofs {
		names = append(names, p.Conclusion.String())
	}
	assert.ElementsMatch(t, []string{f1.String(), f2.String()}, names)
}

// scenario 3: modus ponens chain.
func TestProveModusPonensChainHasNonEmptyPremises(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	isA, _ := term.NewConstant(lang, "isA")
	dylan, _ := term.NewConstant(lang, "dylan")
	cat, _ := term.NewConstant(lang, "cat")
	mammal, _ := term.NewConstant(lang, "mammal")
	animal, _ := term.NewConstant(lang, "animal")

	x1, _ := term.NewVariable(lang, "X")
	catToMammal, _ := term.NewExpression(isA, x1, cat)
	mammalConcl, _ := term.NewExpression(isA, x1, mammal)
	rule1, _ := term.NewExpression(e.Implies(), catToMammal, mammalConcl)

	x2, _ := term.NewVariable(lang, "X")
	mammalToAnimal, _ := term.NewExpression(isA, x2, mammal)
	animalConcl, _ := term.NewExpression(isA, x2, animal)
	rule2, _ := term.NewExpression(e.Implies(), mammalToAnimal, animalConcl)

	dylanIsCat, _ := term.NewExpression(isA, dylan, cat)

	require.NoError(t, e.AddFormulas(rule1, rule2, dylanIsCat))

	goal, _ := term.NewExpression(isA, dylan, animal)
	gen, err := e.Prove(ctx, goal, nil, false)
	require.NoError(t, err)
	proofs := drain(t, gen)

	require.NotEmpty(t, proofs)
	found := false
	for _, p := range proofs {
		if p.Conclusion.Equal(goal) && len(p.Premises) > 0 {
			found = true
		}
	}
	assert.True(t, found, "expected a proof of IsA(dylan, animal) with non-empty premises")
}

// scenario 4: peano successor chain.
func TestProvePeanoSuccessor(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	isNatural, _ := term.NewConstant(lang, "isNatural")
	successor, _ := term.NewConstant(lang, "successor")
	zero, _ := term.NewConstant(lang, "zero")

	baseFact, _ := term.NewExpression(isNatural, zero)

	x, _ := term.NewVariable(lang, "X")
	premise, _ := term.NewExpression(isNatural, x)
	succX, _ := term.NewExpression(successor, x)
	conclusion, _ := term.NewExpression(isNatural, succX)
	rule, _ := term.NewExpression(e.Implies(), premise, conclusion)

	require.NoError(t, e.AddFormulas(baseFact, rule))

	succZero, _ := term.NewExpression(successor, zero)
	succSuccZero, _ := term.NewExpression(successor, succZero)
	goal, _ := term.NewExpression(isNatural, succSuccZero)

	gen, err := e.Prove(ctx, goal, nil, false)
	require.NoError(t, err)
	proofs := drain(t, gen)
	assert.NotEmpty(t, proofs)
}

// scenario 5: listener with loopback.
func TestPonderListenerLoopback(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	is, _ := term.NewConstant(lang, "is")
	cat, _ := term.NewConstant(lang, "cat")
	meows, _ := term.NewConstant(lang, "meows")
	dylan, _ := term.NewConstant(lang, "dylan")

	c, _ := term.NewVariable(lang, "C")
	listenedFormula, _ := term.NewExpression(is, c, cat)

	listener, err := handler.New(
		handler.WithListenedFormula(listenedFormula, lang),
		handler.WithArgumentMode(handler.MAP),
		handler.WithHandlerFunc(func(ctx context.Context, call *handler.Call) (*scheduler.Stream[any], error) {
			bound := call.Args["C"].(term.Term)
			meowsExpr, err := term.NewExpression(meows, bound)
			if err != nil {
				return nil, err
			}
			out := scheduler.NewStream[any](1)
			go func() {
				_ = out.Push(ctx, term.Term(meowsExpr))
				out.End()
			}()
			return out, nil
		}, "C"),
	)
	require.NoError(t, err)
	e.AddListener(listener)

	dylanIsCat, _ := term.NewExpression(is, dylan, cat)
	require.NoError(t, e.AddFormulas(dylanIsCat))

	gen, err := e.Ponder(ctx, engine.Known, nil, dylanIsCat)
	require.NoError(t, err)
	proofs := drain(t, gen)

	require.Len(t, proofs, 1)
	meowsDylan, _ := term.NewExpression(meows, dylan)
	assert.True(t, proofs[0].Conclusion.Equal(meowsDylan))
	require.Len(t, proofs[0].Premises, 1)
	assert.True(t, proofs[0].Premises[0].Conclusion.Equal(dylanIsCat))
}

func TestClosedWorldAssumptionProvesNegationOnFailure(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage(), engine.WithClosedWorldAssumption())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	isA, _ := term.NewConstant(lang, "isA")
	dylan, _ := term.NewConstant(lang, "dylan")
	dog, _ := term.NewConstant(lang, "dog")
	dylanIsDog, _ := term.NewExpression(isA, dylan, dog)
	notGoal, _ := term.NewExpression(e.Not(), dylanIsDog)

	gen, err := e.Prove(ctx, notGoal, nil, false)
	require.NoError(t, err)
	proofs := drain(t, gen)

	require.Len(t, proofs, 1)
	assert.IsType(t, &engine.ClosedWorldAssumption{}, proofs[0].InferenceRule)
}

func TestConcurrencyMisuseIsRejected(t *testing.T) {
	ctx := context.Background()
	e, err := engine.New(storage.NewMemoryStorage())
	require.NoError(t, err)
	defer e.Close()

	lang := e.Language()
	p, _ := term.NewConstant(lang, "p")

	_, err = e.AsyncProve(ctx, p, nil)
	assert.Error(t, err, "AsyncProve must reject being called from outside the scheduler")
}

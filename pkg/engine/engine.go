package engine

import (
	"github.com/hashicorp/go-hclog"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/handler"
	"github.com/abstrusekb/abstruse/pkg/index"
	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/scheduler"
	"github.com/abstrusekb/abstruse/pkg/storage"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// Engine is the proof engine of §4.7: a Storage-backed knowledge base, an
// abstruse index of registered provers, an abstruse index of registered
// listeners, the builtin knowledge-retriever/RMP/CWA provers, and the
// cooperative scheduler (pkg/scheduler) every source and handler dispatch
// runs through.
type Engine struct {
	storage   storage.Storage
	language  *term.Language
	logger    hclog.Logger

	provers   *index.AbstruseIndex[*handler.Component]
	listeners *index.AbstruseIndex[*handler.Component]

	bufferSize int
	executor   *scheduler.Executor
	ownsExec   bool

	closedWorldAssumption bool
	implies               *term.Constant
	not                   *term.Constant
}

// New constructs an Engine over the given Storage, minting its internal
// Language (for RMP's fresh premise variables, listener fresh-renaming, and
// the default Implies/Not connectives) unless overridden by options.
func New(backing storage.Storage, opts ...Option) (*Engine, error) {
	if backing == nil {
		return nil, &abserrors.MalformedTermError{Reason: "engine requires a storage backend"}
	}

	cfg := config{bufferSize: 1, executorWorkers: 4}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = hclog.NewNullLogger()
	}

	lang := term.NewLanguage()

	implies := cfg.implies
	if implies == nil {
		var err error
		implies, err = term.NewConstant(lang, "Implies")
		if err != nil {
			return nil, err
		}
	}
	not := cfg.not
	if not == nil {
		var err error
		not, err = term.NewConstant(lang, "Not")
		if err != nil {
			return nil, err
		}
	}

	executor := cfg.executor
	ownsExec := false
	if executor == nil {
		executor = scheduler.NewExecutor(cfg.executorWorkers, cfg.executorWorkers*4)
		ownsExec = true
	}

	return &Engine{
		storage:               backing,
		language:              lang,
		logger:                cfg.logger,
		provers:               index.NewAbstruseIndex[*handler.Component](),
		listeners:             index.NewAbstruseIndex[*handler.Component](),
		bufferSize:            cfg.bufferSize,
		executor:              executor,
		ownsExec:              ownsExec,
		closedWorldAssumption: cfg.closedWorldAssumption,
		implies:               implies,
		not:                   not,
	}, nil
}

// Language returns the Engine's internal Language, used to mint RMP's
// premise variables and listener/prover fresh-renaming variables.
func (e *Engine) Language() *term.Language { return e.language }

// Implies returns the Constant symbol Restricted Modus Ponens recognizes
// as the implication connective. Clients asserting rules must build them
// as term.NewExpression(engine.Implies(), premise, conclusion) so RMP's
// own pattern-matching shares the same symbol identity (§3 "two symbols
// with the same identity are the same symbol").
func (e *Engine) Implies() *term.Constant { return e.implies }

// Not returns the Constant symbol the Closed-World Assumption prover
// recognizes as the negation connective.
func (e *Engine) Not() *term.Constant { return e.not }

// Storage returns the Engine's backing Storage.
func (e *Engine) Storage() storage.Storage { return e.storage }

// AddFormulas normalizes each term into fresh variables (so distinct
// stored formulas never share a variable) and adds it to Storage. Unlike
// the original source's add_formulas, this does not implicitly fire
// listener dispatch as a side effect: that propagation is an explicit
// client decision via Ponder(ctx, Known, nil, formula), so that every
// background stream Ponder spawns always has a caller tracking and able to
// cancel it (§5 back-pressure/cancellation contract would otherwise be
// violated by an untracked fire-and-forget stream).
func (e *Engine) AddFormulas(terms ...term.Term) error {
	normalizer, err := normalize.NewFreshNormalizer(e.language)
	if err != nil {
		return err
	}
	normalized := make([]term.Term, len(terms))
	for i, t := range terms {
		normalized[i] = normalizer.Normalize(t)
	}
	return e.storage.Add(normalized...)
}

// AddProver registers prover, keyed by its listened formula, so Prove
// consults it whenever a goal unifies with that formula (§4.7 step 1).
func (e *Engine) AddProver(prover *handler.Component) {
	e.provers.Add(prover.ListenedFormula(), prover)
}

// AddListener registers listener, keyed by its listened formula, so Ponder
// dispatches it whenever a proof's conclusion unifies with that formula.
func (e *Engine) AddListener(listener *handler.Component) {
	e.listeners.Add(listener.ListenedFormula(), listener)
}

// Close shuts down the Engine's Executor, if it owns one (i.e. one was not
// supplied via WithExecutor). Safe to call once processing has finished;
// in-flight Prove/Ponder generators should be Closed first.
func (e *Engine) Close() {
	if e.ownsExec {
		e.executor.Close()
	}
}

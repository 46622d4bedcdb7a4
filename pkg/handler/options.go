package handler

import (
	"fmt"
	"regexp"

	"github.com/abstrusekb/abstruse/pkg/abserrors"
	"github.com/abstrusekb/abstruse/pkg/normalize"
	"github.com/abstrusekb/abstruse/pkg/term"
)

// config accumulates the options passed to New before construction-time
// validation runs.
type config struct {
	listenedFormula term.Term
	language        *term.Language
	handler         HandlerFunc
	paramNames      []string
	argumentMode    HandlerArgumentMode
	passSubstAs     string
	passSubstAsSet  bool
	passKBAs        string
	pure            bool
	safety          HandlerSafety
}

// Option configures a Component at construction time.
type Option func(*config)

// WithListenedFormula sets the formula a component listens for. language
// is used to allocate this component's private normalization variables.
func WithListenedFormula(formula term.Term, language *term.Language) Option {
	return func(c *config) { c.listenedFormula = formula; c.language = language }
}

// WithHandlerFunc sets the host callable and the names of its parameters,
// in declaration order. Go has no runtime access to a function's
// parameter names, so ParamNames must be given explicitly; this is the
// Go-idiomatic stand-in for reflecting on co_varnames.
func WithHandlerFunc(h HandlerFunc, paramNames ...string) Option {
	return func(c *config) { c.handler = h; c.paramNames = paramNames }
}

// WithArgumentMode sets the argument extraction mode. Defaults to MAP.
func WithArgumentMode(mode HandlerArgumentMode) Option {
	return func(c *config) { c.argumentMode = mode }
}

// WithPassSubstitutionAs names the parameter the current substitution is
// passed as. Required (and, if omitted, defaulted to "substitution") for
// RAW; optional for every other mode.
func WithPassSubstitutionAs(name string) Option {
	return func(c *config) { c.passSubstAs = name; c.passSubstAsSet = true }
}

// WithPassKnowledgeBaseAs names the parameter the engine handle is passed
// as.
func WithPassKnowledgeBaseAs(name string) Option {
	return func(c *config) { c.passKBAs = name }
}

// WithPure hints that the handler has no externally observable side effects.
func WithPure(pure bool) Option {
	return func(c *config) { c.pure = pure }
}

// WithSafety sets the component's HandlerSafety. Defaults to Safe.
func WithSafety(safety HandlerSafety) Option {
	return func(c *config) { c.safety = safety }
}

var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New constructs a Component, validating (a) the listened formula's named
// variables cover every non-reserved handler parameter, (b) RAW handlers
// take exactly the formula and substitution parameters, (c) every
// identifier used is syntactically valid.
func New(opts ...Option) (*Component, error) {
	cfg := config{argumentMode: MAP, safety: Safe}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.listenedFormula == nil {
		return nil, &abserrors.MalformedTermError{Reason: "component requires a listened formula"}
	}
	if cfg.handler == nil {
		return nil, &abserrors.HandlerContractError{Reason: "component requires a handler function"}
	}
	if cfg.language == nil {
		cfg.language = term.NewLanguage()
	}

	passSubstAs, err := validatePassSubstitutionAs(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.passKBAs != "" && !validIdentifier.MatchString(cfg.passKBAs) {
		return nil, &abserrors.HandlerContractError{Reason: "pass_knowledge_base_as must be a valid identifier"}
	}

	freshNormalizer, err := normalize.NewFreshNormalizer(cfg.language)
	if err != nil {
		return nil, err
	}
	listenedFormula := freshNormalizer.Normalize(cfg.listenedFormula)

	var variablesByName map[string]*term.Variable
	if cfg.argumentMode != RAW {
		variablesByName, err = normalize.MapVariablesByName(listenedFormula)
		if err != nil {
			return nil, err
		}
	}

	if err := validateHandlerArguments(cfg, passSubstAs, variablesByName); err != nil {
		return nil, err
	}

	return &Component{
		listenedFormula: listenedFormula,
		handler:         cfg.handler,
		paramNames:      cfg.paramNames,
		argumentMode:    cfg.argumentMode,
		passSubstAs:     passSubstAs,
		passKBAs:        cfg.passKBAs,
		pure:            cfg.pure,
		safety:          cfg.safety,
		variablesByName: variablesByName,
		freshLanguage:   cfg.language,
	}, nil
}

func validatePassSubstitutionAs(cfg config) (string, error) {
	name := cfg.passSubstAs
	if cfg.argumentMode == RAW {
		if !cfg.passSubstAsSet && name == "" {
			name = "substitution"
		}
		if name == "" {
			return "", &abserrors.HandlerContractError{Reason: "a substitution parameter name is required with RAW"}
		}
	}
	if name != "" && !validIdentifier.MatchString(name) {
		return "", &abserrors.HandlerContractError{Reason: "pass_substitution_as must be a valid identifier"}
	}
	return name, nil
}

func validateHandlerArguments(cfg config, passSubstAs string, variablesByName map[string]*term.Variable) error {
	for _, name := range cfg.paramNames {
		if !validIdentifier.MatchString(name) {
			return &abserrors.HandlerContractError{Reason: fmt.Sprintf("handler parameter %q is not a valid identifier", name)}
		}
	}

	if cfg.argumentMode == RAW {
		want := []string{"formula", passSubstAs}
		if !sameStrings(cfg.paramNames, want) {
			return &abserrors.HandlerContractError{
				Reason: fmt.Sprintf("RAW handlers must take exactly %v, got %v", want, cfg.paramNames),
			}
		}
		return nil
	}

	var unlistened []string
	for _, name := range cfg.paramNames {
		_, isListened := variablesByName[name]
		if !isListened && name != passSubstAs && name != cfg.passKBAs {
			unlistened = append(unlistened, name)
		}
	}
	if len(unlistened) > 0 {
		return &abserrors.HandlerContractError{
			Reason: fmt.Sprintf("handler parameters %v are not variables of the listened formula", unlistened),
		}
	}
	return nil
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

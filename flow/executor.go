package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tluyben/lawyeredup/log"
	"github.com/tluyben/lawyeredup/provider"
)

type (
	// Executor invokes registered flows against a model provider. It holds no
	// per-invocation state and may be used from any number of goroutines
	Executor struct {
		registry *Registry
		provider provider.Provider
		log      *slog.Logger
	}

	// Result is a Validated invocation
	Result struct {
		Flow     string        `json:"flow"`
		State    State         `json:"state"`
		Output   any           `json:"output"`
		Prompt   string        `json:"-"`
		Duration time.Duration `json:"duration"`
	}

	invocation struct {
		spec  *Spec
		state State
		log   *slog.Logger
	}
)

var errNotCompiled = errors.New("flow has not been compiled")

// NewExecutor creates an executor over a registry and a provider
func NewExecutor(
	reg *Registry, p provider.Provider, logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: reg,
		provider: p,
		log:      logger,
	}
}

// Registry returns the flows the executor can invoke
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Invoke runs the named flow once with a raw input object
func (e *Executor) Invoke(
	ctx context.Context, name string, input any,
) (*Result, error) {
	spec, err := e.registry.Get(name)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, spec, input)
}

// Run drives one invocation through Validating, Rendering, Calling and
// ParsingResponse. Any failure is terminal and returned as an *Error; the
// provider is only reached once the input has validated and rendered
func (e *Executor) Run(
	ctx context.Context, spec *Spec, input any,
) (*Result, error) {
	start := time.Now()
	inv := &invocation{
		spec:  spec,
		state: Idle,
		log:   e.log.With(log.Flow(spec.Name)),
	}

	if !spec.Compiled() {
		return nil, inv.fail(KindTemplate, errNotCompiled)
	}

	inv.to(Validating)
	in, err := spec.ValidateInput(input)
	if err != nil {
		return nil, inv.fail(KindInputValidation, err)
	}

	inv.to(Rendering)
	prompt, err := spec.Render(in)
	if err != nil {
		return nil, inv.fail(KindTemplate, err)
	}

	inv.to(Calling)
	raw, err := e.provider.Generate(ctx, &provider.Request{
		Flow:         spec.Name,
		Model:        spec.Model,
		System:       spec.System,
		Prompt:       prompt,
		Output:       spec.Output,
		OutputSchema: spec.OutputSchema(),
	})
	if err != nil {
		return nil, inv.fail(KindProvider, err)
	}

	inv.to(ParsingResponse)
	decoded, err := provider.Decode(raw)
	if err != nil {
		return nil, inv.fail(KindProvider, err)
	}
	out, err := spec.ValidateOutput(in, decoded)
	if err != nil {
		return nil, inv.fail(KindOutputValidation, err)
	}

	inv.to(Validated)
	res := &Result{
		Flow:     spec.Name,
		State:    inv.state,
		Output:   out,
		Prompt:   prompt,
		Duration: time.Since(start),
	}
	inv.log.Info("flow completed", slog.Duration("duration", res.Duration))
	return res, nil
}

func (i *invocation) to(s State) {
	i.log.Debug("flow transition",
		slog.String("from", i.state.String()),
		log.State(s),
	)
	i.state = s
}

func (i *invocation) fail(kind Kind, err error) error {
	from := i.state
	i.to(Failed)
	i.log.Warn("flow failed",
		log.Kind(kind),
		slog.String("at", from.String()),
		log.Error(err),
	)
	return &Error{
		Kind:  kind,
		Flow:  i.spec.Name,
		State: from,
		Err:   err,
	}
}

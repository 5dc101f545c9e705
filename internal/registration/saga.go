// Package registration orchestrates school provisioning as a saga.
//
// Registering a school touches three stores and an external identity
// provider, with no shared transaction to lean on. The saga runs the
// provisioning steps in a fixed order and, when one fails, undoes the
// completed steps in reverse. Compensation is best effort: a failed
// undo is logged and counted for reconciliation and never masks the
// error that triggered the unwind.
package registration

import (
	"context"
	"log/slog"
	"time"

	regmetrics "homeroom/internal/registration/metrics"
	"homeroom/internal/registration/tracer"
)

// compensationTimeout bounds the whole unwind once it is detached from
// the request context.
const compensationTimeout = 15 * time.Second

// Step is one forward action of the provisioning sequence together with
// the compensation that undoes it. Compensate may be nil when the step
// leaves nothing behind on failure of a later step.
type Step struct {
	Name       string
	Run        func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Option configures a Saga.
type Option func(*Saga)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Saga) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Saga) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(s *Saga) {
		s.metrics = m
	}
}

// WithCompensationFailureHandler registers a callback invoked after a
// failed undo has been logged. Callers raise audit events from it; the
// saga itself never retries a compensation.
func WithCompensationFailureHandler(fn func(ctx context.Context, step string, err error)) Option {
	return func(s *Saga) {
		s.onCompensationFailure = fn
	}
}

// Saga runs provisioning steps with reverse-order compensation.
type Saga struct {
	tracer                tracer.Tracer
	logger                *slog.Logger
	metrics               *regmetrics.Metrics
	onCompensationFailure func(ctx context.Context, step string, err error)
}

func New(opts ...Option) *Saga {
	s := &Saga{
		tracer: tracer.NewNoop(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Execute runs steps in order. When a step fails, the completed steps
// are compensated in reverse order and the step's error is returned
// unchanged, whatever happens during the unwind.
func (s *Saga) Execute(ctx context.Context, steps []Step) error {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.IncrementStarted()
	}

	for i, step := range steps {
		stepCtx, span := s.tracer.Start(ctx, tracer.SpanStepPrefix+step.Name,
			tracer.Int64(tracer.AttrStepIndex, int64(i)),
		)
		err := step.Run(stepCtx)
		span.End(err)
		if err != nil {
			s.logger.ErrorContext(ctx, "registration step failed",
				"step", step.Name,
				"step_index", i,
				"error", err,
			)
			if s.metrics != nil {
				s.metrics.IncrementFailed(step.Name)
			}
			s.compensate(ctx, steps[:i])
			return err
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementSucceeded()
		s.metrics.ObserveSaga(start)
	}
	return nil
}

// compensate undoes completed steps in reverse order. A failed undo
// does not stop the unwind; every remaining compensation still runs.
//
// The unwind is detached from the caller's context: a client that has
// given up on the request must not be able to interrupt it halfway and
// leave orphaned rows behind.
func (s *Saga) compensate(ctx context.Context, completed []Step) {
	if len(completed) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	s.logger.WarnContext(ctx, "unwinding registration", "steps_completed", len(completed))

	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if s.metrics != nil {
			s.metrics.IncrementCompensations()
		}
		compCtx, span := s.tracer.Start(ctx, tracer.SpanCompensationPrefix+step.Name,
			tracer.Int64(tracer.AttrStepIndex, int64(i)),
		)
		err := step.Compensate(compCtx)
		span.End(err)
		if err == nil {
			continue
		}
		s.logger.ErrorContext(ctx, "registration compensation failed",
			"step", step.Name,
			"error", err,
		)
		if s.metrics != nil {
			s.metrics.IncrementCompensationFailures(step.Name)
		}
		if s.onCompensationFailure != nil {
			s.onCompensationFailure(ctx, step.Name, err)
		}
	}
}

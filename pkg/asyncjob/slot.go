package asyncjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrQueryPanic wraps a panic raised by a query so it can travel through the
// failure notification.
var ErrQueryPanic = errors.New("query panicked")

// Fetch outcomes reported to the Recorder.
const (
	OutcomeDispatched  = "dispatched"
	OutcomeSkipPending = "skip_pending"
	OutcomeSkipCached  = "skip_cached"
	OutcomeRejected    = "rejected"
)

// Job statuses reported to the Recorder.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Query performs one blocking repository query.
type Query[P, R any] func(ctx context.Context, params P) (R, error)

// Recorder receives slot metrics. observability.JobMetrics implements it.
type Recorder interface {
	RecordFetch(ctx context.Context, kind, outcome string)
	RecordJob(ctx context.Context, kind, status string, duration time.Duration)
	TrackInflight(ctx context.Context, kind string) func()
}

// Deps are the collaborators shared by every slot.
type Deps struct {
	Executor Executor
	Notifier *Notifier
	Logger   *slog.Logger
	Metrics  Recorder     // optional.
	Tracer   trace.Tracer // optional.
}

type entry[P comparable, R any] struct {
	params P
	result R
}

// Slot is the single-request cell for one job kind.
type Slot[P comparable, R any] struct {
	kind  Kind
	query Query[P, R]
	clone func(R) R
	deps  Deps

	pending atomic.Bool

	mu      sync.Mutex
	last    *entry[P, R]
	lastErr error
}

// NewSlot creates an empty slot. clone deep-copies results handed out by
// Current; nil means results are plain values safe to share.
func NewSlot[P comparable, R any](kind Kind, query Query[P, R], clone func(R) R, deps Deps) *Slot[P, R] {
	if deps.Executor == nil {
		deps.Executor = Inline{}
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.Tracer == nil {
		deps.Tracer = noop.NewTracerProvider().Tracer("")
	}

	if clone == nil {
		clone = func(r R) R { return r }
	}

	return &Slot[P, R]{
		kind:  kind,
		query: query,
		clone: clone,
		deps:  deps,
	}
}

// Kind returns the job kind the slot serves.
func (s *Slot[P, R]) Kind() Kind {
	return s.kind
}

// Current returns a copy of the last completed (params, result) pair. ok is
// false until the first query succeeds.
func (s *Slot[P, R]) Current() (params P, result R, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return params, result, false
	}

	return s.last.params, s.clone(s.last.result), true
}

// IsPending reports whether a query is running for this slot.
func (s *Slot[P, R]) IsPending() bool {
	return s.pending.Load()
}

// LastError returns the error of the most recent query, or nil if it
// succeeded.
func (s *Slot[P, R]) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// Fetch asks for params to become the cached result. It never blocks on the
// query. The request is dropped when a query is already running or when the
// cached result was computed for the same params. Otherwise the query is
// dispatched; its completion updates the slot and emits one notification.
//
// Cancelling ctx does not abort a dispatched query.
func (s *Slot[P, R]) Fetch(ctx context.Context, params P) error {
	if !s.pending.CompareAndSwap(false, true) {
		s.recordFetch(ctx, OutcomeSkipPending)

		return nil
	}

	if s.isCached(params) {
		s.pending.Store(false)
		s.recordFetch(ctx, OutcomeSkipCached)

		return nil
	}

	jobCtx := context.WithoutCancel(ctx)

	err := s.deps.Executor.Go(func() { s.run(jobCtx, params) })
	if err != nil {
		s.pending.Store(false)
		s.recordFetch(ctx, OutcomeRejected)

		return fmt.Errorf("dispatch %s job: %w", s.kind, err)
	}

	s.recordFetch(ctx, OutcomeDispatched)

	return nil
}

func (s *Slot[P, R]) isCached(params P) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last != nil && s.last.params == params
}

func (s *Slot[P, R]) run(ctx context.Context, params P) {
	ctx, span := s.deps.Tracer.Start(ctx, "asyncjob."+s.kind.String(),
		trace.WithAttributes(attribute.String("job.kind", s.kind.String())),
	)
	defer span.End()

	if s.deps.Metrics != nil {
		done := s.deps.Metrics.TrackInflight(ctx, s.kind.String())
		defer done()
	}

	start := time.Now()
	result, err := s.invoke(ctx, params)
	elapsed := time.Since(start)

	s.mu.Lock()
	if err == nil {
		s.last = &entry[P, R]{params: params, result: result}
	}

	s.lastErr = err
	s.mu.Unlock()

	s.pending.Store(false)

	status := StatusOK

	if err != nil {
		status = StatusError

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		s.deps.Logger.WarnContext(ctx, "job failed",
			slog.String("kind", s.kind.String()),
			slog.Duration("duration", elapsed),
			slog.String("error", err.Error()),
		)
	} else {
		s.deps.Logger.DebugContext(ctx, "job completed",
			slog.String("kind", s.kind.String()),
			slog.Duration("duration", elapsed),
		)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordJob(ctx, s.kind.String(), status, elapsed)
	}

	if s.deps.Notifier != nil && !s.deps.Notifier.Send(Notification{Kind: s.kind, Err: err}) {
		s.deps.Logger.DebugContext(ctx, "notification dropped", slog.String("kind", s.kind.String()))
	}
}

// invoke runs the query and turns a panic into ErrQueryPanic.
func (s *Slot[P, R]) invoke(ctx context.Context, params P) (result R, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("%w: %s: %v", ErrQueryPanic, s.kind, recovered)
		}
	}()

	return s.query(ctx, params)
}

func (s *Slot[P, R]) recordFetch(ctx context.Context, outcome string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordFetch(ctx, s.kind.String(), outcome)
	}
}

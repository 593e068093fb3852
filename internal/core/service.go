package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// NumberSource reads the integer values of the first column of the first
// sheet of the workbook at path, in row order. Implementations report an
// empty workbook with NoSheets and a column without integers with NoNumbers.
type NumberSource interface {
	Extract(ctx context.Context, path string) ([]int64, error)
}

// NumberSourceFunc adapts a function to NumberSource.
type NumberSourceFunc func(ctx context.Context, path string) ([]int64, error)

// Extract implements NumberSource.
func (f NumberSourceFunc) Extract(ctx context.Context, path string) ([]int64, error) {
	return f(ctx, path)
}

// Service composes validation, extraction and selection. It holds only its
// collaborators; every lookup works on its own values.
type Service struct {
	source   NumberSource
	limiter  *QueryLimiter
	recorder AuditRecorder
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLimiter bounds concurrent workbook reads.
func WithLimiter(l *QueryLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithRecorder sets where finished lookups are audited.
func WithRecorder(r AuditRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithTimeout caps the time spent reading one workbook. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// NewService creates a Service reading numbers from source.
func NewService(source NumberSource, opts ...Option) *Service {
	s := &Service{
		source:   source,
		limiter:  NewQueryLimiter(DefaultMaxConcurrentQueries, DefaultQueryWaitTime),
		recorder: LogRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeNthMinimal validates link and n, reads the workbook and returns the
// n-th smallest distinct value of its first column. The first failure is
// returned as is and nothing runs after it.
func (s *Service) ComputeNthMinimal(ctx context.Context, link, n string) (int64, error) {
	start := s.now()

	value, err := s.compute(ctx, link, n)

	s.audit(ctx, link, n, value, err, start)
	return value, err
}

func (s *Service) compute(ctx context.Context, link, n string) (int64, error) {
	req, err := ValidateRequest(link, n)
	if err != nil {
		return 0, err
	}
	return s.Lookup(ctx, req)
}

// Lookup runs extraction and selection for an already validated request.
func (s *Service) Lookup(ctx context.Context, req ValidatedRequest) (int64, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return 0, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	numbers, err := s.source.Extract(ctx, req.Path)
	if err != nil {
		return 0, err
	}

	slog.DebugContext(ctx, "workbook read", "path", req.Path, "values", len(numbers))

	return SelectNth(numbers, req.N)
}

// LimiterStatus reports the state of the read limiter.
func (s *Service) LimiterStatus() QueryLimiterStatus {
	return s.limiter.Status()
}

// WaitForQueries blocks until in-flight workbook reads finish or ctx is done.
func (s *Service) WaitForQueries(ctx context.Context) error {
	if err := s.limiter.WaitForDrain(ctx); err != nil {
		return fmt.Errorf("wait for queries: %w", err)
	}
	return nil
}

// audit records the outcome of a lookup. Failures to record are logged and
// never change the lookup result.
func (s *Service) audit(ctx context.Context, link, n string, value int64, err error, start time.Time) {
	if s.recorder == nil {
		return
	}

	ip, ua := ClientFromContext(ctx)
	rec := QueryRecord{
		ID:        uuid.NewString(),
		Link:      link,
		N:         n,
		Duration:  s.now().Sub(start),
		IPAddress: ip,
		UserAgent: ua,
		CreatedAt: start.UTC(),
	}
	if err == nil {
		rec.Value = &value
	} else {
		msg := MapError(err)
		rec.ErrorKind = msg.Kind.String()
		rec.ErrorCode = msg.Code
	}

	// The request context may already be cancelled; the audit write should
	// still happen.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if rerr := s.recorder.Record(recCtx, rec); rerr != nil {
		slog.WarnContext(ctx, "failed to record lookup", "audit_id", rec.ID, "error", rerr)
	}
}

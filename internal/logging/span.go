package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Span times one service operation. Every log line written through the
// derived context carries the trace and span identifiers.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from ctx. The first span of a request
// becomes its trace root; the request id is reused as trace id when present.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = RequestIDFromContext(ctx)
		if traceID == "" {
			traceID = ulid.Make().String()
		}
		ctx = withString(ctx, traceIDKey, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := ulid.Make().String()
	logger = logger.With(slog.String("span_id", spanID), slog.String("span", name))
	if parent := SpanIDFromContext(ctx); parent != "" {
		logger = logger.With(slog.String("parent_span_id", parent))
	}

	ctx = WithLogger(ctx, logger)
	ctx = withString(ctx, spanIDKey, spanID)

	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

// End emits the completion entry for the span.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Debug("span completed", slog.Duration("duration", time.Since(s.start)))
}

// Fail records that the operation ended in err. A nil err behaves like End.
func (s *Span) Fail(err error) {
	if s == nil {
		return
	}
	if err == nil {
		s.End()
		return
	}
	s.logger.Info("span failed", slog.Duration("duration", time.Since(s.start)), slog.Any("error", err))
}

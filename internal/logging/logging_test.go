package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}
}

func TestStartSpanReusesRequestIDAsTrace(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), bufferLogger(&buf))
	ctx = WithRequestID(ctx, "req-1")

	ctx, parent := StartSpan(ctx, "outer")
	childCtx, child := StartSpan(ctx, "inner")
	child.End()
	parent.End()

	if TraceIDFromContext(childCtx) != "req-1" {
		t.Fatalf("expected trace id req-1 got %q", TraceIDFromContext(childCtx))
	}
	if SpanIDFromContext(childCtx) == SpanIDFromContext(ctx) {
		t.Fatal("expected child span to get its own id")
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines got %d", len(lines))
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["span"] != "inner" || entry["parent_span_id"] != SpanIDFromContext(ctx) || entry["trace_id"] != "req-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestSpanFailLogsError(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), bufferLogger(&buf))
	ctx = With(ctx, "account_id", "a1")

	_, span := StartSpan(ctx, "op")
	span.Fail(errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, `"error":"boom"`) || !strings.Contains(out, `"account_id":"a1"`) {
		t.Fatalf("unexpected output %s", out)
	}

	var nilSpan *Span
	nilSpan.End()
	nilSpan.Fail(errors.New("ignored"))
}

package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatusCode(t *testing.T) {
	cases := map[Kind]int{
		KindBadRequest:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := kind.StatusCode(); got != want {
			t.Fatalf("%s: expected %d got %d", kind, want, got)
		}
	}
}

func TestAsFindsWrappedError(t *testing.T) {
	base := Forbidden("not yours")
	wrapped := fmt.Errorf("update video: %w", base)

	got := As(wrapped)
	if got != base {
		t.Fatalf("expected wrapped error to be found, got %+v", got)
	}
	if KindOf(wrapped) != KindForbidden {
		t.Fatalf("expected forbidden kind")
	}
}

func TestAsUnclassified(t *testing.T) {
	cause := errors.New("connection reset")
	got := As(cause)
	if got.Kind != KindInternal {
		t.Fatalf("expected internal kind got %s", got.Kind)
	}
	if got.Message == cause.Error() {
		t.Fatal("internal message must not leak the cause")
	}
	if !errors.Is(got, cause) {
		t.Fatal("expected cause to be retained for logging")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

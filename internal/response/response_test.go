package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidshare/backend/internal/apperrors"
)

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(context.Background(), rec, map[string]string{"id": "v1"}, "video published")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body struct {
		Status  int               `json:"status"`
		Data    map[string]string `json:"data"`
		Message string            `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusCreated || body.Data["id"] != "v1" || body.Message != "video published" {
		t.Fatalf("unexpected envelope %+v", body)
	}
}

func TestErrorEnvelopeHidesInternalCause(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"classified", apperrors.Forbidden("not yours"), http.StatusForbidden, "not yours"},
		{"internal", apperrors.Internal("create account", errors.New("pq: secret detail")), http.StatusInternalServerError, "internal server error"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(context.Background(), rec, tt.err)

			if rec.Code != tt.status {
				t.Fatalf("expected status %d got %d", tt.status, rec.Code)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["message"] != tt.message {
				t.Fatalf("expected message %q got %v", tt.message, body["message"])
			}
			if _, ok := body["data"]; ok {
				t.Fatal("error envelope must not carry data")
			}
		})
	}
}

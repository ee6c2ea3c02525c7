// Package response writes the JSON envelopes shared by handlers and middleware.
package response

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vidshare/backend/internal/apperrors"
	"github.com/vidshare/backend/internal/logging"
)

const internalMessage = "internal server error"

// Envelope wraps every successful response.
type Envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

// ErrorEnvelope wraps every failed response.
type ErrorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// JSON writes payload with the given status and logs failed responses.
func JSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// Success writes data inside the success envelope.
func Success(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	JSON(ctx, w, status, Envelope{Status: status, Data: data, Message: message})
}

// OK writes a 200 success envelope.
func OK(ctx context.Context, w http.ResponseWriter, data any, message string) {
	Success(ctx, w, http.StatusOK, data, message)
}

// Created writes a 201 success envelope.
func Created(ctx context.Context, w http.ResponseWriter, data any, message string) {
	Success(ctx, w, http.StatusCreated, data, message)
}

// Error renders err as an error envelope. Internal failures are logged with
// their cause and rendered with a generic message.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperrors.As(err)
	status := appErr.Kind.StatusCode()

	message := appErr.Message
	if appErr.Kind == apperrors.KindInternal {
		logging.FromContext(ctx).Error("internal failure",
			slog.String("operation", appErr.Message),
			slog.Any("error", appErr.Err),
		)
		message = internalMessage
	}

	JSON(ctx, w, status, ErrorEnvelope{Status: status, Message: message})
}

// Status writes an error envelope for status using its standard text.
func Status(ctx context.Context, w http.ResponseWriter, status int) {
	JSON(ctx, w, status, ErrorEnvelope{Status: status, Message: http.StatusText(status)})
}

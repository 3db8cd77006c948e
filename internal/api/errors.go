package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_sayfluent/internal/engine"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/library"
	"github.com/anatolykoptev/go_sayfluent/internal/engine/speech"
	"github.com/anatolykoptev/go_sayfluent/internal/toolutil"
)

const maxJSONBody = 1 << 20

type envelope struct {
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("api: encode response", slog.Any("err", err))
	}
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

// statusFor maps an error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	var upstream *engine.UpstreamError
	switch {
	case errors.Is(err, engine.ErrInvalidURL),
		errors.Is(err, engine.ErrInvalidInput),
		errors.Is(err, speech.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, toolutil.ErrVideoTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, engine.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError renders err in the error envelope. data, when non-nil, is sent
// alongside (the metadata of a too-long video).
func writeError(w http.ResponseWriter, r *http.Request, err error, data any) {
	status := statusFor(err)
	body := envelope{Data: data, Error: err.Error()}

	var upstream *engine.UpstreamError
	switch {
	case errors.As(err, &upstream):
		body.Error = fmt.Sprintf("%s request failed", upstream.Provider)
		body.Details = upstream.Error()
	case status == http.StatusInternalServerError:
		body.Error = "internal error"
		body.Details = err.Error()
	}

	if status >= http.StatusInternalServerError {
		slog.Error("api: request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Any("err", err),
		)
	}
	writeJSON(w, status, body)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", engine.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return invalid("decode body: %v", err)
	}
	return nil
}

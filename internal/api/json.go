package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/WesleySmits/project-manager-bot-sub000/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error     string `json:"error" validate:"required"`
	Retryable bool   `json:"retryable,omitempty"`
}

// StatusClientClosedRequest is nginx's non-standard code for a request the
// client abandoned before the response was ready.
const StatusClientClosedRequest = 499

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps err onto a status code. Caller errors echo their message;
// upstream and internal failures are logged and summarized.
func writeError(w http.ResponseWriter, op string, err error) {
	var upstream *apperr.UpstreamError
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.As(err, &upstream):
		status := http.StatusBadGateway
		if upstream.Timeout {
			status = http.StatusGatewayTimeout
		}
		slog.Warn(op+" failed upstream", slog.String("error", err.Error()))
		writeJSON(w, status, errResponse{Error: "upstream: " + upstream.Error(), Retryable: upstream.Retryable()})
	case errors.Is(err, context.Canceled):
		// Client went away. The status still reaches access logs and metrics.
		slog.Debug(op+" cancelled", slog.String("error", err.Error()))
		w.WriteHeader(StatusClientClosedRequest)
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

package web

// errors.go provides unified error response handling for the web layer.
//
// Every failed lookup is logged once with its technical cause and returned
// to the client as the fixed message of its kind, in the format the client
// asked for: an HTMX fragment, JSON, or the bare message as plain text.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/JonMunkholm/nthmin/internal/logging"
	"github.com/JonMunkholm/nthmin/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code, Kind) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// statusFor maps a lookup error to an HTTP status code.
func statusFor(err error) int {
	if kind := core.KindOf(err); kind != core.KindUnknown {
		if kind.NotFound() {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, core.ErrTooManyQueries):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing response for it.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"kind", userMsg.Kind.String(),
	)

	switch {
	case isHTMX(r):
		// htmx swaps only 2xx responses into the page.
		renderErrorPartial(w, r, userMsg, http.StatusOK)
	case wantsJSON(r):
		writeJSON(w, status, toErrorResponse(userMsg))
	default:
		http.Error(w, userMsg.Message, status)
	}
}

func toErrorResponse(msg core.UserMessage) ErrorResponse {
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if msg.Kind != core.KindUnknown {
		resp.Kind = msg.Kind.String()
	}
	return resp
}

// writeError writes a JSON error for failures outside the lookup pipeline,
// such as rate limiting or a disabled endpoint.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Warn("request rejected",
		"path", r.URL.Path,
		"status", status,
		"reason", message,
	)
	writeJSON(w, status, ErrorResponse{Error: message, Message: message})
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

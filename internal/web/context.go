package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/nthmin/internal/core"
)

// withClient adds the client IP and User-Agent to the request context for
// audit logging.
func withClient(r *http.Request) context.Context {
	return core.ContextWithClient(r.Context(), clientIP(r), r.UserAgent())
}

package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/JonMunkholm/nthmin/internal/logging"
	"github.com/JonMunkholm/nthmin/internal/web/templates"
)

// FindResponse is the JSON body of a successful lookup.
type FindResponse struct {
	FileLink string `json:"fileLink"`
	N        int    `json:"n"`
	Value    int64  `json:"value"`
}

// HealthResponse reports liveness and the state of the read limiter.
type HealthResponse struct {
	Status  string                  `json:"status"`
	Queries core.QueryLimiterStatus `json:"queries"`
}

// lookupParams reads the fileLink and N query parameters. Missing
// parameters come back empty and are rejected by validation.
func lookupParams(r *http.Request) (link, n string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("fileLink")), strings.TrimSpace(q.Get("N"))
}

// handleFindNthMin answers GET /api/find-nth-min with the n-th smallest
// distinct value of the workbook's first column.
func (s *Server) handleFindNthMin(w http.ResponseWriter, r *http.Request) {
	link, n := lookupParams(r)

	value, err := s.service.ComputeNthMinimal(withClient(r), link, n)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "file_link", link, "n", n).Debug("lookup succeeded", "value", value)

	if wantsJSON(r) {
		// n passed validation, so it parses.
		nVal, _ := strconv.Atoi(n)
		writeJSON(w, http.StatusOK, FindResponse{FileLink: link, N: nVal, Value: value})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(strconv.FormatInt(value, 10)))
}

// handleIndex renders the lookup form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index().Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleLookupPartial runs a lookup submitted from the form and renders the
// result fragment for HTMX.
func (s *Server) handleLookupPartial(w http.ResponseWriter, r *http.Request) {
	link, n := lookupParams(r)

	value, err := s.service.ComputeNthMinimal(withClient(r), link, n)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Result(link, n, value).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render result", "error", err)
	}
}

// handleHealth reports liveness and current lookup load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Queries: s.service.LimiterStatus(),
	})
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

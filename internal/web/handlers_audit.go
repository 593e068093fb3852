package web

import (
	"net/http"

	"github.com/JonMunkholm/nthmin/internal/core"
)

// AuditResponse lists recent lookups, newest first.
type AuditResponse struct {
	Records []core.QueryRecord `json:"records"`
	Count   int                `json:"count"`
}

// handleAuditLog returns recent lookups from the audit store. The limit
// query parameter is clamped by the store.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	if s.auditLog == nil {
		writeError(w, r, http.StatusNotFound, "audit log is not enabled")
		return
	}

	records, err := s.auditLog.Recent(r.Context(), parseIntParam(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if records == nil {
		records = []core.QueryRecord{}
	}

	writeJSON(w, http.StatusOK, AuditResponse{Records: records, Count: len(records)})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/inventory-core/internal/audit"
)

// handleListAuditLogs returns paginated audit entries, newest first.
//
// Query parameters:
//   - action: filter by event type (device.taken, user.registered, ...)
//   - entity_type: filter by entity type (device, user)
//   - entity_id: filter by specific entity ID
//   - user_id: filter by the user involved
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit logging not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("user_id"),
	}

	var ok bool
	if filter.Limit, ok = intParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = intParam(w, q.Get("offset"), "offset"); !ok {
		return
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeInternalError(w, "failed to list audit logs")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(w http.ResponseWriter, v, name string) (int, bool) {
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

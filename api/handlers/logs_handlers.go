package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type LogsHandler struct {
	audits store.AuditStore
	logger *utils.Logger
}

func NewLogsHandler(audits store.AuditStore, logger *utils.Logger) *LogsHandler {
	return &LogsHandler{audits: audits, logger: logger}
}

// List returns the most recent audit records, newest first. Optional query
// params: since (RFC3339) and limit (default 200).
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	since := time.Time{}
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since, expected RFC3339")
			return
		}
		since = t
	}
	limit := 200
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := h.audits.ListFiltered(r.Context(), since, limit)
	if err != nil {
		h.logger.Errorf("list audit logs: %v", err)
		writeStoreError(w)
		return
	}
	if records == nil {
		records = []store.AuditRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": records})
}

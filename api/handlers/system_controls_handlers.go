package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"atlas-grc/core/auth"
	"atlas-grc/core/catalog"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type SystemControlsHandler struct {
	systems     store.SystemsStore
	assignments store.SystemControlsStore
	audits      store.AuditStore
	logger      *utils.Logger
}

func NewSystemControlsHandler(systems store.SystemsStore, assignments store.SystemControlsStore, audits store.AuditStore, logger *utils.Logger) *SystemControlsHandler {
	return &SystemControlsHandler{systems: systems, assignments: assignments, audits: audits, logger: logger}
}

func (h *SystemControlsHandler) List(w http.ResponseWriter, r *http.Request) {
	systemID, ok := h.resolveSystem(w, r)
	if !ok {
		return
	}
	page, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pagination parameters")
		return
	}
	filter := controlFilterFromQuery(r)
	if filter.Baseline != "" {
		filter.Baseline = catalog.CanonicalBaseline(filter.Baseline)
	}
	rows, total, err := h.assignments.ListForSystem(r.Context(), systemID, filter, page)
	if err != nil {
		h.logger.Errorf("list assignments %s: %v", systemID, err)
		writeStoreError(w)
		return
	}
	if rows == nil {
		rows = []store.SystemControlView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"systemControls": rows,
		"pagination":     store.NewPageMeta(page, total),
	})
}

func (h *SystemControlsHandler) Get(w http.ResponseWriter, r *http.Request) {
	systemID, ok := h.resolveSystem(w, r)
	if !ok {
		return
	}
	controlID := strings.TrimSpace(chi.URLParam(r, "controlId"))
	row, err := h.assignments.GetOne(r.Context(), systemID, controlID)
	if err != nil {
		h.logger.Errorf("get assignment %s/%s: %v", systemID, controlID, err)
		writeStoreError(w)
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type assignmentPatchRequest struct {
	Status             *string `json:"status"`
	ImplementationText *string `json:"implementation_text"`
	ResponsibleParty   *string `json:"responsible_party"`
	ImplementationDate *string `json:"implementation_date"`
}

// Update merges the patch into the existing row. Absent fields stay
// untouched; updated_by and last_updated are always stamped server-side.
func (h *SystemControlsHandler) Update(w http.ResponseWriter, r *http.Request) {
	systemID, ok := h.resolveSystem(w, r)
	if !ok {
		return
	}
	controlID := strings.TrimSpace(chi.URLParam(r, "controlId"))
	var req assignmentPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	patch := store.SystemControlPatch{
		ImplementationText: req.ImplementationText,
		ResponsibleParty:   req.ResponsibleParty,
	}
	if req.Status != nil {
		status, valid := catalog.NormalizeInList(*req.Status, catalog.Statuses)
		if !valid {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		patch.Status = &status
	}
	if req.ImplementationDate != nil {
		t, err := time.Parse("2006-01-02", *req.ImplementationDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid implementation_date, expected YYYY-MM-DD")
			return
		}
		patch.ImplementationDate = &t
	}
	sess := auth.FromContext(r.Context())
	row, err := h.assignments.Update(r.Context(), systemID, controlID, patch, sess.Username)
	if err != nil {
		h.logger.Errorf("update assignment %s/%s: %v", systemID, controlID, err)
		writeStoreError(w)
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "assignment not found")
		return
	}
	_ = h.audits.Log(r.Context(), sess.Username, "systems.controls.update", systemID+" "+controlID)
	writeJSON(w, http.StatusOK, row)
}

type bulkAssignRequest struct {
	ControlIDs []string `json:"control_ids"`
}

func (h *SystemControlsHandler) BulkAssign(w http.ResponseWriter, r *http.Request) {
	systemID, ok := h.resolveSystem(w, r)
	if !ok {
		return
	}
	var req bulkAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(req.ControlIDs) == 0 {
		writeError(w, http.StatusBadRequest, "control_ids is empty")
		return
	}
	sess := auth.FromContext(r.Context())
	res, err := h.assignments.BulkAssign(r.Context(), systemID, req.ControlIDs, sess.Username)
	if err != nil {
		h.logger.Errorf("bulk assign %s: %v", systemID, err)
		writeStoreError(w)
		return
	}
	_ = h.audits.Log(r.Context(), sess.Username, "systems.controls.bulk_assign", systemID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "controls assigned",
		"assigned": len(res.Inserted),
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"controls": res.Inserted,
	})
}

func (h *SystemControlsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	systemID, ok := h.resolveSystem(w, r)
	if !ok {
		return
	}
	controlID := strings.TrimSpace(chi.URLParam(r, "controlId"))
	if err := h.assignments.Remove(r.Context(), systemID, controlID); err != nil {
		h.logger.Errorf("remove assignment %s/%s: %v", systemID, controlID, err)
		writeStoreError(w)
		return
	}
	sess := auth.FromContext(r.Context())
	_ = h.audits.Log(r.Context(), sess.Username, "systems.controls.remove", systemID+" "+controlID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "assignment removed"})
}

func (h *SystemControlsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	systemID, ok := h.resolveSystem(w, r)
	if !ok {
		return
	}
	stats, err := h.assignments.StatsForSystem(r.Context(), systemID)
	if err != nil {
		h.logger.Errorf("assignment stats %s: %v", systemID, err)
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// resolveSystem 404s unknown systems before any assignment query runs.
func (h *SystemControlsHandler) resolveSystem(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "systemId"))
	if _, err := uuid.FromString(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid system id")
		return "", false
	}
	sys, err := h.systems.Get(r.Context(), id)
	if err != nil {
		h.logger.Errorf("get system %s: %v", id, err)
		writeStoreError(w)
		return "", false
	}
	if sys == nil {
		writeError(w, http.StatusNotFound, "system not found")
		return "", false
	}
	return sys.ID, true
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"

	"atlas-grc/core/auth"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type SystemsHandler struct {
	systems store.SystemsStore
	audits  store.AuditStore
	logger  *utils.Logger
}

func NewSystemsHandler(systems store.SystemsStore, audits store.AuditStore, logger *utils.Logger) *SystemsHandler {
	return &SystemsHandler{systems: systems, audits: audits, logger: logger}
}

type systemRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Owner        string   `json:"owner"`
	STIGProfiles []string `json:"stig_profiles"`
}

func (h *SystemsHandler) List(w http.ResponseWriter, r *http.Request) {
	systems, err := h.systems.List(r.Context())
	if err != nil {
		h.logger.Errorf("list systems: %v", err)
		writeStoreError(w)
		return
	}
	if systems == nil {
		systems = []store.System{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"systems": systems})
}

func (h *SystemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req systemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "system name required")
		return
	}
	sess := auth.FromContext(r.Context())
	sys := &store.System{
		Name:         req.Name,
		Description:  strings.TrimSpace(req.Description),
		Owner:        strings.TrimSpace(req.Owner),
		STIGProfiles: req.STIGProfiles,
		CreatedBy:    sess.Username,
	}
	if _, err := h.systems.Create(r.Context(), sys); err != nil {
		h.logger.Errorf("create system %s: %v", req.Name, err)
		writeStoreError(w)
		return
	}
	_ = h.audits.Log(r.Context(), sess.Username, "systems.create", sys.ID+" "+sys.Name)
	writeJSON(w, http.StatusCreated, sys)
}

func (h *SystemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	sys, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (h *SystemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	sys, ok := h.load(w, r)
	if !ok {
		return
	}
	var req systemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "system name required")
		return
	}
	sys.Name = req.Name
	sys.Description = strings.TrimSpace(req.Description)
	sys.Owner = strings.TrimSpace(req.Owner)
	sys.STIGProfiles = req.STIGProfiles
	if err := h.systems.Update(r.Context(), sys); err != nil {
		h.logger.Errorf("update system %s: %v", sys.ID, err)
		writeStoreError(w)
		return
	}
	sess := auth.FromContext(r.Context())
	_ = h.audits.Log(r.Context(), sess.Username, "systems.update", sys.ID)
	writeJSON(w, http.StatusOK, sys)
}

func (h *SystemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sys, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.systems.Delete(r.Context(), sys.ID); err != nil {
		h.logger.Errorf("delete system %s: %v", sys.ID, err)
		writeStoreError(w)
		return
	}
	sess := auth.FromContext(r.Context())
	_ = h.audits.Log(r.Context(), sess.Username, "systems.delete", sys.ID+" "+sys.Name)
	writeJSON(w, http.StatusOK, map[string]string{"message": "system deleted"})
}

func (h *SystemsHandler) load(w http.ResponseWriter, r *http.Request) (*store.System, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "systemId"))
	if _, err := uuid.FromString(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid system id")
		return nil, false
	}
	sys, err := h.systems.Get(r.Context(), id)
	if err != nil {
		h.logger.Errorf("get system %s: %v", id, err)
		writeStoreError(w)
		return nil, false
	}
	if sys == nil {
		writeError(w, http.StatusNotFound, "system not found")
		return nil, false
	}
	return sys, true
}

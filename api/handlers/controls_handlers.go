package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"atlas-grc/config"
	"atlas-grc/core/auth"
	"atlas-grc/core/catalog"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type ControlsHandler struct {
	cfg      *config.AppConfig
	controls store.ControlsStore
	audits   store.AuditStore
	logger   *utils.Logger
}

func NewControlsHandler(cfg *config.AppConfig, controls store.ControlsStore, audits store.AuditStore, logger *utils.Logger) *ControlsHandler {
	return &ControlsHandler{cfg: cfg, controls: controls, audits: audits, logger: logger}
}

// List serves the catalog page plus the filter vocabulary the UI needs to
// render its dropdowns, all in one envelope.
func (h *ControlsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid pagination parameters")
		return
	}
	filter := controlFilterFromQuery(r)
	if filter.Baseline != "" {
		filter.Baseline = catalog.CanonicalBaseline(filter.Baseline)
	}
	rows, total, err := h.controls.ListControls(r.Context(), filter, page)
	if err != nil {
		h.logger.Errorf("list controls: %v", err)
		writeStoreError(w)
		return
	}
	families, err := h.controls.ListFamilies(r.Context())
	if err != nil {
		h.logger.Errorf("list families: %v", err)
		writeStoreError(w)
		return
	}
	baselines, err := h.controls.ListBaselines(r.Context())
	if err != nil {
		h.logger.Errorf("list baselines: %v", err)
		writeStoreError(w)
		return
	}
	if rows == nil {
		rows = []store.Control{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controls":   rows,
		"pagination": store.NewPageMeta(page, total),
		"families":   families,
		"baselines":  baselines,
	})
}

func (h *ControlsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "controlId"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "control id required")
		return
	}
	framework := strings.TrimSpace(r.URL.Query().Get("framework"))
	ctrl, err := h.controls.GetControl(r.Context(), framework, id)
	if err != nil {
		h.logger.Errorf("get control %s: %v", id, err)
		writeStoreError(w)
		return
	}
	if ctrl == nil {
		writeError(w, http.StatusNotFound, "control not found")
		return
	}
	writeJSON(w, http.StatusOK, ctrl)
}

func (h *ControlsHandler) Families(w http.ResponseWriter, r *http.Request) {
	families, err := h.controls.ListFamilies(r.Context())
	if err != nil {
		h.logger.Errorf("list families: %v", err)
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"families": families})
}

func (h *ControlsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.controls.CatalogStats(r.Context())
	if err != nil {
		h.logger.Errorf("catalog stats: %v", err)
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type importRequest struct {
	Controls []store.Control `json:"controls"`
	Replace  bool            `json:"replace"`
	Confirm  bool            `json:"confirm"`
}

// Import loads catalog rows in batches. Replace mode wipes the catalog first
// and therefore requires the explicit confirm flag.
func (h *ControlsHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if len(req.Controls) == 0 {
		writeError(w, http.StatusBadRequest, "controls list is empty")
		return
	}
	if req.Replace && !req.Confirm {
		writeError(w, http.StatusBadRequest, "replace requires confirm")
		return
	}
	ids := make(map[string]struct{}, len(req.Controls))
	for i := range req.Controls {
		c := &req.Controls[i]
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			writeError(w, http.StatusBadRequest, "control with empty id")
			return
		}
		if strings.TrimSpace(c.Framework) == "" {
			c.Framework = h.cfg.Catalog.DefaultFramework
		}
		if c.Enhancement != nil && strings.TrimSpace(*c.Enhancement) == "" {
			c.Enhancement = nil
		}
		if c.ParentControlID != nil && strings.TrimSpace(*c.ParentControlID) == "" {
			c.ParentControlID = nil
		}
		ids[c.ID] = struct{}{}
	}
	for i := range req.Controls {
		c := &req.Controls[i]
		if (c.Enhancement == nil) != (c.ParentControlID == nil) {
			writeError(w, http.StatusBadRequest, "enhancement and parent_control_id must be set together on "+c.ID)
			return
		}
		if c.ParentControlID == nil {
			continue
		}
		parent := strings.TrimSpace(*c.ParentControlID)
		if _, ok := ids[parent]; ok {
			continue
		}
		if req.Replace {
			writeError(w, http.StatusBadRequest, "unknown parent control "+parent)
			return
		}
		existing, err := h.controls.GetControl(r.Context(), "", parent)
		if err != nil {
			h.logger.Errorf("lookup parent control %s: %v", parent, err)
			writeStoreError(w)
			return
		}
		if existing == nil {
			writeError(w, http.StatusBadRequest, "unknown parent control "+parent)
			return
		}
	}
	res, err := h.controls.BulkImport(r.Context(), req.Controls, store.ImportOptions{
		Replace:   req.Replace,
		BatchSize: h.cfg.Catalog.ImportBatchSize,
	})
	if err != nil {
		h.logger.Errorf("catalog import: %v", err)
		writeStoreError(w)
		return
	}
	actor := ""
	if sess := auth.FromContext(r.Context()); sess != nil {
		actor = sess.Username
	}
	_ = h.audits.Log(r.Context(), actor, "controls.import", importAuditDetails(len(req.Controls), req.Replace, res))
	writeJSON(w, http.StatusOK, res)
}

func importAuditDetails(rows int, replace bool, res *store.ImportResult) string {
	b, _ := json.Marshal(map[string]any{
		"rows":     rows,
		"replace":  replace,
		"imported": res.Imported,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
	})
	return string(b)
}

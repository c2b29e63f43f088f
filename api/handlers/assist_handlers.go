package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"atlas-grc/core/assist"
	"atlas-grc/core/auth"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type AssistHandler struct {
	provider    assist.Provider
	systems     store.SystemsStore
	assignments store.SystemControlsStore
	audits      store.AuditStore
	logger      *utils.Logger
}

// NewAssistHandler accepts a nil provider; the endpoint then reports the
// assistant as unavailable (air-gapped deployments).
func NewAssistHandler(provider assist.Provider, systems store.SystemsStore, assignments store.SystemControlsStore, audits store.AuditStore, logger *utils.Logger) *AssistHandler {
	return &AssistHandler{provider: provider, systems: systems, assignments: assignments, audits: audits, logger: logger}
}

type assistRequest struct {
	Question string `json:"question"`
}

func (h *AssistHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	systemID := strings.TrimSpace(chi.URLParam(r, "systemId"))
	sys, err := h.systems.Get(r.Context(), systemID)
	if err != nil {
		h.logger.Errorf("get system %s: %v", systemID, err)
		writeStoreError(w)
		return
	}
	if sys == nil {
		writeError(w, http.StatusNotFound, "system not found")
		return
	}
	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question required")
		return
	}
	stats, err := h.assignments.StatsForSystem(r.Context(), sys.ID)
	if err != nil {
		h.logger.Errorf("assignment stats %s: %v", sys.ID, err)
		writeStoreError(w)
		return
	}
	resp, err := h.provider.Complete(r.Context(), assist.BuildPosturePrompt(sys, stats, req.Question))
	if err != nil {
		h.logger.Errorf("assist completion %s: %v", sys.ID, err)
		writeError(w, http.StatusBadGateway, "assistant request failed")
		return
	}
	sess := auth.FromContext(r.Context())
	_ = h.audits.Log(r.Context(), sess.Username, "assist.ask", sys.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"answer": resp.Content,
		"usage": map[string]int{
			"prompt_tokens":     resp.PromptTokens,
			"completion_tokens": resp.CompletionTokens,
		},
	})
}

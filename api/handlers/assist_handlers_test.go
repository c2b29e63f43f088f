package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"atlas-grc/core/assist"
	"atlas-grc/core/store"
	"atlas-grc/core/utils"
)

type stubProvider struct {
	lastMessages []assist.Message
}

func (p *stubProvider) Complete(ctx context.Context, messages []assist.Message) (*assist.Response, error) {
	p.lastMessages = messages
	return &assist.Response{Content: "Focus on the unimplemented controls.", PromptTokens: 42, CompletionTokens: 7}, nil
}

func TestAssistAsk(t *testing.T) {
	db := mustTestDB(t)
	cs := store.NewControlsStore(db)
	ss := store.NewSystemsStore(db)
	scs := store.NewSystemControlsStore(db)
	seedTestCatalog(t, cs)
	sys := mustSystem(t, ss)
	if _, err := scs.BulkAssign(context.Background(), sys.ID, []string{"AC-1", "AC-2"}, "admin"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	provider := &stubProvider{}
	h := NewAssistHandler(provider, ss, scs, store.NewAuditStore(db), utils.NewLogger())

	req := withTestSession(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"question":"Where do we stand?"}`)), map[string]string{"systemId": sys.ID})
	rr := httptest.NewRecorder()
	h.Ask(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rr.Code, rr.Body.String())
	}
	var body struct {
		Answer string `json:"answer"`
		Usage  struct {
			PromptTokens int `json:"prompt_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Answer == "" || body.Usage.PromptTokens != 42 {
		t.Fatalf("body: %+v", body)
	}
	if len(provider.lastMessages) != 2 || !strings.Contains(provider.lastMessages[1].Content, "Assigned controls: 2") {
		t.Fatalf("prompt: %+v", provider.lastMessages)
	}
}

func TestAssistUnconfigured(t *testing.T) {
	db := mustTestDB(t)
	ss := store.NewSystemsStore(db)
	sys := mustSystem(t, ss)
	h := NewAssistHandler(nil, ss, store.NewSystemControlsStore(db), store.NewAuditStore(db), utils.NewLogger())

	req := withTestSession(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"question":"hi"}`)), map[string]string{"systemId": sys.ID})
	rr := httptest.NewRecorder()
	h.Ask(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d (%s)", rr.Code, rr.Body.String())
	}
}

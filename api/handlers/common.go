package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"atlas-grc/core/store"
)

const (
	SessionCookieName = "atlas_session"

	defaultPage  = 1
	defaultLimit = 50
	maxLimit     = 500
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the {"error": ...} body every failure path uses.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError hides the underlying failure from the client.
func writeStoreError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parsePagination validates page/limit query params. Missing values fall back
// to defaults; non-numeric or non-positive values are rejected.
func parsePagination(r *http.Request) (store.PageRequest, bool) {
	req := store.PageRequest{Page: defaultPage, Limit: defaultLimit}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return req, false
		}
		req.Page = n
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			return req, false
		}
		req.Limit = n
	}
	return req, true
}

func controlFilterFromQuery(r *http.Request) store.ControlFilter {
	q := r.URL.Query()
	return store.ControlFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Family:    strings.TrimSpace(q.Get("family")),
		Baseline:  strings.TrimSpace(q.Get("baseline")),
		Framework: strings.TrimSpace(q.Get("framework")),
	}
}

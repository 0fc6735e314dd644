// Package handlers implements the HTTP handlers that expose CoreContext's
// operations: search, answer, update suggestion/application, release
// comparison, service-dependency lookup, corpus refresh, health, and
// metrics.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/turtacn/docintel/internal/core"
	"github.com/turtacn/docintel/internal/docupdate"
	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/lexical"
	"github.com/turtacn/docintel/internal/rag"
	"github.com/turtacn/docintel/pkg/errors"
)

// Handlers bundles the CoreContext and logger shared by every route.
type Handlers struct {
	Core   *core.CoreContext
	Logger logging.Logger
}

// New returns a Handlers bound to the given CoreContext.
func New(cc *core.CoreContext, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handlers{Core: cc, Logger: logger}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := errors.GetCode(err).HTTPStatus()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryOrDefault(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Search handles GET /v1/search?root=&q=&k=&release=&service=&docType=
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	q := r.URL.Query().Get("q")
	if root == "" || q == "" {
		writeError(w, errors.InvalidParam("root and q query parameters are required"))
		return
	}
	topK := queryOrDefault(r, "k", 10)
	filters := lexical.Filters{
		Release: r.URL.Query().Get("release"),
		Service: r.URL.Query().Get("service"),
	}
	if docTypes := r.URL.Query().Get("docType"); docTypes != "" {
		filters.DocTypes = strings.Split(docTypes, ",")
	}

	hits, err := h.Core.Search(r.Context(), root, q, filters, topK)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"hits": hits})
}

// answerRequest is the POST body for /v1/answer.
type answerRequest struct {
	Query     string      `json:"query"`
	Filters   rag.Filters `json:"filters"`
	TopK      int         `json:"top_k"`
	MaxTokens int         `json:"max_tokens"`
}

// Answer handles POST /v1/answer.
func (h *Handlers) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidParam("malformed request body"))
		return
	}
	if req.Query == "" {
		writeError(w, errors.InvalidParam("query is required"))
		return
	}

	resp, err := h.Core.Answer(r.Context(), req.Query, req.Filters, req.TopK, req.MaxTokens)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// suggestUpdateRequest is the POST body for /v1/updates/suggest.
type suggestUpdateRequest struct {
	Root   string          `json:"root"`
	Intent docupdate.Intent `json:"intent"`
}

// SuggestUpdate handles POST /v1/updates/suggest.
func (h *Handlers) SuggestUpdate(w http.ResponseWriter, r *http.Request) {
	var req suggestUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidParam("malformed request body"))
		return
	}
	if req.Root == "" || req.Intent.Intent == "" {
		writeError(w, errors.InvalidParam("root and intent.intent are required"))
		return
	}

	suggestion, err := h.Core.SuggestUpdate(r.Context(), req.Root, req.Intent)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

// applyUpdateRequest is the POST body for /v1/updates/apply. Suggestion is
// the exact object previously returned by SuggestUpdate.
type applyUpdateRequest struct {
	Root       string                   `json:"root"`
	Suggestion docmodel.UpdateSuggestion `json:"suggestion"`
	Force      bool                     `json:"force"`
}

// ApplyUpdate handles POST /v1/updates/apply.
func (h *Handlers) ApplyUpdate(w http.ResponseWriter, r *http.Request) {
	var req applyUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.InvalidParam("malformed request body"))
		return
	}
	if req.Root == "" || req.Suggestion.TargetPath == "" {
		writeError(w, errors.InvalidParam("root and suggestion.target_path are required"))
		return
	}

	result, err := h.Core.ApplyUpdate(r.Context(), req.Root, req.Suggestion, req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CompareReleases handles GET /v1/releases/compare?root=&feature=&release=R1&release=R2
func (h *Handlers) CompareReleases(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	feature := r.URL.Query().Get("feature")
	releases := r.URL.Query()["release"]
	if root == "" {
		writeError(w, errors.InvalidParam("root query parameter is required"))
		return
	}

	summaries, err := h.Core.CompareReleases(r.Context(), root, feature, releases)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"summaries": summaries})
}

// ServiceDependencies handles GET /v1/services/dependencies?root=&service=
func (h *Handlers) ServiceDependencies(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	service := r.URL.Query().Get("service")
	if root == "" {
		writeError(w, errors.InvalidParam("root query parameter is required"))
		return
	}

	deps, err := h.Core.ServiceDependencies(r.Context(), root, service)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dependencies": deps})
}

// Refresh handles POST /v1/refresh?root=
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	root := r.URL.Query().Get("root")
	if root == "" {
		writeError(w, errors.InvalidParam("root query parameter is required"))
		return
	}
	if err := h.Core.Refresh(r.Context(), root); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	status := h.Core.Healthz(r.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// Metrics handles GET /metrics, returning the in-process operation snapshot.
// It is not a Prometheus exposition endpoint; the Prometheus scrape handler
// is metrics.Metrics.Handler, which this router does not mount.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Core.MetricsSnapshot())
}

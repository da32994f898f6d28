// Package httphandler is the JSON API driving adapter. Callers are trusted
// services; role checks happen before requests reach it.
package httphandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/panelvault/internal/application"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	vault    *application.Vault
	links    *application.LinkService
	resolver *application.Resolver
	aliases  *application.AliasDirectory
	purge    *application.PurgeService
	db       Pinger
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	vault *application.Vault,
	links *application.LinkService,
	resolver *application.Resolver,
	aliases *application.AliasDirectory,
	purge *application.PurgeService,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		vault:    vault,
		links:    links,
		resolver: resolver,
		aliases:  aliases,
		purge:    purge,
		db:       db,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware. gatherer backs /metrics.
func NewServeMux(h *Handler, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/users/{user}/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/users/{user}/credentials", h.LinkCredential)
	mux.HandleFunc("DELETE /api/v1/users/{user}/credentials", h.UnlinkCredential)
	mux.HandleFunc("PUT /api/v1/users/{user}/credentials/default", h.SetDefaultCredential)
	mux.HandleFunc("POST /api/v1/users/{user}/credentials/reveal", h.RevealCredential)
	mux.HandleFunc("POST /api/v1/users/{user}/credentials/verify", h.VerifyCredential)
	mux.HandleFunc("DELETE /api/v1/users/{user}", h.WipeUser)
	mux.HandleFunc("GET /api/v1/users/{user}/panels", h.ListPanels)
	mux.HandleFunc("GET /api/v1/users/{user}/resolve", h.Resolve)

	mux.HandleFunc("GET /api/v1/aliases", h.ListAliases)
	mux.HandleFunc("GET /api/v1/aliases/{alias}", h.GetAlias)
	mux.HandleFunc("PUT /api/v1/aliases/{alias}", h.SetAlias)
	mux.HandleFunc("DELETE /api/v1/aliases/{alias}", h.DeleteAlias)

	mux.HandleFunc("POST /api/v1/admin/purge", h.Purge)
	mux.HandleFunc("DELETE /api/v1/admin/credentials", h.WipeAll)

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// ListCredentials returns every credential of the user without secrets.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := h.vault.List(r.Context(), r.PathValue("user"))
	if err != nil {
		writeServiceError(w, h.logger, "list credentials", err)
		return
	}

	resp := make([]CredentialResponse, 0, len(creds))
	for _, c := range creds {
		resp = append(resp, toCredentialResponse(c))
	}

	writeJSON(w, http.StatusOK, resp)
}

// LinkCredential validates a token with its panel and stores it.
func (h *Handler) LinkCredential(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cred, err := h.links.Link(r.Context(), r.PathValue("user"), req.PanelURL, req.Token, req.Label)
	if err != nil {
		writeServiceError(w, h.logger, "link credential", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(cred))
}

// UnlinkCredential removes the credential named by the panel_url and label
// query parameters; without a label the group default is removed.
func (h *Handler) UnlinkCredential(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	n, err := h.vault.Delete(r.Context(), r.PathValue("user"), q.Get("panel_url"), q.Get("label"))
	if err != nil {
		writeServiceError(w, h.logger, "unlink credential", err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Removed: n})
}

// SetDefaultCredential moves the group default to the labeled credential.
func (h *Handler) SetDefaultCredential(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ok, err := h.vault.SetDefault(r.Context(), r.PathValue("user"), req.PanelURL, req.Label)
	if err != nil {
		writeServiceError(w, h.logger, "set default", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no credential with that label")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RevealCredential returns the plaintext token of the selected credential.
func (h *Handler) RevealCredential(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cred, token, err := h.vault.RevealCredential(r.Context(), r.PathValue("user"), req.PanelURL, req.Label)
	if err != nil {
		writeServiceError(w, h.logger, "reveal credential", err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, RevealResponse{Token: token, Credential: toCredentialResponse(cred)})
}

// VerifyCredential re-validates the selected credential with its panel.
func (h *Handler) VerifyCredential(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cred, err := h.links.Verify(r.Context(), r.PathValue("user"), req.PanelURL, req.Label)
	if err != nil {
		writeServiceError(w, h.logger, "verify credential", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// WipeUser removes every credential of the user.
func (h *Handler) WipeUser(w http.ResponseWriter, r *http.Request) {
	n, err := h.vault.WipeUser(r.Context(), r.PathValue("user"))
	if err != nil {
		writeServiceError(w, h.logger, "wipe user", err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Removed: n})
}

// ListPanels returns the panels the user has credentials for.
func (h *Handler) ListPanels(w http.ResponseWriter, r *http.Request) {
	panels, err := h.vault.Panels(r.Context(), r.PathValue("user"))
	if err != nil {
		writeServiceError(w, h.logger, "list panels", err)
		return
	}

	writeJSON(w, http.StatusOK, panels)
}

// Resolve resolves the ref query parameter to a server and panel.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.Resolve(r.Context(), r.PathValue("user"), r.URL.Query().Get("ref"))
	if err != nil {
		writeServiceError(w, h.logger, "resolve", err)
		return
	}

	writeJSON(w, http.StatusOK, toResolutionResponse(res))
}

// Purge runs one purge sweep now.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	removed, ran := h.purge.RunOnce(r.Context())
	writeJSON(w, http.StatusOK, PurgeResponse{Removed: removed, Ran: ran})
}

// WipeAll removes every credential in the vault.
func (h *Handler) WipeAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.vault.WipeAll(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "wipe all", err)
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Removed: n})
}

// Health reports liveness and storage reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Time:   time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

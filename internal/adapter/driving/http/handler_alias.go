package httphandler

import (
	"net/http"
)

// ListAliases returns every alias ordered by name.
func (h *Handler) ListAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.aliases.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list aliases", err)
		return
	}

	resp := make([]AliasResponse, 0, len(aliases))
	for _, a := range aliases {
		resp = append(resp, toAliasResponse(a))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetAlias returns a single alias.
func (h *Handler) GetAlias(w http.ResponseWriter, r *http.Request) {
	alias, err := h.aliases.Get(r.Context(), r.PathValue("alias"))
	if err != nil {
		writeServiceError(w, h.logger, "get alias", err)
		return
	}

	writeJSON(w, http.StatusOK, toAliasResponse(alias))
}

// SetAlias creates or replaces an alias.
func (h *Handler) SetAlias(w http.ResponseWriter, r *http.Request) {
	var req SetAliasRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	alias, err := h.aliases.Set(r.Context(), r.PathValue("alias"), req.ServerUUID, req.PanelURL)
	if err != nil {
		writeServiceError(w, h.logger, "set alias", err)
		return
	}

	writeJSON(w, http.StatusOK, toAliasResponse(alias))
}

// DeleteAlias removes an alias.
func (h *Handler) DeleteAlias(w http.ResponseWriter, r *http.Request) {
	if err := h.aliases.Delete(r.Context(), r.PathValue("alias")); err != nil {
		writeServiceError(w, h.logger, "delete alias", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps an application error onto its HTTP status.
// Validation is checked first: a token the panel rejected at link time is a
// validation error that also wraps the upstream cause.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicateLabel):
		writeError(w, http.StatusConflict, "label already linked for this panel")
	case errors.Is(err, model.ErrUpstream):
		logger.Warn("panel request failed", "op", op, "error", err)
		writeError(w, http.StatusBadGateway, "panel request failed")
	case errors.Is(err, model.ErrCrypto):
		logger.Error("credential decryption failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "credential could not be decrypted")
	default:
		logger.Error("request failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// CredentialResponse is the JSON representation of a credential. The
// ciphertext is never exposed.
type CredentialResponse struct {
	ID             int64   `json:"id"`
	PanelURL       string  `json:"panel_url"`
	Label          string  `json:"label,omitempty"`
	KeyVersion     int     `json:"key_version"`
	Fingerprint    string  `json:"fingerprint"`
	IsDefault      bool    `json:"is_default"`
	Revoked        bool    `json:"revoked"`
	CreatedAt      string  `json:"created_at"`
	LastVerifiedAt *string `json:"last_verified_at"`
	LastUsedAt     *string `json:"last_used_at"`
}

// LinkRequest is the JSON body for the link endpoint.
type LinkRequest struct {
	PanelURL string `json:"panel_url"`
	Token    string `json:"token"`
	Label    string `json:"label"`
}

// SelectRequest names a credential within a group. An empty label selects
// the group default.
type SelectRequest struct {
	PanelURL string `json:"panel_url"`
	Label    string `json:"label"`
}

// RevealResponse carries a plaintext token with the credential it came from.
type RevealResponse struct {
	Token      string             `json:"token"`
	Credential CredentialResponse `json:"credential"`
}

// CountResponse reports how many rows an operation removed.
type CountResponse struct {
	Removed int64 `json:"removed"`
}

// ResolutionResponse is the JSON representation of a resolved reference.
type ResolutionResponse struct {
	ServerUUID string  `json:"server_uuid"`
	PanelURL   *string `json:"panel_url"`
	Source     string  `json:"source"`
}

// AliasResponse is the JSON representation of a server alias.
type AliasResponse struct {
	Alias      string  `json:"alias"`
	ServerUUID string  `json:"server_uuid"`
	PanelURL   *string `json:"panel_url"`
}

// SetAliasRequest is the JSON body for the set alias endpoint.
type SetAliasRequest struct {
	ServerUUID string `json:"server_uuid"`
	PanelURL   string `json:"panel_url"`
}

// PurgeResponse reports the outcome of a manual purge.
type PurgeResponse struct {
	Removed int64 `json:"removed"`
	Ran     bool  `json:"ran"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// toCredentialResponse converts a domain Credential to its JSON response representation.
func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		ID:             c.ID,
		PanelURL:       c.PanelURL,
		Label:          c.Label,
		KeyVersion:     c.KeyVersion,
		Fingerprint:    c.Fingerprint,
		IsDefault:      c.IsDefault,
		Revoked:        c.Revoked,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339),
		LastVerifiedAt: formatTimePtr(c.LastVerifiedAt),
		LastUsedAt:     formatTimePtr(c.LastUsedAt),
	}
}

func toResolutionResponse(r model.Resolution) ResolutionResponse {
	return ResolutionResponse{
		ServerUUID: r.ServerUUID,
		PanelURL:   stringPtr(r.PanelURL),
		Source:     string(r.Source),
	}
}

func toAliasResponse(a model.Alias) AliasResponse {
	return AliasResponse{
		Alias:      a.Name,
		ServerUUID: a.ServerUUID,
		PanelURL:   stringPtr(a.PanelURL),
	}
}

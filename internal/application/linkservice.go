package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// LinkService links credentials only after the panel accepts them, and
// re-verifies linked credentials on demand.
type LinkService struct {
	vault   *Vault
	probe   driven.PanelProbe
	logger  *slog.Logger
	metrics *Metrics
}

// NewLinkService creates a LinkService.
func NewLinkService(vault *Vault, probe driven.PanelProbe, logger *slog.Logger, metrics *Metrics) *LinkService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkService{vault: vault, probe: probe, logger: logger, metrics: metrics.orNop()}
}

// Link validates token against the panel, stores it and stamps the
// verification time. A token the panel rejects is a validation error and is
// never stored.
func (s *LinkService) Link(ctx context.Context, userID, panelURL, token, label string) (model.Credential, error) {
	cred, err := s.link(ctx, userID, panelURL, token, label)
	s.metrics.Links.WithLabelValues(errorClass(err)).Inc()
	return cred, err
}

func (s *LinkService) link(ctx context.Context, userID, panelURL, token, label string) (model.Credential, error) {
	if err := validateUserID(userID); err != nil {
		return model.Credential{}, err
	}
	panel, err := model.NormalizePanelURL(panelURL)
	if err != nil {
		return model.Credential{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Credential{}, model.ErrEmptyToken
	}
	if err := s.vault.validateLabel(label, true); err != nil {
		return model.Credential{}, err
	}

	if err := s.probe.ValidateToken(ctx, panel, token); err != nil {
		s.logger.Info("token rejected at link", "user_id", userID, "panel", panel, "error", err)
		return model.Credential{}, fmt.Errorf("%w: panel did not accept the token: %w", model.ErrValidation, err)
	}

	cred, err := s.vault.Link(ctx, userID, panel, token, label)
	if err != nil {
		return model.Credential{}, err
	}

	verifiedAt, err := s.vault.MarkVerified(ctx, cred.ID)
	if err != nil {
		// The row exists; a missing verification stamp only affects display.
		s.logger.Warn("could not stamp verification time", "credential_id", cred.ID, "error", err)
		return cred, nil
	}
	cred.LastVerifiedAt = &verifiedAt

	return cred, nil
}

// Verify re-checks the credential Reveal would choose. A token the panel now
// rejects is revoked so the next purge removes it; model.ErrUnauthorized is
// returned in that case. Other upstream failures leave the row untouched.
func (s *LinkService) Verify(ctx context.Context, userID, panelURL, label string) (model.Credential, error) {
	cred, token, err := s.vault.RevealCredential(ctx, userID, panelURL, label)
	if err != nil {
		return model.Credential{}, err
	}

	err = s.probe.ValidateToken(ctx, cred.PanelURL, token)
	switch {
	case err == nil:
		verifiedAt, err := s.vault.MarkVerified(ctx, cred.ID)
		if err != nil {
			return model.Credential{}, err
		}
		cred.LastVerifiedAt = &verifiedAt
		return cred, nil

	case errors.Is(err, model.ErrUnauthorized):
		if revokeErr := s.vault.Revoke(ctx, cred.ID); revokeErr != nil {
			return model.Credential{}, errors.Join(err, revokeErr)
		}
		cred.Revoked = true
		return cred, fmt.Errorf("verify credential %d: %w", cred.ID, err)

	default:
		return model.Credential{}, fmt.Errorf("verify credential %d: %w", cred.ID, err)
	}
}

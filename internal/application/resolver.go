package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// TokenProvider supplies a user's token for a panel. ok is false when the
// user has no credential there.
type TokenProvider interface {
	TokenFor(ctx context.Context, userID, panelURL string) (token string, ok bool, err error)
}

// PanelLister returns the distinct panels a user has credentials for.
type PanelLister interface {
	Panels(ctx context.Context, userID string) ([]string, error)
}

const (
	probeOpServerDetails = "server_details"
	probeOpListServers   = "list_servers"
)

// panelOutcome is the result of probing one candidate panel. A panel that
// could not be probed is a non-match carrying the suppressed Cause.
type panelOutcome struct {
	Panel   string
	Server  model.PanelServer
	Matched bool
	Cause   error
}

// Resolver turns a user-supplied server reference (UUID, alias, UUID prefix
// or part of a name) into a server UUID and the panel hosting it.
//
// Panels are probed one at a time in ascending URL order and the first match
// wins. Transport failures on a panel count as "no match there"; they are
// logged and counted but never returned.
type Resolver struct {
	tokens  TokenProvider
	panels  PanelLister
	aliases driven.AliasStore
	probe   driven.PanelProbe
	logger  *slog.Logger
	metrics *Metrics
}

// NewResolver creates a Resolver.
func NewResolver(tokens TokenProvider, panels PanelLister, aliases driven.AliasStore, probe driven.PanelProbe, logger *slog.Logger, metrics *Metrics) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tokens:  tokens,
		panels:  panels,
		aliases: aliases,
		probe:   probe,
		logger:  logger,
		metrics: metrics.orNop(),
	}
}

// Resolve resolves reference for userID.
//
// A full UUID always resolves; its PanelURL is empty when no linked panel
// could be confirmed to host it. Any other reference that matches nothing
// returns model.ErrServerNotFound. Token decryption and storage failures are
// returned as-is.
func (r *Resolver) Resolve(ctx context.Context, userID, reference string) (model.Resolution, error) {
	res, err := r.resolve(ctx, userID, strings.TrimSpace(reference))

	outcome := string(res.Source)
	if err != nil {
		outcome = errorClass(err)
	}
	r.metrics.Resolves.WithLabelValues(outcome).Inc()

	return res, err
}

func (r *Resolver) resolve(ctx context.Context, userID, reference string) (model.Resolution, error) {
	if reference == "" {
		return model.Resolution{}, fmt.Errorf("%w: server reference is empty", model.ErrValidation)
	}

	if model.IsServerUUID(reference) {
		return r.resolveUUID(ctx, userID, reference)
	}
	return r.resolveName(ctx, userID, reference)
}

// resolveUUID places a full UUID on one of the user's panels.
func (r *Resolver) resolveUUID(ctx context.Context, userID, serverUUID string) (model.Resolution, error) {
	res := model.Resolution{ServerUUID: serverUUID, Source: model.ResolutionSourceUUID}

	panels, err := r.sortedPanels(ctx, userID)
	if err != nil {
		return model.Resolution{}, err
	}

	switch len(panels) {
	case 0:
		return res, nil
	case 1:
		res.PanelURL = panels[0]
		return res, nil
	}

	for _, panel := range panels {
		if ctx.Err() != nil {
			r.logger.Debug("resolve interrupted", "reference", serverUUID, "error", ctx.Err())
			break
		}

		outcome, err := r.probeDetails(ctx, userID, panel, serverUUID)
		if err != nil {
			return model.Resolution{}, err
		}
		if outcome.Matched {
			res.PanelURL = panel
			return res, nil
		}
	}

	return res, nil
}

// resolveName handles aliases, UUID prefixes and name fragments.
func (r *Resolver) resolveName(ctx context.Context, userID, reference string) (model.Resolution, error) {
	alias, err := r.aliases.GetByName(ctx, reference)
	if err != nil {
		return model.Resolution{}, fmt.Errorf("lookup alias %q: %w", reference, err)
	}

	var guess string
	if alias != nil {
		if alias.IsBound() {
			return model.Resolution{
				ServerUUID: alias.ServerUUID,
				PanelURL:   alias.PanelURL,
				Source:     model.ResolutionSourceAlias,
			}, nil
		}
		guess = alias.ServerUUID
	}

	panels, err := r.sortedPanels(ctx, userID)
	if err != nil {
		return model.Resolution{}, err
	}

	for _, panel := range panels {
		if ctx.Err() != nil {
			r.logger.Debug("resolve interrupted", "reference", reference, "error", ctx.Err())
			break
		}

		outcome, err := r.searchPanel(ctx, userID, panel, reference, guess)
		if err != nil {
			return model.Resolution{}, err
		}
		if outcome.Matched {
			source := model.ResolutionSourceSearch
			if guess != "" && outcome.Server.UUID == guess {
				source = model.ResolutionSourceAlias
			}
			return model.Resolution{
				ServerUUID: outcome.Server.UUID,
				PanelURL:   panel,
				Source:     source,
			}, nil
		}
	}

	return model.Resolution{}, fmt.Errorf("resolve %q: %w", reference, model.ErrServerNotFound)
}

// probeDetails asks one panel whether it hosts serverUUID.
func (r *Resolver) probeDetails(ctx context.Context, userID, panel, serverUUID string) (panelOutcome, error) {
	token, ok, err := r.token(ctx, userID, panel)
	if err != nil || !ok {
		return panelOutcome{Panel: panel}, err
	}

	details, err := r.probe.GetServerDetails(ctx, panel, token, serverUUID)
	if err != nil {
		return r.suppress(panel, probeOpServerDetails, err), nil
	}

	return panelOutcome{
		Panel:   panel,
		Server:  model.PanelServer{UUID: details.UUID, Identifier: details.Identifier, Name: details.Name},
		Matched: true,
	}, nil
}

// searchPanel lists the user's servers on one panel and returns the first
// that matches.
func (r *Resolver) searchPanel(ctx context.Context, userID, panel, reference, guess string) (panelOutcome, error) {
	token, ok, err := r.token(ctx, userID, panel)
	if err != nil || !ok {
		return panelOutcome{Panel: panel}, err
	}

	servers, err := r.probe.ListServers(ctx, panel, token)
	if err != nil {
		return r.suppress(panel, probeOpListServers, err), nil
	}

	server, ok := matchServer(servers, reference, guess)
	return panelOutcome{Panel: panel, Server: server, Matched: ok}, nil
}

// token fetches the user's token for panel. A context that ended while the
// token was loading is reported as "no token" so the scan stops cleanly.
func (r *Resolver) token(ctx context.Context, userID, panel string) (string, bool, error) {
	token, ok, err := r.tokens.TokenFor(ctx, userID, panel)
	if err != nil {
		if ctx.Err() != nil {
			return "", false, nil
		}
		return "", false, fmt.Errorf("token for %s: %w", panel, err)
	}
	if !ok {
		r.logger.Debug("no token for panel, skipping", "user_id", userID, "panel", panel)
	}
	return token, ok, nil
}

func (r *Resolver) suppress(panel, op string, cause error) panelOutcome {
	class := errorClass(cause)
	r.metrics.ProbeFailures.WithLabelValues(op, class).Inc()
	r.logger.Warn("panel probe failed, treating as no match",
		"panel", panel,
		"operation", op,
		"cause", class,
		"error", cause,
	)
	return panelOutcome{Panel: panel, Cause: cause}
}

func (r *Resolver) sortedPanels(ctx context.Context, userID string) ([]string, error) {
	panels, err := r.panels.Panels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list panels: %w", err)
	}
	sorted := slices.Clone(panels)
	slices.Sort(sorted)
	return slices.Compact(sorted), nil
}

// matchServer scans servers in panel order. A server matches when its UUID is
// the alias guess, its UUID starts with reference, or its name contains
// reference ignoring case.
func matchServer(servers []model.PanelServer, reference, guess string) (model.PanelServer, bool) {
	needle := strings.ToLower(reference)

	for _, s := range servers {
		if guess != "" && s.UUID == guess {
			return s, true
		}
		if strings.HasPrefix(s.UUID, reference) {
			return s, true
		}
		if strings.Contains(strings.ToLower(s.Name), needle) {
			return s, true
		}
	}

	return model.PanelServer{}, false
}

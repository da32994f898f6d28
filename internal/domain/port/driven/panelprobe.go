package driven

import (
	"context"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

// PanelProbe defines the driven port for read-only queries against a panel's
// client API. All failures wrap model.ErrUpstream; a rejected token also
// wraps model.ErrUnauthorized.
type PanelProbe interface {
	// ListServers returns every server visible to token on the panel,
	// following pagination to the last page.
	ListServers(ctx context.Context, panelURL, token string) ([]model.PanelServer, error)

	// GetServerDetails fetches one server by UUID or short identifier.
	GetServerDetails(ctx context.Context, panelURL, token, serverID string) (*model.ServerDetails, error)

	// ValidateToken checks that token is accepted by the panel.
	ValidateToken(ctx context.Context, panelURL, token string) error
}

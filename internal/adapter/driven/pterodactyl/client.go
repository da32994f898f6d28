// Package pterodactyl implements the PanelProbe port against the Pterodactyl
// client API.
package pterodactyl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
	"github.com/ericfisherdev/panelvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PanelProbe = (*Client)(nil)

const (
	acceptHeader   = "Application/vnd.pterodactyl.v1+json"
	serversPerPage = 50
	// maxPages bounds pagination against a panel that keeps returning a next link.
	maxPages = 200
	// maxErrorBody caps how much of an error response is read for logging.
	maxErrorBody = 512
)

// DefaultTimeout is the request timeout used by NewClient.
const DefaultTimeout = 30 * time.Second

// Client talks to any number of panels; the panel URL and token are supplied
// per call.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client with its own http.Client bounded by timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTPClient creates a Client using the given http.Client.
// Used by tests to target an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// serverAttributes is the subset of a server object the probe reads.
type serverAttributes struct {
	UUID        string `json:"uuid"`
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Node        string `json:"node"`
	Description string `json:"description"`
	ServerOwner bool   `json:"server_owner"`
}

type serverObject struct {
	Attributes serverAttributes `json:"attributes"`
}

type paginationLinks struct {
	Next string `json:"next"`
}

// serverListResponse covers both the documented meta.pagination.links shape
// and a top-level links object.
type serverListResponse struct {
	Data []serverObject `json:"data"`
	Meta struct {
		Pagination struct {
			Links paginationLinks `json:"links"`
		} `json:"pagination"`
	} `json:"meta"`
	Links paginationLinks `json:"links"`
}

func (r serverListResponse) nextLink() string {
	if r.Meta.Pagination.Links.Next != "" {
		return r.Meta.Pagination.Links.Next
	}
	return r.Links.Next
}

// ListServers returns every server visible to the token, following pagination
// until the panel stops returning a next link.
func (c *Client) ListServers(ctx context.Context, panelURL, token string) ([]model.PanelServer, error) {
	base, err := url.Parse(panelURL)
	if err != nil {
		return nil, fmt.Errorf("parse panel url %q: %w", panelURL, model.ErrInvalidPanelURL)
	}

	next := fmt.Sprintf("%s/api/client?per_page=%d", strings.TrimRight(panelURL, "/"), serversPerPage)
	servers := []model.PanelServer{}

	for page := 1; next != ""; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("list servers on %s: exceeded %d pages: %w", panelURL, maxPages, model.ErrUpstream)
		}

		var resp serverListResponse
		if err := c.getJSON(ctx, next, token, &resp); err != nil {
			return nil, fmt.Errorf("list servers on %s page %d: %w", panelURL, page, err)
		}

		for _, obj := range resp.Data {
			servers = append(servers, model.PanelServer{
				UUID:       obj.Attributes.UUID,
				Identifier: obj.Attributes.Identifier,
				Name:       obj.Attributes.Name,
			})
		}

		next, err = sameOriginLink(base, resp.nextLink())
		if err != nil {
			return nil, fmt.Errorf("list servers on %s page %d: %w", panelURL, page, err)
		}
	}

	return servers, nil
}

// GetServerDetails fetches a single server by UUID or short identifier.
func (c *Client) GetServerDetails(ctx context.Context, panelURL, token, serverID string) (*model.ServerDetails, error) {
	endpoint := fmt.Sprintf("%s/api/client/servers/%s", strings.TrimRight(panelURL, "/"), url.PathEscape(serverID))

	var resp serverObject
	if err := c.getJSON(ctx, endpoint, token, &resp); err != nil {
		return nil, fmt.Errorf("get server %s on %s: %w", serverID, panelURL, err)
	}

	attrs := resp.Attributes
	return &model.ServerDetails{
		UUID:        attrs.UUID,
		Identifier:  attrs.Identifier,
		Name:        attrs.Name,
		Node:        attrs.Node,
		Description: attrs.Description,
		IsOwner:     attrs.ServerOwner,
	}, nil
}

// ValidateToken checks that the panel accepts the token by reading the
// account it belongs to.
func (c *Client) ValidateToken(ctx context.Context, panelURL, token string) error {
	endpoint := strings.TrimRight(panelURL, "/") + "/api/client/account"

	var resp struct {
		Attributes struct {
			ID int64 `json:"id"`
		} `json:"attributes"`
	}
	if err := c.getJSON(ctx, endpoint, token, &resp); err != nil {
		return fmt.Errorf("validate token on %s: %w", panelURL, err)
	}

	return nil
}

// getJSON issues an authenticated GET and decodes a 2xx JSON body into out.
// Every failure wraps model.ErrUpstream; 401 and 403 wrap model.ErrUnauthorized.
func (c *Client) getJSON(ctx context.Context, endpoint, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w: %w", model.ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Debug("panel returned non-2xx",
			"url", req.URL.Redacted(),
			"status", resp.StatusCode,
			"body", string(snippet),
		)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("status %d: %w", resp.StatusCode, model.ErrUnauthorized)
		}
		return fmt.Errorf("status %d: %w", resp.StatusCode, model.ErrUpstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w: %w", model.ErrUpstream, err)
	}

	return nil
}

// sameOriginLink resolves a pagination link against the panel base and refuses
// to follow it to another scheme or host, since the bearer token goes with it.
func sameOriginLink(base *url.URL, link string) (string, error) {
	if link == "" {
		return "", nil
	}

	ref, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parse next link: %w: %w", model.ErrUpstream, err)
	}
	resolved := base.ResolveReference(ref)

	if !strings.EqualFold(resolved.Scheme, base.Scheme) || !strings.EqualFold(resolved.Host, base.Host) {
		return "", fmt.Errorf("next link leaves panel origin (%s): %w", resolved.Host, model.ErrUpstream)
	}

	return resolved.String(), nil
}

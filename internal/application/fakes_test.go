package application_test

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ericfisherdev/panelvault/internal/domain/model"
)

// --- In-memory CredentialStore ---

type fakeCredentialStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []model.Credential

	// touchErr, when set, is returned by TouchLastUsed.
	touchErr error
	// afterList runs once after the next ListByPanel, outside the lock.
	afterList func()
}

func newFakeCredentialStore() *fakeCredentialStore {
	return &fakeCredentialStore{}
}

func (s *fakeCredentialStore) Create(_ context.Context, cred model.Credential) (model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := true
	for _, r := range s.rows {
		if r.UserID != cred.UserID || r.PanelURL != cred.PanelURL {
			continue
		}
		empty = false
		if cred.Label != "" && r.Label == cred.Label {
			return model.Credential{}, fmt.Errorf("insert: %w", model.ErrDuplicateLabel)
		}
	}

	s.nextID++
	cred.ID = s.nextID
	cred.IsDefault = empty
	s.rows = append(s.rows, cred)
	return cred, nil
}

func (s *fakeCredentialStore) ListByUser(_ context.Context, userID string) ([]model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Credential{}
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeCredentialStore) ListByPanel(_ context.Context, userID, panelURL string) ([]model.Credential, error) {
	s.mu.Lock()
	out := []model.Credential{}
	for _, r := range s.rows {
		if r.UserID == userID && r.PanelURL == panelURL {
			out = append(out, r)
		}
	}
	hook := s.afterList
	s.afterList = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *fakeCredentialStore) ListPanels(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	panels := []string{}
	for _, r := range s.rows {
		if r.UserID == userID && !slices.Contains(panels, r.PanelURL) {
			panels = append(panels, r.PanelURL)
		}
	}
	slices.Sort(panels)
	return panels, nil
}

func (s *fakeCredentialStore) SetDefault(_ context.Context, userID, panelURL, label string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := -1
	for i, r := range s.rows {
		if r.UserID == userID && r.PanelURL == panelURL && r.Label == label {
			target = i
		}
	}
	if target < 0 {
		return false, nil
	}
	for i, r := range s.rows {
		if r.UserID == userID && r.PanelURL == panelURL {
			s.rows[i].IsDefault = i == target
		}
	}
	return true, nil
}

func (s *fakeCredentialStore) deleteWhere(match func(model.Credential) bool, limit int) int64 {
	var n int64
	kept := s.rows[:0]
	for _, r := range s.rows {
		if match(r) && (limit <= 0 || n < int64(limit)) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	return n
}

func (s *fakeCredentialStore) DeleteDefault(_ context.Context, userID, panelURL string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(r model.Credential) bool {
		return r.UserID == userID && r.PanelURL == panelURL && r.IsDefault
	}, 1), nil
}

func (s *fakeCredentialStore) DeleteByLabel(_ context.Context, userID, panelURL, label string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(r model.Credential) bool {
		return r.UserID == userID && r.PanelURL == panelURL && r.Label == label
	}, 0), nil
}

func (s *fakeCredentialStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(r model.Credential) bool { return r.UserID == userID }, 0), nil
}

func (s *fakeCredentialStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(model.Credential) bool { return true }, 0), nil
}

func (s *fakeCredentialStore) DeleteInactive(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteWhere(func(r model.Credential) bool {
		return r.Revoked || !r.LastActivity().After(cutoff)
	}, 0), nil
}

func (s *fakeCredentialStore) update(id int64, fn func(*model.Credential)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].ID == id {
			fn(&s.rows[i])
			return nil
		}
	}
	return fmt.Errorf("update %d: %w", id, model.ErrCredentialNotFound)
}

func (s *fakeCredentialStore) TouchLastUsed(_ context.Context, id int64, at time.Time) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	return s.update(id, func(c *model.Credential) { c.LastUsedAt = &at })
}

func (s *fakeCredentialStore) MarkVerified(_ context.Context, id int64, at time.Time) error {
	return s.update(id, func(c *model.Credential) { c.LastVerifiedAt = &at })
}

func (s *fakeCredentialStore) Revoke(_ context.Context, id int64) error {
	return s.update(id, func(c *model.Credential) { c.Revoked = true })
}

func (s *fakeCredentialStore) byID(id int64) (model.Credential, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id {
			return r, true
		}
	}
	return model.Credential{}, false
}

// setLastUsed rewrites a row's activity time for purge tests.
func (s *fakeCredentialStore) setLastUsed(id int64, at time.Time) {
	_ = s.update(id, func(c *model.Credential) { c.LastUsedAt = &at })
}

// --- AliasStore ---

type fakeAliasStore struct {
	aliases map[string]model.Alias
	getErr  error
}

func newFakeAliasStore(aliases ...model.Alias) *fakeAliasStore {
	s := &fakeAliasStore{aliases: map[string]model.Alias{}}
	for _, a := range aliases {
		s.aliases[a.Name] = a
	}
	return s
}

func (s *fakeAliasStore) Upsert(_ context.Context, alias model.Alias) error {
	s.aliases[alias.Name] = alias
	return nil
}

func (s *fakeAliasStore) GetByName(_ context.Context, name string) (*model.Alias, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	a, ok := s.aliases[name]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *fakeAliasStore) ListAll(_ context.Context) ([]model.Alias, error) {
	out := []model.Alias{}
	for _, a := range s.aliases {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b model.Alias) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *fakeAliasStore) Delete(_ context.Context, name string) error {
	if _, ok := s.aliases[name]; !ok {
		return fmt.Errorf("delete alias %q: %w", name, model.ErrNotFound)
	}
	delete(s.aliases, name)
	return nil
}

// --- PanelProbe ---

type probeCall struct {
	Op    string
	Panel string
	Token string
	ID    string
}

type mockPanelProbe struct {
	mu        sync.Mutex
	calls     []probeCall
	servers   map[string][]model.PanelServer
	listErr   map[string]error
	details   map[string]*model.ServerDetails
	detailErr map[string]error
	validate  func(panelURL, token string) error
}

func newMockPanelProbe() *mockPanelProbe {
	return &mockPanelProbe{
		servers:   map[string][]model.PanelServer{},
		listErr:   map[string]error{},
		details:   map[string]*model.ServerDetails{},
		detailErr: map[string]error{},
	}
}

func (m *mockPanelProbe) record(c probeCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockPanelProbe) ListServers(_ context.Context, panelURL, token string) ([]model.PanelServer, error) {
	m.record(probeCall{Op: "list", Panel: panelURL, Token: token})
	if err := m.listErr[panelURL]; err != nil {
		return nil, err
	}
	return m.servers[panelURL], nil
}

func (m *mockPanelProbe) GetServerDetails(_ context.Context, panelURL, token, serverID string) (*model.ServerDetails, error) {
	m.record(probeCall{Op: "details", Panel: panelURL, Token: token, ID: serverID})
	if err := m.detailErr[panelURL]; err != nil {
		return nil, err
	}
	if d, ok := m.details[panelURL]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("status 404: %w", model.ErrUpstream)
}

func (m *mockPanelProbe) ValidateToken(_ context.Context, panelURL, token string) error {
	m.record(probeCall{Op: "validate", Panel: panelURL, Token: token})
	if m.validate != nil {
		return m.validate(panelURL, token)
	}
	return nil
}

func (m *mockPanelProbe) callsOf(op string) []probeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []probeCall{}
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// --- SweepLock ---

type fakeSweepLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	acquires int
	releases int
}

func (l *fakeSweepLock) TryAcquire(_ context.Context, _ string, _ time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	l.held = true
	l.acquires++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held = false
		l.releases++
		return nil
	}, true, nil
}

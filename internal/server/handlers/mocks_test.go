package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/custadmin/internal/auth"
	"github.com/iudanet/custadmin/internal/models"
	"github.com/iudanet/custadmin/internal/server/storage"
)

var errStorageDown = errors.New("storage is down")

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// withCaller attaches an identity as the bearer middleware would
func withCaller(r *http.Request, userID string, role models.Role) *http.Request {
	return r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{
		UserID: userID,
		Role:   string(role),
		Method: auth.MethodBearer,
	}))
}

func withID(r *http.Request, id string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"id": id})
}

// mockAccountStorage is a mock implementation of AccountStorage for testing
type mockAccountStorage struct {
	mu       sync.Mutex
	accounts map[string]*models.Account // id -> Account
	err      error
}

func newMockAccountStorage(accounts ...*models.Account) *mockAccountStorage {
	m := &mockAccountStorage{accounts: make(map[string]*models.Account)}
	for _, a := range accounts {
		m.accounts[a.ID] = a
	}
	return m
}

func (m *mockAccountStorage) CreateAccount(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, a := range m.accounts {
		if a.Username == account.Username {
			return storage.ErrAccountAlreadyExists
		}
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *mockAccountStorage) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a, ok := m.accounts[id]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountStorage) GetActiveAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, a := range m.accounts {
		if a.Username == username && a.IsActive {
			cp := *a
			return &cp, nil
		}
	}
	return nil, storage.ErrAccountNotFound
}

func (m *mockAccountStorage) ListAccounts(ctx context.Context, limit, offset int) ([]*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return page(out, limit, offset), nil
}

func (m *mockAccountStorage) UpdateAccount(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.accounts[account.ID]; !ok {
		return storage.ErrAccountNotFound
	}
	cp := *account
	m.accounts[account.ID] = &cp
	return nil
}

func (m *mockAccountStorage) DeactivateAccount(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	a, ok := m.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}
	a.IsActive = false
	a.UpdatedAt = at
	return nil
}

// mockAPIKeyStorage is a mock implementation of APIKeyStorage for testing
type mockAPIKeyStorage struct {
	keys map[string]*models.APIKey // id -> APIKey
	err  error
}

func (m *mockAPIKeyStorage) LookupAPIKey(ctx context.Context, keyHash string) (*auth.KeyRecord, error) {
	for _, k := range m.keys {
		if k.KeyHash == keyHash {
			return &auth.KeyRecord{ID: k.ID, UserID: k.UserID, ExpiresAt: k.ExpiresAt, IsActive: k.IsActive}, nil
		}
	}
	return nil, nil
}

func (m *mockAPIKeyStorage) TouchAPIKey(ctx context.Context, id string, usedAt time.Time) error {
	if k, ok := m.keys[id]; ok {
		k.LastUsedAt = &usedAt
	}
	return nil
}

func (m *mockAPIKeyStorage) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	if m.err != nil {
		return m.err
	}
	m.keys[key.ID] = key
	return nil
}

func (m *mockAPIKeyStorage) ListAPIKeys(ctx context.Context, userID string) ([]*models.APIKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.APIKey
	for _, k := range m.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *mockAPIKeyStorage) RevokeAPIKey(ctx context.Context, id, userID string) error {
	if m.err != nil {
		return m.err
	}
	k, ok := m.keys[id]
	if !ok || k.UserID != userID {
		return storage.ErrAPIKeyNotFound
	}
	k.IsActive = false
	return nil
}

// mockCustomerStorage is a mock implementation of CustomerStorage for testing
type mockCustomerStorage struct {
	customers  map[string]*models.Customer
	anonymized []string
	err        error
}

func newMockCustomerStorage(customers ...*models.Customer) *mockCustomerStorage {
	m := &mockCustomerStorage{customers: make(map[string]*models.Customer)}
	for _, c := range customers {
		m.customers[c.ID] = c
	}
	return m
}

func (m *mockCustomerStorage) CreateCustomer(ctx context.Context, c *models.Customer) error {
	if m.err != nil {
		return m.err
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *mockCustomerStorage) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.customers[id]
	if !ok {
		return nil, storage.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCustomerStorage) list(deleted bool) []*models.Customer {
	var out []*models.Customer
	for _, c := range m.customers {
		if c.IsDeleted() == deleted {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockCustomerStorage) ListCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return page(m.list(false), limit, offset), nil
}

func (m *mockCustomerStorage) ListDeletedCustomers(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	return page(m.list(true), limit, offset), nil
}

func (m *mockCustomerStorage) SearchCustomers(ctx context.Context, query string, limit int) ([]*models.Customer, error) {
	if m.err != nil {
		return nil, m.err
	}
	q := strings.ToLower(query)
	var out []*models.Customer
	for _, c := range m.list(false) {
		name := strings.ToLower(c.FirstName + " " + c.LastName + " " + c.CompanyName)
		if strings.Contains(name, q) {
			out = append(out, c)
		}
	}
	return page(out, limit, 0), nil
}

func (m *mockCustomerStorage) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	if m.err != nil {
		return m.err
	}
	cur, ok := m.customers[c.ID]
	if !ok || cur.IsDeleted() {
		return storage.ErrCustomerNotFound
	}
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *mockCustomerStorage) SoftDeleteCustomer(ctx context.Context, id, deletedBy string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	c, ok := m.customers[id]
	if !ok || c.IsDeleted() {
		return storage.ErrCustomerNotFound
	}
	c.DeletedAt = &at
	c.DeletedBy = &deletedBy
	return nil
}

func (m *mockCustomerStorage) RestoreCustomer(ctx context.Context, id string, at time.Time) error {
	if m.err != nil {
		return m.err
	}
	c, ok := m.customers[id]
	if !ok {
		return storage.ErrCustomerNotFound
	}
	if !c.IsDeleted() {
		return storage.ErrCustomerNotDeleted
	}
	c.DeletedAt = nil
	c.DeletedBy = nil
	return nil
}

func (m *mockCustomerStorage) AnonymizeCustomer(ctx context.Context, c *models.Customer) error {
	if m.err != nil {
		return m.err
	}
	cur, ok := m.customers[c.ID]
	if !ok || cur.IsDeleted() {
		return storage.ErrCustomerNotFound
	}
	cp := *c
	m.customers[c.ID] = &cp
	m.anonymized = append(m.anonymized, c.ID)
	return nil
}

// mockProfileStorage is a mock implementation of ProfileStorage for testing
type mockProfileStorage struct {
	addresses     []*models.Address
	identities    []*models.Identity
	relationships []*models.Relationship
	consents      []*models.Consent
	err           error
}

func (m *mockProfileStorage) CreateAddress(ctx context.Context, a *models.Address) error {
	if m.err != nil {
		return m.err
	}
	m.addresses = append(m.addresses, a)
	return nil
}

func (m *mockProfileStorage) ListAddresses(ctx context.Context, customerID string) ([]*models.Address, error) {
	if m.err != nil {
		return nil, m.err
	}
	return filter(m.addresses, func(a *models.Address) bool { return a.CustomerID == customerID }), nil
}

func (m *mockProfileStorage) CreateIdentity(ctx context.Context, i *models.Identity) error {
	if m.err != nil {
		return m.err
	}
	for _, cur := range m.identities {
		if cur.Type == i.Type && cur.Number == i.Number && cur.IssuanceCountry == i.IssuanceCountry {
			return storage.ErrIdentityAlreadyExists
		}
	}
	m.identities = append(m.identities, i)
	return nil
}

func (m *mockProfileStorage) ListIdentities(ctx context.Context, customerID string) ([]*models.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return filter(m.identities, func(i *models.Identity) bool { return i.CustomerID == customerID }), nil
}

func (m *mockProfileStorage) CreateRelationship(ctx context.Context, r *models.Relationship) error {
	if m.err != nil {
		return m.err
	}
	m.relationships = append(m.relationships, r)
	return nil
}

func (m *mockProfileStorage) ListRelationships(ctx context.Context, customerID string) ([]*models.Relationship, error) {
	if m.err != nil {
		return nil, m.err
	}
	return filter(m.relationships, func(r *models.Relationship) bool {
		return r.FromCustomerID == customerID || r.ToCustomerID == customerID
	}), nil
}

func (m *mockProfileStorage) CreateConsent(ctx context.Context, c *models.Consent) error {
	if m.err != nil {
		return m.err
	}
	m.consents = append(m.consents, c)
	return nil
}

func (m *mockProfileStorage) ListCustomerConsents(ctx context.Context, customerID string) ([]*models.Consent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return filter(m.consents, func(c *models.Consent) bool { return c.CustomerID == customerID }), nil
}

func (m *mockProfileStorage) ListConsents(ctx context.Context, f storage.ConsentFilter) ([]*models.Consent, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := filter(m.consents, func(c *models.Consent) bool { return f.Topic == "" || c.Topic == f.Topic })
	return page(out, f.Limit, f.Offset), nil
}

func (m *mockProfileStorage) GetConsent(ctx context.Context, id string) (*models.Consent, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.consents {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, storage.ErrConsentNotFound
}

// mockPostStorage is a mock implementation of PostStorage for testing
type mockPostStorage struct {
	posts map[string]*models.Post
}

func (m *mockPostStorage) CreatePost(ctx context.Context, p *models.Post) error {
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *mockPostStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, storage.ErrPostNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPostStorage) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	out := make([]*models.Post, 0, len(m.posts))
	for _, p := range m.posts {
		out = append(out, p)
	}
	return page(out, limit, offset), nil
}

func (m *mockPostStorage) UpdatePost(ctx context.Context, p *models.Post) error {
	if _, ok := m.posts[p.ID]; !ok {
		return storage.ErrPostNotFound
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *mockPostStorage) DeletePost(ctx context.Context, id string) error {
	if _, ok := m.posts[id]; !ok {
		return storage.ErrPostNotFound
	}
	delete(m.posts, id)
	return nil
}

// mockAuditStorage is a mock implementation of AuditStorage for testing
type mockAuditStorage struct {
	entries   []*models.AuditLog
	createErr error
	lastQuery storage.AuditFilter
}

func (m *mockAuditStorage) CreateAuditLog(ctx context.Context, e *models.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockAuditStorage) GetAuditLog(ctx context.Context, id string) (*models.AuditLog, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, storage.ErrAuditLogNotFound
}

func (m *mockAuditStorage) ListAuditLogs(ctx context.Context, f storage.AuditFilter) ([]*models.AuditLog, error) {
	m.lastQuery = f
	var out []*models.AuditLog
	for _, e := range m.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.EntityID != "" && e.EntityID != f.EntityID {
			continue
		}
		out = append(out, e)
	}
	return page(out, f.Limit, f.Offset), nil
}

// mockPinger is a mock implementation of Pinger for testing
type mockPinger struct {
	err error
}

func (m mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func filter[T any](items []T, keep func(T) bool) []T {
	var out []T
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

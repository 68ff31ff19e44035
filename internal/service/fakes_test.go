package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
)

// memStore is an in-memory Store. ModifyAccount holds a single lock for the
// whole read-modify-write and discards the working copy on error.
type memStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	clients  map[int64]*models.Client
	accounts map[int64]*models.Account
	txs      []models.Transaction
	modifies int
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		clients:  map[int64]*models.Client{},
		accounts: map[int64]*models.Account{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return models.ErrDuplicate
		}
	}
	u.ID = m.id()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateClient(_ context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.id()
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memStore) GetClient(_ context.Context, id int64) (*models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListClients(_ context.Context, skip, limit int) ([]models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, skip, limit), nil
}

func (m *memStore) UpdateClient(_ context.Context, c *models.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *c
	m.clients[c.ID] = &cp
	return nil
}

func (m *memStore) DeleteClient(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return models.ErrNotFound
	}
	for _, a := range m.accounts {
		if a.ClientID == id {
			return models.ErrConflict
		}
	}
	delete(m.clients, id)
	return nil
}

func (m *memStore) CreateAccount(_ context.Context, a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[a.ClientID]; !ok {
		return models.ErrNotFound
	}
	a.ID = m.id()
	cp := *a
	m.accounts[a.ID] = &cp
	return nil
}

func (m *memStore) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAccounts(_ context.Context, skip, limit int) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, skip, limit), nil
}

func (m *memStore) ListAccountIDsByKind(_ context.Context, kind models.AccountKind) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, a := range m.accounts {
		if a.Kind == kind {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memStore) DeleteAccount(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.accounts, id)
	kept := m.txs[:0]
	for _, t := range m.txs {
		if t.AccountID != id {
			kept = append(kept, t)
		}
	}
	m.txs = kept
	return nil
}

func (m *memStore) ModifyAccount(_ context.Context, id int64, mutate repository.AccountMutation) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modifies++
	a, ok := m.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	working := *a
	entry, err := mutate(&working)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		entry.ID = m.id()
		entry.AccountID = id
		m.txs = append(m.txs, *entry)
	}
	m.accounts[id] = &working
	out := working
	return &out, nil
}

func (m *memStore) ListTransactions(_ context.Context, accountID int64) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[accountID]; !ok {
		return nil, models.ErrNotFound
	}
	out := make([]models.Transaction, 0)
	for _, t := range m.txs {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memStore) txCount(accountID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.txs {
		if t.AccountID == accountID {
			n++
		}
	}
	return n
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

type recordingNotifier struct {
	mu      sync.Mutex
	entries []models.Transaction
	err     error
}

func (n *recordingNotifier) NotifyTransaction(_ context.Context, _ *models.Account, entry *models.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, *entry)
	return n.err
}

// blockingNotifier holds each delivery until release is closed or the
// delivery context ends, and records how each one finished.
type blockingNotifier struct {
	release chan struct{}

	mu   sync.Mutex
	errs []error
}

func (n *blockingNotifier) NotifyTransaction(ctx context.Context, _ *models.Account, _ *models.Transaction) error {
	var err error
	select {
	case <-n.release:
	case <-ctx.Done():
		err = ctx.Err()
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
	return err
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (d *memDenylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked == nil {
		d.revoked = map[string]time.Duration{}
	}
	d.revoked[tokenID] = ttl
	return nil
}

func (d *memDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}

// stepClock returns strictly increasing times one second apart.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		JWTTTL:    30 * time.Minute,
	}
}

func newTestService(store *memStore, cfg *config.Config, opts ...Option) *Service {
	clock := &stepClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithBcryptCost(bcrypt.MinCost)}, opts...)
	return NewService(store, testLogger(), cfg, opts...)
}

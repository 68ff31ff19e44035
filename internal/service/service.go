package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/bank-ledger/internal/config"
	"github.com/Dan9191/bank-ledger/internal/models"
	"github.com/Dan9191/bank-ledger/internal/repository"
)

// UserStore persists back-office operators.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
}

// ClientStore persists client identity records.
type ClientStore interface {
	CreateClient(ctx context.Context, client *models.Client) error
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	ListClients(ctx context.Context, skip, limit int) ([]models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) error
	DeleteClient(ctx context.Context, id int64) error
}

// AccountStore persists accounts and their ledger.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context, skip, limit int) ([]models.Account, error)
	ListAccountIDsByKind(ctx context.Context, kind models.AccountKind) ([]int64, error)
	DeleteAccount(ctx context.Context, id int64) error
	ModifyAccount(ctx context.Context, id int64, mutate repository.AccountMutation) (*models.Account, error)
	ListTransactions(ctx context.Context, accountID int64) ([]models.Transaction, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	UserStore
	ClientStore
	AccountStore
}

// Notifier is told about committed deposits and withdrawals.
type Notifier interface {
	NotifyTransaction(ctx context.Context, account *models.Account, entry *models.Transaction) error
}

// KeyRateSource provides the central bank key rate in percent.
type KeyRateSource interface {
	GetKeyRate(ctx context.Context) (decimal.Decimal, error)
}

// Denylist tracks revoked token ids until they expire.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Service handles business logic
type Service struct {
	store  Store
	log    *logrus.Logger
	config *config.Config

	notifier   Notifier
	notifySem  chan struct{}
	notifyWG   sync.WaitGroup
	notifyTTL  time.Duration
	denylist   Denylist
	rates      KeyRateSource
	now        func() time.Time
	bcryptCost int
}

// Option customizes a Service.
type Option func(*Service)

// WithNotifier enables transaction notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithDenylist enables token revocation on logout.
func WithDenylist(d Denylist) Option {
	return func(s *Service) { s.denylist = d }
}

// WithKeyRateSource lets savings accounts default to the key rate when
// SavingsDefaultKeyRate is enabled.
func WithKeyRateSource(r KeyRateSource) Option {
	return func(s *Service) { s.rates = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

const (
	defaultNotifyTimeout   = 10 * time.Second
	defaultNotifyQueueSize = 32
)

// NewService initializes a new service
func NewService(store Store, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	queueSize := cfg.NotifyQueueSize
	if queueSize <= 0 {
		queueSize = defaultNotifyQueueSize
	}
	notifyTTL := cfg.NotifyTimeout
	if notifyTTL <= 0 {
		notifyTTL = defaultNotifyTimeout
	}

	s := &Service{
		store:      store,
		log:        log,
		config:     cfg,
		notifySem:  make(chan struct{}, queueSize),
		notifyTTL:  notifyTTL,
		now:        func() time.Time { return time.Now().UTC() },
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const (
	defaultPageSize = 100
	maxPageSize     = 100
)

func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return skip, limit
}

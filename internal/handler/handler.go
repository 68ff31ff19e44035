package handler

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// AuthService covers registration and token lifecycle.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Authenticate(ctx context.Context, token string) (*models.Principal, error)
	Logout(ctx context.Context, p *models.Principal) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

type ClientService interface {
	CreateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	GetClient(ctx context.Context, id int64) (*models.Client, error)
	ListClients(ctx context.Context, skip, limit int) ([]models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	DeleteClient(ctx context.Context, id int64) error
}

type AccountService interface {
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context, skip, limit int) ([]models.Account, error)
	UpdateAccountLimits(ctx context.Context, id int64, rate, overdraft decimal.NullDecimal) (*models.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

type LedgerService interface {
	Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Account, error)
	Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Account, error)
	AccrueInterest(ctx context.Context, accountID int64) (*models.Account, error)
	ListTransactions(ctx context.Context, accountID int64) ([]models.Transaction, error)
}

// Service is everything the HTTP layer needs from the business layer.
type Service interface {
	AuthService
	ClientService
	AccountService
	LedgerService
}

// KeyRateProvider returns the current central bank key rate.
type KeyRateProvider interface {
	GetKeyRate(ctx context.Context) (decimal.Decimal, error)
}

type Handler struct {
	svc      Service
	rates    KeyRateProvider
	log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler creates a handler. rates may be nil, in which case /key-rate is unavailable.
func NewHandler(svc Service, rates KeyRateProvider, log *logrus.Logger) *Handler {
	return &Handler{
		svc:      svc,
		rates:    rates,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

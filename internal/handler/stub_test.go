package handler

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-ledger/internal/models"
)

const validToken = "valid-token"

// stubService answers from canned values. Unset behaviour reports ErrNotFound.
type stubService struct {
	accounts map[int64]*models.Account
	clients  map[int64]*models.Client
	txs      map[int64][]models.Transaction

	ledgerErr   error
	lastAmount  decimal.Decimal
	loggedOut   bool
	registerErr error
	deleteErr   error
	updated     *models.Client
}

func newStubService() *stubService {
	return &stubService{
		accounts: map[int64]*models.Account{},
		clients:  map[int64]*models.Client{},
		txs:      map[int64][]models.Transaction{},
	}
}

func (s *stubService) Register(_ context.Context, username, _ string) (*models.User, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &models.User{ID: 1, Username: username}, nil
}

func (s *stubService) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if username != "alice" || password != "correct-horse" {
		return "", time.Time{}, models.ErrUnauthorized
	}
	return validToken, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func (s *stubService) Authenticate(_ context.Context, token string) (*models.Principal, error) {
	if token != validToken {
		return nil, models.ErrUnauthorized
	}
	return &models.Principal{UserID: 1, Username: "alice", TokenID: "jti-1"}, nil
}

func (s *stubService) Logout(context.Context, *models.Principal) error {
	s.loggedOut = true
	return nil
}

func (s *stubService) GetUser(_ context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id, Username: "alice"}, nil
}

func (s *stubService) CreateClient(_ context.Context, c *models.Client) (*models.Client, error) {
	c.ID = int64(len(s.clients) + 1)
	s.clients[c.ID] = c
	return c, nil
}

func (s *stubService) GetClient(_ context.Context, id int64) (*models.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return c, nil
}

func (s *stubService) ListClients(context.Context, int, int) ([]models.Client, error) {
	return nil, nil
}

func (s *stubService) UpdateClient(_ context.Context, c *models.Client) (*models.Client, error) {
	if _, ok := s.clients[c.ID]; !ok {
		return nil, models.ErrNotFound
	}
	s.updated = c
	return c, nil
}

func (s *stubService) DeleteClient(context.Context, int64) error {
	return s.deleteErr
}

func (s *stubService) CreateAccount(_ context.Context, a *models.Account) (*models.Account, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	a.ID = int64(len(s.accounts) + 1)
	s.accounts[a.ID] = a
	return a, nil
}

func (s *stubService) GetAccount(_ context.Context, id int64) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return a, nil
}

func (s *stubService) ListAccounts(context.Context, int, int) ([]models.Account, error) {
	out := make([]models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubService) UpdateAccountLimits(_ context.Context, id int64, rate, overdraft decimal.NullDecimal) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	a.InterestRate, a.OverdraftLimit = rate, overdraft
	return a, nil
}

func (s *stubService) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := s.accounts[id]; !ok {
		return models.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *stubService) Deposit(_ context.Context, id int64, amount decimal.Decimal) (*models.Account, error) {
	return s.apply(id, amount, amount)
}

func (s *stubService) Withdraw(_ context.Context, id int64, amount decimal.Decimal) (*models.Account, error) {
	return s.apply(id, amount, amount.Neg())
}

func (s *stubService) apply(id int64, amount, delta decimal.Decimal) (*models.Account, error) {
	s.lastAmount = amount
	if s.ledgerErr != nil {
		return nil, s.ledgerErr
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	a.Balance = a.Balance.Add(delta)
	return a, nil
}

func (s *stubService) AccrueInterest(_ context.Context, id int64) (*models.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if a.Kind != models.AccountSavings {
		return nil, models.ErrInvalidState
	}
	a.Balance = a.Balance.Add(a.Balance.Mul(a.InterestRate.Decimal).Div(decimal.NewFromInt(100)).Round(2))
	return a, nil
}

func (s *stubService) ListTransactions(_ context.Context, id int64) ([]models.Transaction, error) {
	if _, ok := s.accounts[id]; !ok {
		return nil, models.ErrNotFound
	}
	return s.txs[id], nil
}

type stubRates struct {
	rate decimal.Decimal
	err  error
}

func (r stubRates) GetKeyRate(context.Context) (decimal.Decimal, error) {
	return r.rate, r.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

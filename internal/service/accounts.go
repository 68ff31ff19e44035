package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// CreateAccount opens an account for an existing client
func (s *Service) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if !models.HasScale(account.Balance, models.MoneyScale) {
		return nil, fmt.Errorf("%w: balance has more than %d decimal places", models.ErrInvalidAmount, models.MoneyScale)
	}
	s.applyDefaultRate(ctx, account)
	if err := account.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"account_id": account.ID,
		"client_id":  account.ClientID,
		"kind":       account.Kind,
	}).Info("Account created")
	return account, nil
}

// applyDefaultRate sets a missing savings rate to the current key rate. An
// unavailable key rate leaves the rate unset rather than failing the account.
func (s *Service) applyDefaultRate(ctx context.Context, account *models.Account) {
	if account.Kind != models.AccountSavings || account.InterestRate.Valid {
		return
	}
	if !s.config.SavingsDefaultKeyRate || s.rates == nil {
		return
	}

	rate, err := s.rates.GetKeyRate(ctx)
	if err != nil {
		s.log.WithError(err).WithField("client_id", account.ClientID).
			Warn("Key rate unavailable, opening savings account without interest rate")
		return
	}
	account.InterestRate = decimal.NewNullDecimal(rate.Round(models.RateScale))
}

// GetAccount returns one account
func (s *Service) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

// ListAccounts returns a page of accounts
func (s *Service) ListAccounts(ctx context.Context, skip, limit int) ([]models.Account, error) {
	skip, limit = normalizePage(skip, limit)
	return s.store.ListAccounts(ctx, skip, limit)
}

// UpdateAccountLimits changes the kind-specific limits of an account. Kind,
// owner and balance cannot be changed here.
func (s *Service) UpdateAccountLimits(ctx context.Context, id int64, rate, overdraft decimal.NullDecimal) (*models.Account, error) {
	account, err := s.store.ModifyAccount(ctx, id, func(a *models.Account) (*models.Transaction, error) {
		a.InterestRate = rate
		a.OverdraftLimit = overdraft
		if err := a.Validate(); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("update account %d: %w", id, err)
	}
	s.log.Infof("Account limits updated: %d", id)
	return account, nil
}

// DeleteAccount removes an account together with its transactions
func (s *Service) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Account deleted: %d", id)
	return nil
}

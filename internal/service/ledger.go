package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/bank-ledger/internal/models"
)

var hundred = decimal.NewFromInt(100)

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", models.ErrInvalidAmount)
	}
	if !models.HasScale(amount, models.MoneyScale) {
		return fmt.Errorf("%w: amount has more than %d decimal places", models.ErrInvalidAmount, models.MoneyScale)
	}
	if !models.InMoneyRange(amount) {
		return fmt.Errorf("%w: amount must be below %s", models.ErrInvalidAmount, models.MaxMoney)
	}
	return nil
}

// Deposit credits the account and records a DEPOSIT transaction in one unit.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var entry *models.Transaction
	account, err := s.store.ModifyAccount(ctx, accountID, func(a *models.Account) (*models.Transaction, error) {
		next := a.Balance.Add(amount)
		if !models.InMoneyRange(next) {
			return nil, fmt.Errorf("%w: balance would exceed %s", models.ErrInvalidAmount, models.MaxMoney)
		}
		a.Balance = next
		entry = &models.Transaction{Kind: models.TransactionDeposit, Amount: amount, CreatedAt: s.now()}
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("deposit to account %d: %w", accountID, err)
	}

	s.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     amount.String(),
		"balance":    account.Balance.String(),
	}).Info("Deposit recorded")
	s.notify(ctx, account, entry)
	return account, nil
}

// Withdraw debits the account and records a WITHDRAWAL transaction. The limit
// check runs on the locked row before anything is written, so a rejected
// withdrawal leaves neither a balance change nor a transaction behind.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*models.Account, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var entry *models.Transaction
	account, err := s.store.ModifyAccount(ctx, accountID, func(a *models.Account) (*models.Transaction, error) {
		floor, bounded, err := s.withdrawalFloor(a)
		if err != nil {
			return nil, err
		}
		next := a.Balance.Sub(amount)
		if !models.InMoneyRange(next) {
			return nil, fmt.Errorf("%w: balance would exceed %s", models.ErrInvalidAmount, models.MaxMoney)
		}
		if bounded && next.LessThan(floor) {
			return nil, fmt.Errorf("%w: balance %s, amount %s, floor %s",
				models.ErrLimitExceeded, a.Balance, amount, floor)
		}
		a.Balance = next
		entry = &models.Transaction{Kind: models.TransactionWithdrawal, Amount: amount, CreatedAt: s.now()}
		return entry, nil
	})
	if err != nil {
		if errors.Is(err, models.ErrLimitExceeded) {
			s.log.WithFields(logrus.Fields{
				"account_id": accountID,
				"amount":     amount.String(),
			}).Warn("Withdrawal rejected")
		}
		return nil, fmt.Errorf("withdraw from account %d: %w", accountID, err)
	}

	s.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     amount.String(),
		"balance":    account.Balance.String(),
	}).Info("Withdrawal recorded")
	s.notify(ctx, account, entry)
	return account, nil
}

// withdrawalFloor reports the lowest balance a withdrawal may leave behind.
// bounded is false when the account kind imposes no floor.
func (s *Service) withdrawalFloor(a *models.Account) (floor decimal.Decimal, bounded bool, err error) {
	switch a.Kind {
	case models.AccountChecking:
		return a.OverdraftFloor(), true, nil
	case models.AccountSavings:
		if s.config.SavingsZeroFloor {
			return decimal.Zero, true, nil
		}
		return decimal.Zero, false, nil
	default:
		return decimal.Zero, false, fmt.Errorf("%w: unknown account kind %q", models.ErrInvalidState, a.Kind)
	}
}

// AccrueInterest applies one simple interest period to a savings account.
// No transaction is recorded for interest.
func (s *Service) AccrueInterest(ctx context.Context, accountID int64) (*models.Account, error) {
	var interest decimal.Decimal
	account, err := s.store.ModifyAccount(ctx, accountID, func(a *models.Account) (*models.Transaction, error) {
		switch a.Kind {
		case models.AccountSavings:
		case models.AccountChecking:
			return nil, fmt.Errorf("%w: account %d is not a savings account", models.ErrInvalidState, a.ID)
		default:
			return nil, fmt.Errorf("%w: unknown account kind %q", models.ErrInvalidState, a.Kind)
		}
		// A null rate accrues nothing.
		rate := a.InterestRate.Decimal
		interest = a.Balance.Mul(rate).Div(hundred).Round(models.MoneyScale)
		next := a.Balance.Add(interest)
		if !models.InMoneyRange(next) {
			return nil, fmt.Errorf("%w: balance would exceed %s", models.ErrLimitExceeded, models.MaxMoney)
		}
		a.Balance = next
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("accrue interest on account %d: %w", accountID, err)
	}

	s.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"interest":   interest.String(),
		"balance":    account.Balance.String(),
	}).Info("Interest accrued")
	return account, nil
}

// AccrueAllSavings accrues interest on every savings account, each in its own
// unit. Failures on one account are logged and do not stop the batch.
func (s *Service) AccrueAllSavings(ctx context.Context) (accrued, failed int, err error) {
	ids, err := s.store.ListAccountIDsByKind(ctx, models.AccountSavings)
	if err != nil {
		return 0, 0, fmt.Errorf("list savings accounts: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return accrued, failed, err
		}
		if _, err := s.AccrueInterest(ctx, id); err != nil {
			failed++
			s.log.WithError(err).WithField("account_id", id).Error("Failed to accrue interest")
			continue
		}
		accrued++
	}
	return accrued, failed, nil
}

// ListTransactions returns the account's transactions, most recent first.
func (s *Service) ListTransactions(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of account %d: %w", accountID, err)
	}
	return txs, nil
}

// notify hands a committed entry to the notifier in the background. It never
// blocks the caller: when NotifyQueueSize deliveries are already in flight the
// notification is dropped. Each delivery gets its own NotifyTimeout deadline
// and outlives cancellation of the request context.
func (s *Service) notify(ctx context.Context, account *models.Account, entry *models.Transaction) {
	if s.notifier == nil || entry == nil {
		return
	}

	select {
	case s.notifySem <- struct{}{}:
	default:
		s.log.WithFields(logrus.Fields{
			"account_id":     account.ID,
			"transaction_id": entry.ID,
		}).Warn("Notification queue full, dropping transaction notification")
		return
	}

	accountCopy, entryCopy := *account, *entry
	sendCtx := context.WithoutCancel(ctx)

	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()
		defer func() { <-s.notifySem }()

		ctx, cancel := context.WithTimeout(sendCtx, s.notifyTTL)
		defer cancel()
		if err := s.notifier.NotifyTransaction(ctx, &accountCopy, &entryCopy); err != nil {
			s.log.WithError(err).WithField("account_id", accountCopy.ID).Warn("Failed to send transaction notification")
		}
	}()
}

// WaitNotifications blocks until background notifications finish or ctx is done.
func (s *Service) WaitNotifications(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifyWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

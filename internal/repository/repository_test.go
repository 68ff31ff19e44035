package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/bank-ledger/internal/models"
)

var accountColumns = []string{"id", "client_id", "kind", "balance", "interest_rate", "overdraft_limit", "created_at", "updated_at"}

// decimalArg matches a driver value holding the given decimal amount.
type decimalArg string

func (d decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(string(d)))
}

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func withdrawMutation(amount decimal.Decimal, at time.Time) AccountMutation {
	return func(a *models.Account) (*models.Transaction, error) {
		next := a.Balance.Sub(amount)
		if next.LessThan(a.OverdraftFloor()) {
			return nil, models.ErrLimitExceeded
		}
		a.Balance = next
		return &models.Transaction{Kind: models.TransactionWithdrawal, Amount: amount, CreatedAt: at}, nil
	}
}

func TestModifyAccountCommitsEntryAndBalance(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM accounts WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(1), int64(7), "CHECKING", "100.00", nil, "50.00", now, now))
	mock.ExpectQuery(q("INSERT INTO transactions")).
		WithArgs(int64(1), "WITHDRAWAL", decimalArg("140"), now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(q("UPDATE accounts")).
		WithArgs(decimalArg("-40"), nil, decimalArg("50"), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	account, err := repo.ModifyAccount(context.Background(), 1, withdrawMutation(decimal.NewFromInt(140), now))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(decimal.NewFromInt(-40)))
	assert.Equal(t, models.AccountChecking, account.Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModifyAccountRollsBackRejectedMutation(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(1), int64(7), "CHECKING", "-50.00", nil, "50.00", now, now))
	mock.ExpectRollback()

	_, err := repo.ModifyAccount(context.Background(), 1, withdrawMutation(decimal.NewFromInt(1), now))
	assert.ErrorIs(t, err, models.ErrLimitExceeded)
	// No INSERT INTO transactions was issued.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModifyAccountNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectRollback()

	called := false
	_, err := repo.ModifyAccount(context.Background(), 9, func(*models.Account) (*models.Transaction, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModifyAccountRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow(int64(1), int64(7), "CHECKING", "100.00", nil, nil, now, now))
	mock.ExpectQuery(q("INSERT INTO transactions")).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.ModifyAccount(context.Background(), 1, withdrawMutation(decimal.NewFromInt(10), now))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record transaction")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactionsMissingAccount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("SELECT EXISTS")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.ListTransactions(context.Background(), 3)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactionsNewestFirst(t *testing.T) {
	repo, mock := newMockRepo(t)
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	mock.ExpectQuery(q("SELECT EXISTS")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(q("ORDER BY created_at DESC, id DESC")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "account_id", "kind", "amount", "created_at"}).
			AddRow(int64(2), int64(3), "WITHDRAWAL", "10.00", t2).
			AddRow(int64(1), int64(3), "DEPOSIT", "25.50", t1))

	txs, err := repo.ListTransactions(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionWithdrawal, txs[0].Kind)
	assert.Equal(t, models.TransactionDeposit, txs[1].Kind)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("25.5")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccountNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(q("DELETE FROM accounts WHERE id = $1")).
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteAccount(context.Background(), 4)
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("INSERT INTO users")).
		WithArgs("alice", "hash").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.CreateUser(context.Background(), &models.User{Username: "alice", PasswordHash: "hash"})
	assert.ErrorIs(t, err, models.ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteClientWithAccounts(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(q("DELETE FROM clients")).
		WithArgs(int64(5)).
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.DeleteClient(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountUnknownClient(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(q("INSERT INTO accounts")).
		WillReturnError(&pq.Error{Code: "23503"})

	err := repo.CreateAccount(context.Background(), &models.Account{ClientID: 99, Kind: models.AccountSavings})
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
)

// AccountMutation validates and changes a locked account in memory. It may
// return one transaction to append; returning an error aborts the whole unit.
// Only balance, interest rate and overdraft limit are written back.
type AccountMutation func(account *models.Account) (*models.Transaction, error)

// ModifyAccount runs a read-modify-write on one account as a single database
// transaction. The account row is locked for the duration, so concurrent
// modifications of the same account serialize while others proceed.
func (r *Repository) ModifyAccount(ctx context.Context, id int64, mutate AccountMutation) (*models.Account, error) {
	var updated *models.Account
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		account, err := scanAccount(tx.QueryRowContext(ctx, selectAccount+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return fmt.Errorf("account %d: %w", id, err)
		}

		entry, err := mutate(account)
		if err != nil {
			return err
		}

		if entry != nil {
			entry.AccountID = account.ID
			if err := insertTransaction(ctx, tx, entry); err != nil {
				return err
			}
		}

		query := `
			UPDATE accounts
			SET balance = $1, interest_rate = $2, overdraft_limit = $3, updated_at = CURRENT_TIMESTAMP
			WHERE id = $4
			RETURNING updated_at`
		err = tx.QueryRowContext(ctx, query, account.Balance, account.InterestRate, account.OverdraftLimit, account.ID).
			Scan(&account.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update account %d: %w", account.ID, err)
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, entry *models.Transaction) error {
	query := `
		INSERT INTO transactions (account_id, kind, amount, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := tx.QueryRowContext(ctx, query, entry.AccountID, entry.Kind, entry.Amount, entry.CreatedAt).
		Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// ListTransactions returns the account's transactions, most recent first.
// A missing account yields ErrNotFound rather than an empty list.
func (r *Repository) ListTransactions(ctx context.Context, accountID int64) ([]models.Transaction, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("account %d: %w", accountID, models.ErrNotFound)
	}

	query := `
		SELECT id, account_id, kind, amount, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		var t models.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.AccountID, &kind, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if t.Kind, err = models.ParseTransactionKind(kind); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
)

const selectAccount = `
		SELECT id, client_id, kind, balance, interest_rate, overdraft_limit, created_at, updated_at
		FROM accounts`

// CreateAccount creates a new account in the database
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (client_id, kind, balance, interest_rate, overdraft_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		account.ClientID, account.Kind, account.Balance, account.InterestRate, account.OverdraftLimit).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("client %d: %w", account.ClientID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by id
func (r *Repository) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("account %d: %w", id, err)
	}
	return account, nil
}

// ListAccounts returns a page of accounts ordered by id
func (r *Repository) ListAccounts(ctx context.Context, skip, limit int) ([]models.Account, error) {
	rows, err := r.db.QueryContext(ctx, selectAccount+` ORDER BY id OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// ListAccountIDsByKind returns the ids of all accounts of the given kind
func (r *Repository) ListAccountIDsByKind(ctx context.Context, kind models.AccountKind) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM accounts WHERE kind = $1 ORDER BY id`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s accounts: %w", kind, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate account ids: %w", err)
	}
	return ids, nil
}

// DeleteAccount removes an account; its transactions go with it
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectAffected(res, fmt.Sprintf("account %d", id))
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var kind string
	err := row.Scan(&a.ID, &a.ClientID, &kind, &a.Balance, &a.InterestRate, &a.OverdraftLimit, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	if a.Kind, err = models.ParseAccountKind(kind); err != nil {
		return nil, fmt.Errorf("account %d: %w", a.ID, err)
	}
	return a, nil
}

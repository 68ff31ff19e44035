package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dan9191/bank-ledger/internal/models"
)

const selectClient = `
		SELECT id, name, surname, birth_date, address, created_at, updated_at
		FROM clients`

// CreateClient inserts a client record
func (r *Repository) CreateClient(ctx context.Context, client *models.Client) error {
	query := `
		INSERT INTO clients (name, surname, birth_date, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, client.Name, client.Surname, client.BirthDate, client.Address).
		Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// GetClient retrieves a client by id
func (r *Repository) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	client, err := scanClient(r.db.QueryRowContext(ctx, selectClient+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("client %d: %w", id, err)
	}
	return client, nil
}

// ListClients returns a page of clients ordered by id
func (r *Repository) ListClients(ctx context.Context, skip, limit int) ([]models.Client, error) {
	rows, err := r.db.QueryContext(ctx, selectClient+` ORDER BY id OFFSET $1 LIMIT $2`, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]models.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

// UpdateClient overwrites the client's identity fields
func (r *Repository) UpdateClient(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET name = $1, surname = $2, birth_date = $3, address = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
		RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, client.Name, client.Surname, client.BirthDate, client.Address, client.ID).
		Scan(&client.CreatedAt, &client.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("client %d: %w", client.ID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// DeleteClient removes a client that owns no accounts
func (r *Repository) DeleteClient(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("client %d still owns accounts: %w", id, models.ErrConflict)
		}
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return expectAffected(res, fmt.Sprintf("client %d", id))
}

func scanClient(row rowScanner) (*models.Client, error) {
	c := &models.Client{}
	err := row.Scan(&c.ID, &c.Name, &c.Surname, &c.BirthDate, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}
	return c, nil
}

func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}

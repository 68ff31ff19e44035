package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/bank-ledger/internal/models"
)

func validateClient(c *models.Client) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Surname = strings.TrimSpace(c.Surname)
	c.Address = strings.TrimSpace(c.Address)
	if c.Name == "" || c.Surname == "" {
		return fmt.Errorf("%w: name and surname are required", models.ErrValidation)
	}
	if c.BirthDate.IsZero() {
		return fmt.Errorf("%w: birth date is required", models.ErrValidation)
	}
	return nil
}

// CreateClient registers a new client
func (s *Service) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	if err := validateClient(client); err != nil {
		return nil, err
	}
	if err := s.store.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	s.log.Infof("Client created: %d", client.ID)
	return client, nil
}

// GetClient returns one client
func (s *Service) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	return s.store.GetClient(ctx, id)
}

// ListClients returns a page of clients
func (s *Service) ListClients(ctx context.Context, skip, limit int) ([]models.Client, error) {
	skip, limit = normalizePage(skip, limit)
	return s.store.ListClients(ctx, skip, limit)
}

// UpdateClient replaces a client's identity fields
func (s *Service) UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	if err := validateClient(client); err != nil {
		return nil, err
	}
	if err := s.store.UpdateClient(ctx, client); err != nil {
		return nil, err
	}
	s.log.Infof("Client updated: %d", client.ID)
	return client, nil
}

// DeleteClient removes a client without accounts
func (s *Service) DeleteClient(ctx context.Context, id int64) error {
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Client deleted: %d", id)
	return nil
}

package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-service/internal/crmmap"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

// CreateCustomer stores a customer and links it to its CRM contact when one shares its email
func (s *Service) CreateCustomer(ctx context.Context, c *models.Customer) (*models.Customer, models.SyncOutcome, error) {
	if err := validateIncomes(c.Incomes); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	if err := s.checkOrganisation(ctx, c.OrganisationID); err != nil {
		return nil, models.SyncOutcome{}, err
	}

	c.ID = uuid.Nil
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	s.log.Infof("Customer created: %s", c.ID)

	out := s.sync.AfterCustomerWrite(ctx, c, crmmap.Contacts.Present(c))
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateCustomer(ctx, c) })
	return c, out, nil
}

// UpdateCustomer merges patch into the stored customer and pushes the changed fields
func (s *Service) UpdateCustomer(ctx context.Context, id uuid.UUID, patch *models.Customer) (*models.Customer, models.SyncOutcome, error) {
	c, err := s.repo.FindCustomer(ctx, id)
	if err != nil {
		return nil, models.SyncOutcome{}, err
	}

	changed := c.Merge(patch)
	if err := validateIncomes(c.Incomes); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	if err := s.checkOrganisation(ctx, c.OrganisationID); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, models.SyncOutcome{}, err
	}

	out := s.sync.AfterCustomerWrite(ctx, c, changed)
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateCustomer(ctx, c) })
	return c, out, nil
}

// DeleteCustomer removes the customer and archives its CRM contact
func (s *Service) DeleteCustomer(ctx context.Context, id uuid.UUID) (models.SyncOutcome, error) {
	c, err := s.repo.FindCustomer(ctx, id)
	if err != nil {
		return models.SyncOutcome{}, err
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return models.SyncOutcome{}, err
	}
	s.log.Infof("Customer deleted: %s", id)
	return s.sync.ArchiveCustomer(ctx, c), nil
}

// ExportCustomer creates the CRM contact of an unlinked customer
func (s *Service) ExportCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, models.SyncOutcome, error) {
	c, err := s.repo.FindCustomer(ctx, id)
	if err != nil {
		return nil, models.SyncOutcome{}, err
	}
	out := s.sync.ExportCustomer(ctx, c)
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateCustomer(ctx, c) })
	return c, out, nil
}

func (s *Service) checkOrganisation(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.repo.FindOrganisation(ctx, *id); err != nil {
		return fmt.Errorf("%w: organisation %s: %v", models.ErrInvalidInput, id, err)
	}
	return nil
}

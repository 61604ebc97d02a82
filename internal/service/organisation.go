package service

import (
	"context"

	"github.com/Dan9191/loan-service/internal/crmmap"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

// CreateOrganisation stores an organisation and links it to the CRM company with the same domain
func (s *Service) CreateOrganisation(ctx context.Context, o *models.Organisation) (*models.Organisation, models.SyncOutcome, error) {
	o.ID = uuid.Nil
	if err := s.repo.CreateOrganisation(ctx, o); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	s.log.Infof("Organisation created: %s", o.ID)

	out := s.sync.AfterOrganisationWrite(ctx, o, crmmap.Companies.Present(o))
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateOrganisation(ctx, o) })
	return o, out, nil
}

// UpdateOrganisation merges patch into the stored organisation and pushes the changed fields
func (s *Service) UpdateOrganisation(ctx context.Context, id uuid.UUID, patch *models.Organisation) (*models.Organisation, models.SyncOutcome, error) {
	o, err := s.repo.FindOrganisation(ctx, id)
	if err != nil {
		return nil, models.SyncOutcome{}, err
	}
	changed := o.Merge(patch)
	if err := s.repo.UpdateOrganisation(ctx, o); err != nil {
		return nil, models.SyncOutcome{}, err
	}

	out := s.sync.AfterOrganisationWrite(ctx, o, changed)
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateOrganisation(ctx, o) })
	return o, out, nil
}

// ExportOrganisation creates the CRM company of an unlinked organisation
func (s *Service) ExportOrganisation(ctx context.Context, id uuid.UUID) (*models.Organisation, models.SyncOutcome, error) {
	o, err := s.repo.FindOrganisation(ctx, id)
	if err != nil {
		return nil, models.SyncOutcome{}, err
	}
	out := s.sync.ExportOrganisation(ctx, o)
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateOrganisation(ctx, o) })
	return o, out, nil
}

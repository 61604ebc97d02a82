package service

import (
	"context"
	"fmt"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/google/uuid"
)

// deriveLoanApplication recomputes the weight factor and APR from the terms
func deriveLoanApplication(a *models.LoanApplication) error {
	if err := models.ValidateLoanTerms(a.LoanAmount, a.Term, a.InterestRate); err != nil {
		return err
	}
	apr, err := utils.CalculateAPR(a.LoanAmount, a.Term, a.InterestRate, a.OriginationFee)
	if err != nil {
		return fmt.Errorf("failed to calculate apr: %w", err)
	}
	a.LoanWeightFactor = utils.CalculateLoanWeightFactor(a.LoanAmount, a.InterestRate)
	a.APR = apr
	return nil
}

// derivePackage converts the fee percentage and recomputes the weight factor and APR
func derivePackage(p *models.LoanPackage) error {
	if err := models.ValidateLoanTerms(p.LoanAmount, p.Term, p.InterestRate); err != nil {
		return err
	}
	var feePercent float64
	if p.OriginationFee != nil {
		feePercent = *p.OriginationFee
	}
	if feePercent < 0 || feePercent > 100 {
		return fmt.Errorf("%w: origination fee must be a percentage between 0 and 100", models.ErrInvalidInput)
	}

	p.TotalOriginationFee = utils.TotalOriginationFee(p.LoanAmount, feePercent)
	apr, err := utils.CalculateAPR(p.LoanAmount, p.Term, p.InterestRate, p.TotalOriginationFee)
	if err != nil {
		return fmt.Errorf("failed to calculate apr: %w", err)
	}
	p.LoanWeightFactor = utils.CalculateLoanWeightFactor(p.LoanAmount, p.InterestRate)
	p.APR = apr
	return nil
}

func validateApplication(a *models.LoanApplication) error {
	if a.Status == "" {
		a.Status = models.LoanStatusNew
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrInvalidInput, a.Status)
	}
	if a.OriginationFee < 0 {
		return fmt.Errorf("%w: origination fee must not be negative", models.ErrInvalidInput)
	}
	return nil
}

// CreateLoanApplication stores a new application. One created with a deal id
// is refreshed from that deal right away.
func (s *Service) CreateLoanApplication(ctx context.Context, a *models.LoanApplication) (*models.LoanApplication, models.SyncOutcome, error) {
	if err := validateApplication(a); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	if _, err := s.repo.FindCustomer(ctx, a.CustomerID); err != nil {
		return nil, models.SyncOutcome{}, fmt.Errorf("%w: customer %s: %v", models.ErrInvalidInput, a.CustomerID, err)
	}
	if err := deriveLoanApplication(a); err != nil {
		return nil, models.SyncOutcome{}, err
	}

	a.ID = uuid.Nil
	a.UpToDate = a.HubspotID == nil
	if err := s.repo.CreateLoanApplication(ctx, a); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	s.log.Infof("Loan application created: %s (apr %s)", a.ID, a.APR)

	out := s.sync.RefreshLoanApplication(ctx, a)
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateLoanApplication(ctx, a) })
	return a, out, nil
}

// UpdateLoanApplication applies patch, recomputes the derived figures and pushes the changes
func (s *Service) UpdateLoanApplication(ctx context.Context, id uuid.UUID, patch models.LoanApplicationPatch) (*models.LoanApplication, models.SyncOutcome, error) {
	a, err := s.repo.FindLoanApplication(ctx, id)
	if err != nil {
		return nil, models.SyncOutcome{}, err
	}

	changed := patch.Apply(a)
	if err := validateApplication(a); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	if err := deriveLoanApplication(a); err != nil {
		return nil, models.SyncOutcome{}, err
	}
	if err := s.repo.UpdateLoanApplication(ctx, a); err != nil {
		return nil, models.SyncOutcome{}, err
	}

	out := s.sync.PushLoanApplication(ctx, a, changed, patch.TermsChanged())
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateLoanApplication(ctx, a) })
	return a, out, nil
}

// ExportLoanApplication creates the CRM deal of an unlinked application
func (s *Service) ExportLoanApplication(ctx context.Context, id uuid.UUID) (*models.LoanApplication, models.SyncOutcome, error) {
	a, err := s.repo.FindLoanApplication(ctx, id)
	if err != nil {
		return nil, models.SyncOutcome{}, err
	}
	out := s.sync.ExportLoanApplication(ctx, a)
	s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateLoanApplication(ctx, a) })
	return a, out, nil
}

// ListLoanApplications returns every application. With refresh set, the ones
// not up to date are refreshed from the CRM first.
func (s *Service) ListLoanApplications(ctx context.Context, refresh bool) ([]*models.LoanApplication, []models.SyncOutcome, error) {
	outcomes := []models.SyncOutcome{}
	if refresh {
		stale, err := s.repo.ListLoanApplications(ctx, true)
		if err != nil {
			return nil, nil, err
		}
		for _, a := range stale {
			out := s.sync.RefreshLoanApplication(ctx, a)
			s.saveSynced(ctx, out, func(ctx context.Context) error { return s.repo.UpdateLoanApplication(ctx, a) })
			outcomes = append(outcomes, out)
		}
	}

	apps, err := s.repo.ListLoanApplications(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	return apps, outcomes, nil
}

// CreateLoanPackage stores a package with its derived fee, weight factor and APR
func (s *Service) CreateLoanPackage(ctx context.Context, p *models.LoanPackage) (*models.LoanPackage, error) {
	if p.OrganisationID != nil {
		if _, err := s.repo.FindOrganisation(ctx, *p.OrganisationID); err != nil {
			return nil, fmt.Errorf("%w: organisation %s: %v", models.ErrInvalidInput, p.OrganisationID, err)
		}
	}
	if err := derivePackage(p); err != nil {
		return nil, err
	}

	p.ID = uuid.Nil
	if err := s.repo.CreateLoanPackage(ctx, p); err != nil {
		return nil, err
	}
	s.log.Infof("Loan package created: %s (apr %s)", p.ID, p.APR)
	return p, nil
}

// UpdateLoanPackage applies patch and recomputes the derived figures
func (s *Service) UpdateLoanPackage(ctx context.Context, id uuid.UUID, patch models.LoanPackagePatch) (*models.LoanPackage, error) {
	p, err := s.repo.FindLoanPackage(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(p)
	if err := derivePackage(p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLoanPackage(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// QuoteAPR computes the APR and weight factor for ad hoc terms without storing anything
func (s *Service) QuoteAPR(loanAmount float64, term int, interestRate, originationFee float64) (string, float64, error) {
	apr, err := utils.CalculateAPR(loanAmount, term, interestRate, originationFee)
	if err != nil {
		return "", 0, err
	}
	return apr, utils.CalculateLoanWeightFactor(loanAmount, interestRate), nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/loan-service/internal/calculator"
	"github.com/Dan9191/loan-service/internal/integrations/cbc"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreateCreditEvaluation stores an evaluation with its figures. The SSN is
// encrypted at rest and only its last four digits are returned.
func (s *Service) CreateCreditEvaluation(ctx context.Context, e *models.CreditEvaluation) (*models.CreditEvaluation, error) {
	if err := validateIncomes(e.Incomes); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindCustomer(ctx, e.CustomerID); err != nil {
		return nil, fmt.Errorf("%w: customer %s: %v", models.ErrInvalidInput, e.CustomerID, err)
	}

	var plainSSN string
	if e.SSN != nil {
		plainSSN = *e.SSN
		encrypted, err := utils.Encrypt(plainSSN, []byte(s.config.EncryptionKey))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt ssn: %w", err)
		}
		e.SSN = &encrypted
	}
	e.CreditReport = nil
	s.buildFigures(e)

	e.ID = uuid.Nil
	if err := s.repo.CreateCreditEvaluation(ctx, e); err != nil {
		return nil, err
	}
	s.log.Infof("Credit evaluation created: %s", e.ID)

	if e.SSN != nil {
		masked := utils.MaskSSN(plainSSN)
		e.SSN = &masked
	}
	return e, nil
}

// EvaluationFigures recomputes the figures of a stored evaluation as of now.
// Unlike writes, a calculation error is returned to the caller.
func (s *Service) EvaluationFigures(ctx context.Context, id uuid.UUID) (*models.CreditEvaluation, error) {
	e, err := s.repo.FindCreditEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := calculator.BuildEvaluationFigures(e, s.now()); err != nil {
		return nil, fmt.Errorf("evaluation %s: %w", id, err)
	}
	e.SSN = s.maskStoredSSN(e.SSN)
	return e, nil
}

// PullCreditReport requests the applicant's credit report, archives the raw
// response and fills in the credit score and, when missing, the monthly debt.
func (s *Service) PullCreditReport(ctx context.Context, id uuid.UUID) (*models.CreditEvaluation, error) {
	e, err := s.repo.FindCreditEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	applicant, err := s.applicant(ctx, e)
	if err != nil {
		return nil, err
	}

	report, err := s.bureau.PullReport(ctx, applicant)
	if err != nil {
		return nil, fmt.Errorf("credit report for evaluation %s: %w", id, err)
	}

	if s.archive != nil {
		key, err := s.archive.Put(ctx, e.ID, report.Raw)
		if err != nil {
			s.log.WithError(err).WithField("evaluation_id", e.ID).Warn("Failed to archive credit report")
		} else {
			e.CreditReport = &key
		}
	}
	if report.Score != nil {
		e.CreditScore = report.Score
	}
	if e.Debt.DebtPayment == nil && report.MonthlyDebt != nil {
		e.Debt.DebtPayment = report.MonthlyDebt
	}

	s.buildFigures(e)
	if err := s.repo.UpdateCreditEvaluation(ctx, e); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"evaluation_id": e.ID,
		"has_score":     e.CreditScore != nil,
	}).Info("Credit report applied")

	e.SSN = s.maskStoredSSN(e.SSN)
	return e, nil
}

// CreditReport returns the raw archived bureau response of an evaluation
func (s *Service) CreditReport(ctx context.Context, id uuid.UUID) ([]byte, error) {
	e, err := s.repo.FindCreditEvaluation(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.CreditReport == nil || s.archive == nil {
		return nil, fmt.Errorf("%w: no archived credit report for evaluation %s", models.ErrNotFound, id)
	}
	return s.archive.Get(ctx, *e.CreditReport)
}

// buildFigures derives figures for storage. A zero monthly income leaves the
// overview empty; reading the figures reports it.
func (s *Service) buildFigures(e *models.CreditEvaluation) {
	if err := calculator.BuildEvaluationFigures(e, s.now()); err != nil {
		if !errors.Is(err, models.ErrDivisionByZero) {
			s.log.WithError(err).WithField("evaluation_id", e.ID).Warn("Evaluation figures incomplete")
			return
		}
		s.log.WithField("evaluation_id", e.ID).Debug("No monthly income, DTI not computed")
	}
}

func (s *Service) applicant(ctx context.Context, e *models.CreditEvaluation) (cbc.Applicant, error) {
	var a cbc.Applicant
	if e.SSN == nil {
		return a, fmt.Errorf("%w: evaluation has no ssn", models.ErrInvalidInput)
	}
	ssn, err := utils.Decrypt(*e.SSN, []byte(s.config.EncryptionKey))
	if err != nil {
		return a, fmt.Errorf("failed to decrypt ssn: %w", err)
	}
	a.SSN = ssn
	a.FirstName = deref(e.FirstName)
	a.LastName = deref(e.LastName)

	c, err := s.repo.FindCustomer(ctx, e.CustomerID)
	if err != nil {
		return a, err
	}
	if a.FirstName == "" {
		a.FirstName = deref(c.FirstName)
	}
	if a.LastName == "" {
		a.LastName = deref(c.LastName)
	}
	a.DateOfBirth = deref(c.DateOfBirth)
	a.Street = deref(c.Street)
	a.City = deref(c.City)
	a.State = deref(c.State)
	a.Zip = deref(c.Zip)
	return a, nil
}

func (s *Service) maskStoredSSN(encrypted *string) *string {
	if encrypted == nil {
		return nil
	}
	ssn, err := utils.Decrypt(*encrypted, []byte(s.config.EncryptionKey))
	if err != nil {
		s.log.WithError(err).Warn("Stored ssn could not be decrypted")
		return nil
	}
	masked := utils.MaskSSN(ssn)
	return &masked
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

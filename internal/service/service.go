package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/integrations/cbc"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by Login for any unknown email or wrong password
var ErrInvalidCredentials = errors.New("invalid credentials")

// Store is the persistence the service depends on
type Store interface {
	CreateCustomer(ctx context.Context, c *models.Customer) error
	FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	UpdateCustomer(ctx context.Context, c *models.Customer) error
	DeleteCustomer(ctx context.Context, id uuid.UUID) error

	CreateOrganisation(ctx context.Context, o *models.Organisation) error
	FindOrganisation(ctx context.Context, id uuid.UUID) (*models.Organisation, error)
	UpdateOrganisation(ctx context.Context, o *models.Organisation) error

	CreateLoanApplication(ctx context.Context, a *models.LoanApplication) error
	FindLoanApplication(ctx context.Context, id uuid.UUID) (*models.LoanApplication, error)
	UpdateLoanApplication(ctx context.Context, a *models.LoanApplication) error
	ListLoanApplications(ctx context.Context, staleOnly bool) ([]*models.LoanApplication, error)

	CreateLoanPackage(ctx context.Context, p *models.LoanPackage) error
	FindLoanPackage(ctx context.Context, id uuid.UUID) (*models.LoanPackage, error)
	UpdateLoanPackage(ctx context.Context, p *models.LoanPackage) error

	CreateCreditEvaluation(ctx context.Context, e *models.CreditEvaluation) error
	FindCreditEvaluation(ctx context.Context, id uuid.UUID) (*models.CreditEvaluation, error)
	UpdateCreditEvaluation(ctx context.Context, e *models.CreditEvaluation) error
}

// CreditBureau pulls credit reports
type CreditBureau interface {
	PullReport(ctx context.Context, a cbc.Applicant) (*cbc.Report, error)
}

// ReportArchive keeps raw credit reports
type ReportArchive interface {
	Put(ctx context.Context, evaluationID uuid.UUID, raw []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Service handles business logic. Every write runs validate, derive, persist
// and then hands the stored entity to the sync orchestrator.
type Service struct {
	repo    Store
	sync    *Orchestrator
	bureau  CreditBureau
	archive ReportArchive
	log     *logrus.Logger
	config  *config.Config
	now     func() time.Time
}

// NewService initializes a new service
func NewService(repo Store, sync *Orchestrator, bureau CreditBureau, archive ReportArchive, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{
		repo:    repo,
		sync:    sync,
		bureau:  bureau,
		archive: archive,
		log:     log,
		config:  cfg,
		now:     time.Now,
	}
}

// Login authenticates the operator and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	if s.config.OperatorEmail == "" || email != s.config.OperatorEmail {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.OperatorPasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(s.now().Add(s.config.TokenExpiry)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("Operator logged in: %s", email)
	return tokenString, nil
}

// saveSynced persists an entity again when the orchestrator changed it.
// The first write already stands, so a failure here is logged only.
func (s *Service) saveSynced(ctx context.Context, out models.SyncOutcome, save func(context.Context) error) {
	if !out.Mutated {
		return
	}
	if err := save(ctx); err != nil {
		s.log.WithFields(logrus.Fields{
			"entity":    out.Entity,
			"entity_id": out.EntityID,
			"action":    out.Action,
		}).WithError(err).Error("Failed to store sync result")
	}
}

// SyncHistory lists the latest sync outcomes recorded for one entity
func (s *Service) SyncHistory(ctx context.Context, entity string, id uuid.UUID, limit int64) ([]models.SyncOutcome, error) {
	switch entity {
	case EntityCustomer, EntityOrganisation, EntityLoanApplication:
	default:
		return nil, fmt.Errorf("%w: unknown entity %q", models.ErrInvalidInput, entity)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	events, err := s.sync.History(ctx, entity, id.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync history: %w", err)
	}
	return events, nil
}

func validateIncomes(records []models.IncomeRecord) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("incomes[%d]: %w", i, err)
		}
	}
	return nil
}

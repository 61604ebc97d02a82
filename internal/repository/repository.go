package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/loan-service/internal/integrations/cbc"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const (
	tableCustomers         = "loans.customers"
	tableOrganisations     = "loans.organisations"
	tableLoanApplications  = "loans.loan_applications"
	tableLoanPackages      = "loans.loan_packages"
	tableCreditEvaluations = "loans.credit_evaluations"
)

// Repository provides database operations. Entities are stored as JSONB
// documents; id, hubspot_id and up_to_date are mirrored into columns for lookups.
type Repository struct {
	db  *sql.DB
	key []byte
}

// NewRepository initializes a new repository. key encrypts stored gateway credentials.
func NewRepository(db *sql.DB, key []byte) *Repository {
	return &Repository{db: db, key: key}
}

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

type row struct {
	id        uuid.UUID
	hubspotID *string
	upToDate  bool
	createdAt time.Time
	updatedAt time.Time
}

func (r *Repository) insert(ctx context.Context, table string, meta row, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, hubspot_id, up_to_date, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`, table)
	if _, err := r.db.ExecContext(ctx, query, meta.id, meta.hubspotID, meta.upToDate, raw, meta.createdAt, meta.updatedAt); err != nil {
		return mapError(table, err)
	}
	return nil
}

func (r *Repository) update(ctx context.Context, table string, meta row, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	query := fmt.Sprintf(`
		UPDATE %s SET hubspot_id = $2, up_to_date = $3, doc = $4, updated_at = $5
		WHERE id = $1`, table)
	res, err := r.db.ExecContext(ctx, query, meta.id, meta.hubspotID, meta.upToDate, raw, meta.updatedAt)
	if err != nil {
		return mapError(table, err)
	}
	return expectOne(table, meta.id, res)
}

func (r *Repository) find(ctx context.Context, table string, id uuid.UUID, dst any) error {
	var raw []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, table)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, models.ErrNotFound)
	}
	if err != nil {
		return mapError(table, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", table, id, err)
	}
	return nil
}

func (r *Repository) delete(ctx context.Context, table string, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table)
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(table, err)
	}
	return expectOne(table, id, res)
}

func expectOne(table string, id uuid.UUID, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", table, id, models.ErrNotFound)
	}
	return nil
}

// mapError turns constraint violations into input errors
func mapError(table string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return fmt.Errorf("%w: %s already has a record with this key (%s)", models.ErrInvalidInput, table, pqErr.Constraint)
		case "foreign_key_violation", "check_violation", "not_null_violation":
			return fmt.Errorf("%w: %s: %s", models.ErrInvalidInput, table, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: database error: %w", table, err)
}

func stamp(id *uuid.UUID, createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if createdAt.IsZero() {
		*createdAt = now
	}
	*updatedAt = now
}

// CreateCustomer stores a new customer, assigning id and timestamps
func (r *Repository) CreateCustomer(ctx context.Context, c *models.Customer) error {
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err := r.insert(ctx, tableCustomers, row{c.ID, c.HubspotID, true, c.CreatedAt, c.UpdatedAt}, c); err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// FindCustomer retrieves a customer by id
func (r *Repository) FindCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	c := &models.Customer{}
	if err := r.find(ctx, tableCustomers, id, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCustomer overwrites a stored customer
func (r *Repository) UpdateCustomer(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = time.Now().UTC()
	if err := r.update(ctx, tableCustomers, row{c.ID, c.HubspotID, true, c.CreatedAt, c.UpdatedAt}, c); err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	return nil
}

// DeleteCustomer removes a customer
func (r *Repository) DeleteCustomer(ctx context.Context, id uuid.UUID) error {
	return r.delete(ctx, tableCustomers, id)
}

// CreateOrganisation stores a new organisation
func (r *Repository) CreateOrganisation(ctx context.Context, o *models.Organisation) error {
	stamp(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err := r.insert(ctx, tableOrganisations, row{o.ID, o.HubspotID, true, o.CreatedAt, o.UpdatedAt}, o); err != nil {
		return fmt.Errorf("failed to create organisation: %w", err)
	}
	return nil
}

// FindOrganisation retrieves an organisation by id
func (r *Repository) FindOrganisation(ctx context.Context, id uuid.UUID) (*models.Organisation, error) {
	o := &models.Organisation{}
	if err := r.find(ctx, tableOrganisations, id, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrganisation overwrites a stored organisation
func (r *Repository) UpdateOrganisation(ctx context.Context, o *models.Organisation) error {
	o.UpdatedAt = time.Now().UTC()
	if err := r.update(ctx, tableOrganisations, row{o.ID, o.HubspotID, true, o.CreatedAt, o.UpdatedAt}, o); err != nil {
		return fmt.Errorf("failed to update organisation: %w", err)
	}
	return nil
}

// CreateLoanApplication stores a new loan application
func (r *Repository) CreateLoanApplication(ctx context.Context, a *models.LoanApplication) error {
	stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err := r.insert(ctx, tableLoanApplications, row{a.ID, a.HubspotID, a.UpToDate, a.CreatedAt, a.UpdatedAt}, a); err != nil {
		return fmt.Errorf("failed to create loan application: %w", err)
	}
	return nil
}

// FindLoanApplication retrieves a loan application by id
func (r *Repository) FindLoanApplication(ctx context.Context, id uuid.UUID) (*models.LoanApplication, error) {
	a := &models.LoanApplication{}
	if err := r.find(ctx, tableLoanApplications, id, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateLoanApplication overwrites a stored loan application
func (r *Repository) UpdateLoanApplication(ctx context.Context, a *models.LoanApplication) error {
	a.UpdatedAt = time.Now().UTC()
	if err := r.update(ctx, tableLoanApplications, row{a.ID, a.HubspotID, a.UpToDate, a.CreatedAt, a.UpdatedAt}, a); err != nil {
		return fmt.Errorf("failed to update loan application: %w", err)
	}
	return nil
}

// ListLoanApplications returns every loan application, oldest first. staleOnly
// keeps the linked ones that are not up to date; unlinked ones have nothing to refresh.
func (r *Repository) ListLoanApplications(ctx context.Context, staleOnly bool) ([]*models.LoanApplication, error) {
	rows, err := r.db.QueryContext(ctx, listLoanApplicationsQuery(staleOnly))
	if err != nil {
		return nil, mapError(tableLoanApplications, err)
	}
	defer rows.Close()

	apps := []*models.LoanApplication{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan loan application: %w", err)
		}
		a := &models.LoanApplication{}
		if err := json.Unmarshal(raw, a); err != nil {
			return nil, fmt.Errorf("failed to decode loan application: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list loan applications: %w", err)
	}
	return apps, nil
}

func listLoanApplicationsQuery(staleOnly bool) string {
	query := `SELECT doc FROM loans.loan_applications`
	if staleOnly {
		query += ` WHERE NOT up_to_date AND hubspot_id IS NOT NULL`
	}
	return query + ` ORDER BY updated_at`
}

// CreateLoanPackage stores a new loan package
func (r *Repository) CreateLoanPackage(ctx context.Context, p *models.LoanPackage) error {
	stamp(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err := r.insert(ctx, tableLoanPackages, row{p.ID, nil, true, p.CreatedAt, p.UpdatedAt}, p); err != nil {
		return fmt.Errorf("failed to create loan package: %w", err)
	}
	return nil
}

// FindLoanPackage retrieves a loan package by id
func (r *Repository) FindLoanPackage(ctx context.Context, id uuid.UUID) (*models.LoanPackage, error) {
	p := &models.LoanPackage{}
	if err := r.find(ctx, tableLoanPackages, id, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateLoanPackage overwrites a stored loan package
func (r *Repository) UpdateLoanPackage(ctx context.Context, p *models.LoanPackage) error {
	p.UpdatedAt = time.Now().UTC()
	if err := r.update(ctx, tableLoanPackages, row{p.ID, nil, true, p.CreatedAt, p.UpdatedAt}, p); err != nil {
		return fmt.Errorf("failed to update loan package: %w", err)
	}
	return nil
}

// CreateCreditEvaluation stores a new credit evaluation
func (r *Repository) CreateCreditEvaluation(ctx context.Context, e *models.CreditEvaluation) error {
	stamp(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err := r.insert(ctx, tableCreditEvaluations, row{e.ID, nil, true, e.CreatedAt, e.UpdatedAt}, e); err != nil {
		return fmt.Errorf("failed to create credit evaluation: %w", err)
	}
	return nil
}

// FindCreditEvaluation retrieves a credit evaluation by id
func (r *Repository) FindCreditEvaluation(ctx context.Context, id uuid.UUID) (*models.CreditEvaluation, error) {
	e := &models.CreditEvaluation{}
	if err := r.find(ctx, tableCreditEvaluations, id, e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateCreditEvaluation overwrites a stored credit evaluation
func (r *Repository) UpdateCreditEvaluation(ctx context.Context, e *models.CreditEvaluation) error {
	e.UpdatedAt = time.Now().UTC()
	if err := r.update(ctx, tableCreditEvaluations, row{e.ID, nil, true, e.CreatedAt, e.UpdatedAt}, e); err != nil {
		return fmt.Errorf("failed to update credit evaluation: %w", err)
	}
	return nil
}

// SaveCBCCredentials stores the current gateway credentials, password encrypted
func (r *Repository) SaveCBCCredentials(ctx context.Context, creds cbc.Credentials) error {
	password, err := utils.Encrypt(creds.Password, r.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt password: %w", err)
	}
	query := `
		INSERT INTO loans.cbc_credentials (id, user_id, password, rotated_at)
		VALUES (1, $1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, password = EXCLUDED.password, rotated_at = EXCLUDED.rotated_at`
	if _, err := r.db.ExecContext(ctx, query, creds.UserID, password); err != nil {
		return fmt.Errorf("failed to save credentials: %w", mapError("loans.cbc_credentials", err))
	}
	return nil
}

// LoadCBCCredentials returns the last rotated credentials or ErrNotFound if none were stored
func (r *Repository) LoadCBCCredentials(ctx context.Context) (cbc.Credentials, error) {
	var creds cbc.Credentials
	var encrypted string
	err := r.db.QueryRowContext(ctx, `SELECT user_id, password FROM loans.cbc_credentials WHERE id = 1`).
		Scan(&creds.UserID, &encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return creds, fmt.Errorf("credit bureau credentials: %w", models.ErrNotFound)
	}
	if err != nil {
		return creds, fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds.Password, err = utils.Decrypt(encrypted, r.key); err != nil {
		return creds, fmt.Errorf("failed to decrypt password: %w", err)
	}
	return creds, nil
}

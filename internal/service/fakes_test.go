package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/integrations/cbc"
	"github.com/Dan9191/loan-service/internal/integrations/hubspot"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils/email"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var testNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

const testKey = "0123456789abcdef0123456789abcdef"

type fakeStore struct {
	mu            sync.Mutex
	customers     map[uuid.UUID]models.Customer
	organisations map[uuid.UUID]models.Organisation
	applications  map[uuid.UUID]models.LoanApplication
	packages      map[uuid.UUID]models.LoanPackage
	evaluations   map[uuid.UUID]models.CreditEvaluation
	writes        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers:     map[uuid.UUID]models.Customer{},
		organisations: map[uuid.UUID]models.Organisation{},
		applications:  map[uuid.UUID]models.LoanApplication{},
		packages:      map[uuid.UUID]models.LoanPackage{},
		evaluations:   map[uuid.UUID]models.CreditEvaluation{},
	}
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func notFound(id uuid.UUID) error { return fmt.Errorf("%s: %w", id, models.ErrNotFound) }

func (f *fakeStore) CreateCustomer(_ context.Context, c *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignID(&c.ID)
	f.customers[c.ID] = *c
	f.writes++
	return nil
}

func (f *fakeStore) FindCustomer(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, notFound(id)
	}
	return &c, nil
}

func (f *fakeStore) UpdateCustomer(_ context.Context, c *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[c.ID]; !ok {
		return notFound(c.ID)
	}
	f.customers[c.ID] = *c
	f.writes++
	return nil
}

func (f *fakeStore) DeleteCustomer(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.customers[id]; !ok {
		return notFound(id)
	}
	delete(f.customers, id)
	return nil
}

func (f *fakeStore) CreateOrganisation(_ context.Context, o *models.Organisation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignID(&o.ID)
	f.organisations[o.ID] = *o
	return nil
}

func (f *fakeStore) FindOrganisation(_ context.Context, id uuid.UUID) (*models.Organisation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.organisations[id]
	if !ok {
		return nil, notFound(id)
	}
	return &o, nil
}

func (f *fakeStore) UpdateOrganisation(_ context.Context, o *models.Organisation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.organisations[o.ID] = *o
	return nil
}

func (f *fakeStore) CreateLoanApplication(_ context.Context, a *models.LoanApplication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignID(&a.ID)
	f.applications[a.ID] = *a
	return nil
}

func (f *fakeStore) FindLoanApplication(_ context.Context, id uuid.UUID) (*models.LoanApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.applications[id]
	if !ok {
		return nil, notFound(id)
	}
	return &a, nil
}

func (f *fakeStore) UpdateLoanApplication(_ context.Context, a *models.LoanApplication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applications[a.ID] = *a
	return nil
}

func (f *fakeStore) ListLoanApplications(_ context.Context, staleOnly bool) ([]*models.LoanApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.LoanApplication{}
	for _, a := range f.applications {
		if staleOnly && (a.UpToDate || a.HubspotID == nil) {
			continue
		}
		a := a
		out = append(out, &a)
	}
	return out, nil
}

func (f *fakeStore) CreateLoanPackage(_ context.Context, p *models.LoanPackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignID(&p.ID)
	f.packages[p.ID] = *p
	return nil
}

func (f *fakeStore) FindLoanPackage(_ context.Context, id uuid.UUID) (*models.LoanPackage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.packages[id]
	if !ok {
		return nil, notFound(id)
	}
	return &p, nil
}

func (f *fakeStore) UpdateLoanPackage(_ context.Context, p *models.LoanPackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packages[p.ID] = *p
	return nil
}

func (f *fakeStore) CreateCreditEvaluation(_ context.Context, e *models.CreditEvaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	assignID(&e.ID)
	f.evaluations[e.ID] = *e
	return nil
}

func (f *fakeStore) FindCreditEvaluation(_ context.Context, id uuid.UUID) (*models.CreditEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.evaluations[id]
	if !ok {
		return nil, notFound(id)
	}
	return &e, nil
}

func (f *fakeStore) UpdateCreditEvaluation(_ context.Context, e *models.CreditEvaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations[e.ID] = *e
	return nil
}

type remoteCall struct {
	Method string
	ID     string
	Props  map[string]string
}

// fakeRemote records calls; the func fields override the default answers
type fakeRemote struct {
	calls []remoteCall

	get    func(ctx context.Context, id string) (map[string]string, error)
	search func(value string) (*hubspot.SearchResult, error)
	create func(props map[string]string) (string, error)
	update func(ctx context.Context, id string) error
	arch   func(id string) error
}

func (r *fakeRemote) Get(ctx context.Context, id string, _ []string) (map[string]string, error) {
	r.calls = append(r.calls, remoteCall{Method: "get", ID: id})
	if r.get == nil {
		return nil, models.ErrRemoteNotFound
	}
	return r.get(ctx, id)
}

func (r *fakeRemote) Search(_ context.Context, prop, _ string, value string, _ []string) (*hubspot.SearchResult, error) {
	r.calls = append(r.calls, remoteCall{Method: "search", Props: map[string]string{prop: value}})
	if r.search == nil {
		return &hubspot.SearchResult{}, nil
	}
	return r.search(value)
}

func (r *fakeRemote) Create(_ context.Context, props map[string]string) (string, error) {
	r.calls = append(r.calls, remoteCall{Method: "create", Props: props})
	if r.create == nil {
		return "new-1", nil
	}
	return r.create(props)
}

func (r *fakeRemote) Update(ctx context.Context, id string, props map[string]string) (string, error) {
	r.calls = append(r.calls, remoteCall{Method: "update", ID: id, Props: props})
	if r.update != nil {
		if err := r.update(ctx, id); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (r *fakeRemote) Archive(_ context.Context, id string) error {
	r.calls = append(r.calls, remoteCall{Method: "archive", ID: id})
	if r.arch != nil {
		return r.arch(id)
	}
	return nil
}

type fakeAudit struct{ outcomes []models.SyncOutcome }

func (a *fakeAudit) Record(_ context.Context, out models.SyncOutcome) {
	a.outcomes = append(a.outcomes, out)
}

func (a *fakeAudit) History(_ context.Context, entity, entityID string, limit int64) ([]models.SyncOutcome, error) {
	events := []models.SyncOutcome{}
	for i := len(a.outcomes) - 1; i >= 0 && int64(len(events)) < limit; i-- {
		if a.outcomes[i].Entity == entity && a.outcomes[i].EntityID == entityID {
			events = append(events, a.outcomes[i])
		}
	}
	return events, nil
}

type fakeNotifier struct{ notices []email.UnlinkedNotice }

func (n *fakeNotifier) SendUnlinkedNotice(notice email.UnlinkedNotice) error {
	n.notices = append(n.notices, notice)
	return nil
}

type fakeBureau struct {
	report    *cbc.Report
	err       error
	applicant cbc.Applicant
}

func (b *fakeBureau) PullReport(_ context.Context, a cbc.Applicant) (*cbc.Report, error) {
	b.applicant = a
	return b.report, b.err
}

type fakeArchive struct{ objects map[string][]byte }

func (a *fakeArchive) Put(_ context.Context, id uuid.UUID, raw []byte) (string, error) {
	key := "evaluations/" + id.String() + "/report.xml"
	a.objects[key] = raw
	return key, nil
}

func (a *fakeArchive) Get(_ context.Context, key string) ([]byte, error) {
	raw, ok := a.objects[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return raw, nil
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	contacts  *fakeRemote
	companies *fakeRemote
	deals     *fakeRemote
	audit     *fakeAudit
	notifier  *fakeNotifier
	bureau    *fakeBureau
	archive   *fakeArchive
}

func newFixture() *fixture {
	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		store:     newFakeStore(),
		contacts:  &fakeRemote{},
		companies: &fakeRemote{},
		deals:     &fakeRemote{},
		audit:     &fakeAudit{},
		notifier:  &fakeNotifier{},
		bureau:    &fakeBureau{},
		archive:   &fakeArchive{objects: map[string][]byte{}},
	}
	orch := &Orchestrator{
		contacts:  f.contacts,
		companies: f.companies,
		deals:     f.deals,
		audit:     f.audit,
		notifier:  f.notifier,
		log:       log,
		timeout:   time.Second,
		now:       func() time.Time { return testNow },
	}
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		TokenExpiry:   time.Hour,
		EncryptionKey: testKey,
	}
	f.svc = NewService(f.store, orch, f.bureau, f.archive, log, cfg)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func ptr[T any](v T) *T { return &v }

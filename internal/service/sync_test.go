package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Dan9191/loan-service/internal/integrations/hubspot"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

func linkedApplication(f *fixture) *models.LoanApplication {
	a := &models.LoanApplication{
		ID:             uuid.New(),
		CustomerID:     uuid.New(),
		HubspotID:      ptr("9001"),
		Name:           "Ada car loan",
		Status:         models.LoanStatusSubmitted,
		LoanAmount:     20000,
		Term:           60,
		InterestRate:   0.18,
		OriginationFee: 500,
	}
	if err := deriveLoanApplication(a); err != nil {
		panic(err)
	}
	f.store.applications[a.ID] = *a
	return a
}

func TestRefreshLoanApplication_Demotes(t *testing.T) {
	f := newFixture()
	a := linkedApplication(f)
	before := *a

	out := f.svc.sync.RefreshLoanApplication(context.Background(), a)

	if out.Action != models.SyncDemoted || !out.Mutated {
		t.Fatalf("expected demotion, got %+v", out)
	}
	if a.HubspotID != nil || a.UpToDate {
		t.Errorf("expected unlinked and not up to date, got hubspot=%v upToDate=%v", a.HubspotID, a.UpToDate)
	}

	after := *a
	after.HubspotID = before.HubspotID
	after.UpToDate = before.UpToDate
	if after != before {
		t.Errorf("local data must be kept:\nbefore %+v\nafter  %+v", before, after)
	}

	if len(f.notifier.notices) != 1 || f.notifier.notices[0].FormerDealID != "9001" {
		t.Errorf("expected one unlinked notice, got %+v", f.notifier.notices)
	}
	if len(f.audit.outcomes) != 1 || f.audit.outcomes[0].Action != models.SyncDemoted {
		t.Errorf("expected the outcome to be audited, got %+v", f.audit.outcomes)
	}
}

func TestRefreshLoanApplication_Pulls(t *testing.T) {
	f := newFixture()
	a := linkedApplication(f)
	a.UpToDate = false
	f.deals.get = func(context.Context, string) (map[string]string, error) {
		return map[string]string{
			"amount":        "25000",
			"loan_term":     "72",
			"interest_rate": "0.12",
			"dealstage":     "contractsent",
			"apr":           "0.999999",
		}, nil
	}

	out := f.svc.sync.RefreshLoanApplication(context.Background(), a)

	if out.Action != models.SyncPulled || !out.Mutated {
		t.Fatalf("expected pull, got %+v", out)
	}
	if a.LoanAmount != 25000 || a.Term != 72 || a.InterestRate != 0.12 || a.Status != models.LoanStatusApproved {
		t.Errorf("terms not taken from the deal: %+v", a)
	}
	if math.Abs(a.LoanWeightFactor-3000) > 1e-9 {
		t.Errorf("weight factor not recomputed: %v", a.LoanWeightFactor)
	}
	if a.APR == "0.999999" || a.APR < "0.120000" {
		t.Errorf("apr must be recomputed locally, got %s", a.APR)
	}
	if !a.UpToDate || a.HubspotID == nil {
		t.Errorf("expected linked and up to date")
	}
}

func TestRefreshLoanApplication_RejectsBadTerms(t *testing.T) {
	f := newFixture()
	a := linkedApplication(f)
	before := *a
	f.deals.get = func(context.Context, string) (map[string]string, error) {
		return map[string]string{"interest_rate": "18"}, nil
	}

	out := f.svc.sync.RefreshLoanApplication(context.Background(), a)

	if out.Action != models.SyncFailed || out.Mutated {
		t.Fatalf("expected failure without mutation, got %+v", out)
	}
	if *a != before {
		t.Errorf("application must not change on rejected deal terms")
	}
}

func TestRefreshLoanApplication_Unavailable(t *testing.T) {
	f := newFixture()
	a := linkedApplication(f)
	f.deals.get = func(context.Context, string) (map[string]string, error) {
		return nil, models.ErrRemoteUnavailable
	}

	out := f.svc.sync.RefreshLoanApplication(context.Background(), a)
	if out.Action != models.SyncFailed || a.HubspotID == nil {
		t.Fatalf("an unavailable CRM must not unlink, got %+v", out)
	}
}

func TestRemoteCallsHonourTimeout(t *testing.T) {
	f := newFixture()
	f.svc.sync.timeout = 10 * time.Millisecond
	a := linkedApplication(f)
	f.deals.get = func(ctx context.Context, _ string) (map[string]string, error) {
		<-ctx.Done()
		return nil, errors.Join(models.ErrRemoteUnavailable, ctx.Err())
	}

	out := f.svc.sync.RefreshLoanApplication(context.Background(), a)
	if out.Action != models.SyncFailed {
		t.Fatalf("expected timeout failure, got %+v", out)
	}
}

func TestAfterCustomerWrite_LinksByEmail(t *testing.T) {
	f := newFixture()
	c := &models.Customer{ID: uuid.New(), Email: ptr("ada@example.com"), FirstName: ptr("Ada")}
	f.contacts.search = func(value string) (*hubspot.SearchResult, error) {
		return &hubspot.SearchResult{Total: 1, Results: []hubspot.Object{{
			ID: "501",
			Properties: map[string]string{
				"email":     "ada@example.com",
				"firstname": "Augusta",
				"lastname":  "Lovelace",
				"city":      "London",
			},
		}}}, nil
	}

	out := f.svc.sync.AfterCustomerWrite(context.Background(), c, nil)

	if out.Action != models.SyncLinked || out.RemoteID != "501" || !out.Mutated {
		t.Fatalf("expected link, got %+v", out)
	}
	if *c.HubspotID != "501" {
		t.Errorf("remote id not adopted")
	}
	if *c.FirstName != "Ada" {
		t.Errorf("present local field overwritten: %s", *c.FirstName)
	}
	if c.LastName == nil || *c.LastName != "Lovelace" || c.City == nil || *c.City != "London" {
		t.Errorf("absent fields not pulled: %+v", c)
	}
	if got := f.contacts.calls[0].Props["email"]; got != "ada@example.com" {
		t.Errorf("lookup not by email: %v", f.contacts.calls[0])
	}
}

func TestAfterCustomerWrite_NoMatchStaysUnlinked(t *testing.T) {
	f := newFixture()
	c := &models.Customer{ID: uuid.New(), Email: ptr("nobody@example.com")}

	out := f.svc.sync.AfterCustomerWrite(context.Background(), c, nil)
	if out.Action != models.SyncSkipped || c.HubspotID != nil || out.Mutated {
		t.Fatalf("expected to stay unlinked, got %+v", out)
	}
	for _, call := range f.contacts.calls {
		if call.Method == "create" {
			t.Fatal("remote records are only created by export")
		}
	}
}

func TestAfterCustomerWrite_NoEmail(t *testing.T) {
	f := newFixture()
	c := &models.Customer{ID: uuid.New(), FirstName: ptr("Ada")}

	out := f.svc.sync.AfterCustomerWrite(context.Background(), c, nil)
	if out.Action != models.SyncSkipped || len(f.contacts.calls) != 0 {
		t.Fatalf("expected no remote call without email, got %+v %v", out, f.contacts.calls)
	}
}

func TestAfterCustomerWrite_PushesChangedOnly(t *testing.T) {
	f := newFixture()
	c := &models.Customer{
		ID:        uuid.New(),
		HubspotID: ptr("501"),
		FirstName: ptr("Ada"),
		LastName:  ptr("Lovelace"),
		Phone:     ptr("555-0100"),
	}

	out := f.svc.sync.AfterCustomerWrite(context.Background(), c, []string{"phone", "incomes"})

	if out.Action != models.SyncPushed {
		t.Fatalf("expected push, got %+v", out)
	}
	call := f.contacts.calls[0]
	if call.Method != "update" || call.ID != "501" {
		t.Fatalf("unexpected call %+v", call)
	}
	if len(call.Props) != 1 || call.Props["phone"] != "555-0100" {
		t.Errorf("expected only the phone to be pushed, got %v", call.Props)
	}
}

func TestAfterOrganisationWrite_LinksByDomain(t *testing.T) {
	f := newFixture()
	o := &models.Organisation{ID: uuid.New(), Domain: ptr("acme.example")}
	f.companies.search = func(value string) (*hubspot.SearchResult, error) {
		return &hubspot.SearchResult{Total: 1, Results: []hubspot.Object{{ID: "77", Properties: map[string]string{"name": "Acme Motors"}}}}, nil
	}

	out := f.svc.sync.AfterOrganisationWrite(context.Background(), o, nil)
	if out.Action != models.SyncLinked || *o.HubspotID != "77" || *o.Name != "Acme Motors" {
		t.Fatalf("expected link by domain, got %+v %+v", out, o)
	}
}

func TestPushLoanApplication_IncludesDerivedOnTermChange(t *testing.T) {
	f := newFixture()
	a := linkedApplication(f)

	out := f.svc.sync.PushLoanApplication(context.Background(), a, []string{"term"}, true)
	if out.Action != models.SyncPushed {
		t.Fatalf("expected push, got %+v", out)
	}
	props := f.deals.calls[0].Props
	for _, name := range []string{"loan_term", "apr", "loan_weight_factor"} {
		if _, ok := props[name]; !ok {
			t.Errorf("missing %s in %v", name, props)
		}
	}
	if _, ok := props["amount"]; ok {
		t.Errorf("unchanged amount should not be pushed")
	}
}

func TestArchiveCustomer(t *testing.T) {
	f := newFixture()
	c := &models.Customer{ID: uuid.New(), HubspotID: ptr("501")}

	out := f.svc.sync.ArchiveCustomer(context.Background(), c)
	if out.Action != models.SyncArchived || f.contacts.calls[0].Method != "archive" {
		t.Fatalf("expected archive, got %+v", out)
	}

	f.contacts.arch = func(string) error { return models.ErrRemoteNotFound }
	if out := f.svc.sync.ArchiveCustomer(context.Background(), c); out.Action != models.SyncArchived {
		t.Errorf("a missing contact counts as archived, got %+v", out)
	}
}

func TestExportCustomer_AlreadyLinked(t *testing.T) {
	f := newFixture()
	c := &models.Customer{ID: uuid.New(), HubspotID: ptr("501")}

	out := f.svc.sync.ExportCustomer(context.Background(), c)
	if out.Action != models.SyncSkipped || len(f.contacts.calls) != 0 {
		t.Fatalf("linked customers must not be exported again, got %+v", out)
	}
}

package crmmap

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/google/uuid"
)

func s(v string) *string { return &v }

func fullCustomer() *models.Customer {
	return &models.Customer{
		ID:              uuid.MustParse("8f14e45f-ceea-467a-9a36-dedd4bea2543"),
		FirstName:       s("Ada"),
		MiddleName:      s("K"),
		LastName:        s("Lovelace"),
		Email:           s("ada@example.com"),
		SubmissionEmail: s("ada+loans@example.com"),
		MobilePhone:     s("+15550001111"),
		Phone:           s("+15550002222"),
		DateOfBirth:     s("1990-12-10"),
		Street:          s("1 Analytical Way"),
		City:            s("Austin"),
		State:           s("TX"),
		Zip:             s("73301"),
	}
}

func TestContacts_RoundTrip(t *testing.T) {
	original := fullCustomer()

	props := Contacts.ToRemote(original)
	if props["firstname"] != "Ada" || props["middle_name_or_initial"] != "K" {
		t.Errorf("unexpected names in %v", props)
	}
	if props["mobilephone"] != "+15550001111" || props["submission_email"] != "ada+loans@example.com" {
		t.Errorf("unexpected contact details in %v", props)
	}
	if props["local_customer_id"] != original.ID.String() {
		t.Errorf("expected the local id to be pushed, got %q", props["local_customer_id"])
	}

	back, set, err := Contacts.ToLocal(props)
	if err != nil {
		t.Fatalf("ToLocal: %v", err)
	}
	if len(set) != 12 {
		t.Errorf("expected 12 two-way fields set, got %d: %v", len(set), set)
	}

	// the id row is one-directional
	back.ID = original.ID
	if !reflect.DeepEqual(back, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, original)
	}
}

func TestContacts_OmitsAbsentFields(t *testing.T) {
	props := Contacts.ToRemote(&models.Customer{Email: s("only@example.com")})
	if len(props) != 1 {
		t.Fatalf("expected only email, got %v", props)
	}
	if _, ok := props["firstname"]; ok {
		t.Errorf("absent field must not be sent")
	}
}

func TestContacts_IgnoresUnknownProperties(t *testing.T) {
	c, set, err := Contacts.ToLocal(map[string]string{
		"firstname":         "Grace",
		"hs_lead_status":    "NEW",
		"local_customer_id": "not-read-back",
		"lastname":          "",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 1 || *c.FirstName != "Grace" {
		t.Errorf("expected only firstName set, got %v", set)
	}
	if c.LastName != nil {
		t.Errorf("empty remote values should leave the field absent")
	}
	if c.ID != uuid.Nil {
		t.Errorf("local->remote rows must not be read back")
	}
}

func TestDeals_RoundTrip(t *testing.T) {
	app := &models.LoanApplication{
		Name:             "Ada - auto refinance",
		Status:           models.LoanStatusApproved,
		LoanAmount:       20000,
		Term:             60,
		InterestRate:     0.0525,
		OriginationFee:   350.5,
		APR:              "0.066123",
		LoanWeightFactor: 1050,
	}

	props := Deals.ToRemote(app)
	if props["dealstage"] != "contractsent" {
		t.Errorf("expected mapped stage, got %q", props["dealstage"])
	}
	if props["interest_rate"] != "0.0525" || props["loan_term"] != "60" {
		t.Errorf("unexpected numeric formatting %v", props)
	}
	if props["apr"] != "0.066123" {
		t.Errorf("expected derived apr pushed, got %q", props["apr"])
	}

	back, _, err := Deals.ToLocal(props)
	if err != nil {
		t.Fatalf("ToLocal: %v", err)
	}
	if back.APR != "" || back.LoanWeightFactor != 0 {
		t.Errorf("derived fields must not be pulled, got %+v", back)
	}
	back.APR, back.LoanWeightFactor = app.APR, app.LoanWeightFactor
	if !reflect.DeepEqual(back, app) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, app)
	}
}

func TestDeals_BadValues(t *testing.T) {
	_, set, err := Deals.ToLocal(map[string]string{
		"amount":    "twenty",
		"dealstage": "somewhere",
		"loan_term": "36",
	})
	if err == nil {
		t.Fatal("expected parse errors")
	}
	if !strings.Contains(err.Error(), "amount") || !strings.Contains(err.Error(), "dealstage") {
		t.Errorf("error should name both bad properties: %v", err)
	}
	if len(set) != 1 || set[0] != "term" {
		t.Errorf("expected the valid field to still apply, got %v", set)
	}
}

func TestToRemoteOnly(t *testing.T) {
	c := fullCustomer()
	props := Contacts.ToRemoteOnly(c, "firstName", "zip", "unknownField")
	want := map[string]string{"firstname": "Ada", "zip": "73301"}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("expected %v, got %v", want, props)
	}
}

func TestToRemoteOnly_NamedZero(t *testing.T) {
	a := &models.LoanApplication{Name: "Ada car loan", Term: 0, OriginationFee: 0}
	props := Deals.ToRemoteOnly(a, "originationFee", "term")
	want := map[string]string{"origination_fee": "0", "loan_term": "0"}
	if !reflect.DeepEqual(props, want) {
		t.Errorf("expected %v, got %v", want, props)
	}

	if _, ok := Deals.ToRemote(a)["origination_fee"]; ok {
		t.Errorf("a full projection still treats zero as absent")
	}
}

func TestPresent(t *testing.T) {
	got := Contacts.Present(&models.Customer{FirstName: s("A"), City: s("B")})
	want := []string{"firstName", "city"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNewTable_RejectsDuplicates(t *testing.T) {
	_, err := NewTable(
		String("firstName", "firstname", Both, func(c *models.Customer) **string { return &c.FirstName }),
		String("lastName", "firstname", Both, func(c *models.Customer) **string { return &c.LastName }),
	)
	if err == nil {
		t.Fatal("expected duplicate remote property to be rejected")
	}

	_, err = NewTable(
		String("firstName", "firstname", Both, func(c *models.Customer) **string { return &c.FirstName }),
		String("firstName", "first_name", Both, func(c *models.Customer) **string { return &c.FirstName }),
	)
	if err == nil {
		t.Fatal("expected duplicate local path to be rejected")
	}
}

func TestNewTable_RejectsMissingSetter(t *testing.T) {
	_, err := NewTable(
		Custom("id", "local_customer_id", Both,
			func(c *models.Customer) (string, bool) { return c.ID.String(), true },
			nil,
		),
	)
	if err == nil {
		t.Fatal("expected a two-way row without setter to be rejected")
	}
}

func TestEnumTable(t *testing.T) {
	for _, status := range models.LoanStatuses {
		remote, ok := DealStages.Remote(status)
		if !ok {
			t.Fatalf("status %q has no stage", status)
		}
		back, ok := DealStages.Local(remote)
		if !ok || back != status {
			t.Errorf("stage %q maps back to %q", remote, back)
		}
	}

	if _, err := NewEnumTable(models.LoanStatuses, map[models.LoanStatus]string{
		models.LoanStatusNew: "a",
	}); err == nil {
		t.Error("expected incomplete table to be rejected")
	}

	if _, err := NewEnumTable([]models.LoanStatus{models.LoanStatusNew, models.LoanStatusFunded}, map[models.LoanStatus]string{
		models.LoanStatusNew:    "same",
		models.LoanStatusFunded: "same",
	}); err == nil {
		t.Error("expected duplicate remote option to be rejected")
	}
}

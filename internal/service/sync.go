package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/audit"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/crmmap"
	"github.com/Dan9191/loan-service/internal/integrations/hubspot"
	"github.com/Dan9191/loan-service/internal/models"
	"github.com/Dan9191/loan-service/internal/utils/email"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Entity names used in sync outcomes
const (
	EntityCustomer        = "customer"
	EntityOrganisation    = "organisation"
	EntityLoanApplication = "loan_application"
)

// RemoteObjects is the CRM surface for one object type
type RemoteObjects interface {
	Get(ctx context.Context, id string, properties []string) (map[string]string, error)
	Search(ctx context.Context, propertyName, operator, value string, properties []string) (*hubspot.SearchResult, error)
	Create(ctx context.Context, properties map[string]string) (string, error)
	Update(ctx context.Context, id string, properties map[string]string) (string, error)
	Archive(ctx context.Context, id string) error
}

// Notifier announces loan applications that lost their CRM deal
type Notifier interface {
	SendUnlinkedNotice(n email.UnlinkedNotice) error
}

// Orchestrator decides what to push to and pull from the CRM after local writes.
// It never returns remote errors; every attempt ends in a SyncOutcome.
type Orchestrator struct {
	contacts  RemoteObjects
	companies RemoteObjects
	deals     RemoteObjects
	audit     audit.Recorder
	notifier  Notifier
	log       *logrus.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewOrchestrator wires the orchestrator to the CRM client
func NewOrchestrator(crm *hubspot.Client, rec audit.Recorder, notifier Notifier, cfg *config.Config, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		contacts:  crm.Objects(hubspot.ObjectContacts),
		companies: crm.Objects(hubspot.ObjectCompanies),
		deals:     crm.Objects(hubspot.ObjectDeals),
		audit:     rec,
		notifier:  notifier,
		log:       log,
		timeout:   cfg.CRMTimeout,
		now:       time.Now,
	}
}

// History returns the recorded sync outcomes of one entity, newest first
func (o *Orchestrator) History(ctx context.Context, entity, entityID string, limit int64) ([]models.SyncOutcome, error) {
	if o.audit == nil {
		return []models.SyncOutcome{}, nil
	}
	return o.audit.History(ctx, entity, entityID, limit)
}

type linkable interface {
	GetHubspotID() *string
	SetHubspotID(id *string)
}

// AfterCustomerWrite syncs a persisted customer. Linked customers get the
// changed fields pushed; unlinked ones are looked up by email.
func (o *Orchestrator) AfterCustomerWrite(ctx context.Context, c *models.Customer, changed []string) models.SyncOutcome {
	return afterWrite(ctx, o, EntityCustomer, c.ID, c, crmmap.Contacts, o.contacts, "email", changed)
}

// AfterOrganisationWrite syncs a persisted organisation, looking it up by domain when unlinked
func (o *Orchestrator) AfterOrganisationWrite(ctx context.Context, org *models.Organisation, changed []string) models.SyncOutcome {
	return afterWrite(ctx, o, EntityOrganisation, org.ID, org, crmmap.Companies, o.companies, "domain", changed)
}

// ExportCustomer creates the CRM contact of an unlinked customer
func (o *Orchestrator) ExportCustomer(ctx context.Context, c *models.Customer) models.SyncOutcome {
	return export(ctx, o, EntityCustomer, c.ID, c, crmmap.Contacts, o.contacts)
}

// ExportOrganisation creates the CRM company of an unlinked organisation
func (o *Orchestrator) ExportOrganisation(ctx context.Context, org *models.Organisation) models.SyncOutcome {
	return export(ctx, o, EntityOrganisation, org.ID, org, crmmap.Companies, o.companies)
}

// ExportLoanApplication creates the CRM deal of an unlinked loan application
func (o *Orchestrator) ExportLoanApplication(ctx context.Context, app *models.LoanApplication) models.SyncOutcome {
	out := export(ctx, o, EntityLoanApplication, app.ID, app, crmmap.Deals, o.deals)
	if out.Action == models.SyncCreated {
		app.UpToDate = true
	}
	return out
}

// ArchiveCustomer archives the CRM contact of a deleted customer
func (o *Orchestrator) ArchiveCustomer(ctx context.Context, c *models.Customer) models.SyncOutcome {
	out := models.SyncOutcome{Entity: EntityCustomer, EntityID: c.ID.String()}
	if c.HubspotID == nil {
		return o.finish(ctx, skipped(out, "not linked"))
	}
	out.RemoteID = *c.HubspotID

	rctx, cancel := o.remoteContext(ctx)
	defer cancel()
	err := o.contacts.Archive(rctx, out.RemoteID)
	switch {
	case err == nil:
		out.Action = models.SyncArchived
	case errors.Is(err, models.ErrRemoteNotFound):
		out.Action = models.SyncArchived
		out.Reason = "remote contact already gone"
	default:
		out.Action = models.SyncFailed
		out.Reason = err.Error()
	}
	return o.finish(ctx, out)
}

// PushLoanApplication pushes the changed fields of a linked application. When
// the terms changed the recomputed apr and weight factor go along.
func (o *Orchestrator) PushLoanApplication(ctx context.Context, app *models.LoanApplication, changed []string, termsChanged bool) models.SyncOutcome {
	out := models.SyncOutcome{Entity: EntityLoanApplication, EntityID: app.ID.String()}
	if app.HubspotID == nil {
		return o.finish(ctx, skipped(out, "not linked"))
	}
	out.RemoteID = *app.HubspotID

	locals := changed
	if termsChanged {
		locals = append(append([]string{}, changed...), "apr", "loanWeightFactor")
	}
	props := crmmap.Deals.ToRemoteOnly(app, locals...)
	if len(props) == 0 {
		return o.finish(ctx, skipped(out, "no synchronized field changed"))
	}

	rctx, cancel := o.remoteContext(ctx)
	defer cancel()
	_, err := o.deals.Update(rctx, out.RemoteID, props)
	switch {
	case err == nil:
		out.Action = models.SyncPushed
		out.Reason = strings.Join(sortedKeys(props), ",")
	case errors.Is(err, models.ErrRemoteNotFound):
		return o.finish(ctx, o.demote(app, out, err))
	default:
		out.Action = models.SyncFailed
		out.Reason = err.Error()
	}
	return o.finish(ctx, out)
}

// RefreshLoanApplication pulls the linked deal, overwrites the local terms,
// recomputes the derived figures and marks the application up to date.
// A deal that no longer exists demotes the application to unlinked.
func (o *Orchestrator) RefreshLoanApplication(ctx context.Context, app *models.LoanApplication) models.SyncOutcome {
	out := models.SyncOutcome{Entity: EntityLoanApplication, EntityID: app.ID.String()}
	if app.HubspotID == nil {
		return o.finish(ctx, skipped(out, "not linked"))
	}
	out.RemoteID = *app.HubspotID

	rctx, cancel := o.remoteContext(ctx)
	defer cancel()
	props, err := o.deals.Get(rctx, out.RemoteID, crmmap.Deals.RemoteProperties())
	switch {
	case errors.Is(err, models.ErrRemoteNotFound):
		return o.finish(ctx, o.demote(app, out, err))
	case err != nil:
		out.Action = models.SyncFailed
		out.Reason = err.Error()
		return o.finish(ctx, out)
	}

	updated := *app
	pulled, err := crmmap.Deals.Apply(&updated, props)
	if err != nil {
		out.Action = models.SyncFailed
		out.Reason = fmt.Sprintf("unreadable deal: %v", err)
		return o.finish(ctx, out)
	}
	if err := deriveLoanApplication(&updated); err != nil {
		out.Action = models.SyncFailed
		out.Reason = fmt.Sprintf("deal terms rejected: %v", err)
		return o.finish(ctx, out)
	}
	updated.UpToDate = true
	*app = updated

	out.Action = models.SyncPulled
	out.Reason = strings.Join(pulled, ",")
	out.Mutated = true
	return o.finish(ctx, out)
}

func (o *Orchestrator) demote(app *models.LoanApplication, out models.SyncOutcome, cause error) models.SyncOutcome {
	former := *app.HubspotID
	app.HubspotID = nil
	app.UpToDate = false

	out.Action = models.SyncDemoted
	out.Reason = cause.Error()
	out.Mutated = true

	if o.notifier != nil {
		err := o.notifier.SendUnlinkedNotice(email.UnlinkedNotice{
			ApplicationID: app.ID.String(),
			Name:          app.Name,
			FormerDealID:  former,
			At:            o.now(),
		})
		if err != nil {
			o.log.WithError(err).WithField("application_id", app.ID).Warn("Failed to send unlinked notice")
		}
	}
	return out
}

func afterWrite[T any, P interface {
	*T
	linkable
}](ctx context.Context, o *Orchestrator, kind string, id uuid.UUID, entity P, table *crmmap.Table[T], remote RemoteObjects, naturalKey string, changed []string) models.SyncOutcome {
	out := models.SyncOutcome{Entity: kind, EntityID: id.String()}
	if entity.GetHubspotID() == nil {
		return o.finish(ctx, lookup(ctx, o, out, entity, table, remote, naturalKey))
	}
	out.RemoteID = *entity.GetHubspotID()

	props := table.ToRemoteOnly((*T)(entity), changed...)
	if len(props) == 0 {
		return o.finish(ctx, skipped(out, "no synchronized field changed"))
	}

	rctx, cancel := o.remoteContext(ctx)
	defer cancel()
	_, err := remote.Update(rctx, out.RemoteID, props)
	switch {
	case err == nil:
		out.Action = models.SyncPushed
		out.Reason = strings.Join(sortedKeys(props), ",")
	case errors.Is(err, models.ErrRemoteNotFound):
		entity.SetHubspotID(nil)
		out.Action = models.SyncDemoted
		out.Reason = err.Error()
		out.Mutated = true
	default:
		out.Action = models.SyncFailed
		out.Reason = err.Error()
	}
	return o.finish(ctx, out)
}

// lookup links an unlinked entity to the remote record sharing its natural key
// and pulls remote values into the fields that are absent locally.
func lookup[T any, P interface {
	*T
	linkable
}](ctx context.Context, o *Orchestrator, out models.SyncOutcome, entity P, table *crmmap.Table[T], remote RemoteObjects, naturalKey string) models.SyncOutcome {
	remoteKey, _ := table.RemoteName(naturalKey)
	value, ok := table.ToRemoteOnly((*T)(entity), naturalKey)[remoteKey]
	if !ok {
		return skipped(out, "no "+naturalKey+" to look up")
	}

	rctx, cancel := o.remoteContext(ctx)
	defer cancel()
	res, err := remote.Search(rctx, remoteKey, "EQ", value, table.RemoteProperties())
	if err != nil {
		out.Action = models.SyncFailed
		out.Reason = err.Error()
		return out
	}
	if len(res.Results) == 0 {
		return skipped(out, "no remote match")
	}
	if len(res.Results) > 1 {
		o.log.WithFields(logrus.Fields{
			"entity":  out.Entity,
			"key":     remoteKey,
			"matches": len(res.Results),
		}).Warn("Ambiguous CRM lookup, linking first match")
	}

	match := res.Results[0]
	remoteID := match.ID
	entity.SetHubspotID(&remoteID)
	pulled, err := table.Apply((*T)(entity), absentOnly(table, (*T)(entity), match.Properties))
	if err != nil {
		o.log.WithError(err).WithField("remote_id", remoteID).Warn("Some CRM values could not be pulled")
	}

	out.RemoteID = remoteID
	out.Action = models.SyncLinked
	out.Mutated = true
	if len(pulled) > 0 {
		out.Reason = "pulled " + strings.Join(pulled, ",")
	}
	return out
}

func export[T any, P interface {
	*T
	linkable
}](ctx context.Context, o *Orchestrator, kind string, id uuid.UUID, entity P, table *crmmap.Table[T], remote RemoteObjects) models.SyncOutcome {
	out := models.SyncOutcome{Entity: kind, EntityID: id.String()}
	if hid := entity.GetHubspotID(); hid != nil {
		out.RemoteID = *hid
		return o.finish(ctx, skipped(out, "already linked"))
	}

	rctx, cancel := o.remoteContext(ctx)
	defer cancel()
	remoteID, err := remote.Create(rctx, table.ToRemote((*T)(entity)))
	if err != nil {
		out.Action = models.SyncFailed
		out.Reason = err.Error()
		return o.finish(ctx, out)
	}

	entity.SetHubspotID(&remoteID)
	out.RemoteID = remoteID
	out.Action = models.SyncCreated
	out.Mutated = true
	return o.finish(ctx, out)
}

// absentOnly keeps the properties whose local field is not set on entity
func absentOnly[T any](table *crmmap.Table[T], entity *T, props map[string]string) map[string]string {
	present := make(map[string]bool)
	for _, local := range table.Present(entity) {
		present[local] = true
	}
	out := make(map[string]string)
	for _, f := range table.Fields() {
		if present[f.Local] {
			continue
		}
		if v, ok := props[f.Remote]; ok {
			out[f.Remote] = v
		}
	}
	return out
}

func (o *Orchestrator) remoteContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.timeout)
}

func (o *Orchestrator) finish(ctx context.Context, out models.SyncOutcome) models.SyncOutcome {
	out.At = o.now().UTC()
	entry := o.log.WithFields(logrus.Fields{
		"entity":    out.Entity,
		"entity_id": out.EntityID,
		"remote_id": out.RemoteID,
		"action":    out.Action,
		"reason":    out.Reason,
	})
	if out.Action == models.SyncFailed {
		entry.Warn("CRM sync failed")
	} else {
		entry.Info("CRM sync")
	}
	if o.audit != nil {
		o.audit.Record(ctx, out)
	}
	return out
}

func skipped(out models.SyncOutcome, reason string) models.SyncOutcome {
	out.Action = models.SyncSkipped
	out.Reason = reason
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

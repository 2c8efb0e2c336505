package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/payments"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type fakeGateway struct {
	checkouts []payments.CheckoutRequest
	portals   []string
	event     *payments.WebhookEvent
	err       error
}

func (g *fakeGateway) CreateCheckout(req payments.CheckoutRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	g.checkouts = append(g.checkouts, req)
	return "https://checkout.test/" + req.Plan, nil
}

func (g *fakeGateway) CreatePortal(customerID string) (string, error) {
	g.portals = append(g.portals, customerID)
	return "https://portal.test/" + customerID, nil
}

func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	if signature != "good" {
		return nil, payments.ErrInvalidSignature
	}
	return g.event, nil
}

type fakeStore struct {
	subs     map[uuid.UUID]*repo.Subscription
	payments map[string]*repo.Payment
}

func (f *fakeStore) UpsertSubscription(_ context.Context, s *repo.Subscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	f.subs[s.OrganisationID] = &cp
	return nil
}

func (f *fakeStore) GetSubscription(_ context.Context, orgID uuid.UUID) (*repo.Subscription, error) {
	s, ok := f.subs[orgID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) GetSubscriptionByStripeID(_ context.Context, stripeID string) (*repo.Subscription, error) {
	for _, s := range f.subs {
		if s.StripeSubscriptionID == stripeID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeStore) UpsertPayment(_ context.Context, p *repo.Payment) error {
	if prev, ok := f.payments[p.StripeInvoiceID]; ok {
		prev.Status = p.Status
		if p.PaidAt != nil {
			prev.PaidAt = p.PaidAt
		}
		return nil
	}
	cp := *p
	f.payments[p.StripeInvoiceID] = &cp
	return nil
}

func (f *fakeStore) ListPayments(_ context.Context, orgID uuid.UUID, _ repo.Page) ([]repo.Payment, int, error) {
	var out []repo.Payment
	for _, p := range f.payments {
		if p.OrganisationID == orgID {
			out = append(out, *p)
		}
	}
	return out, len(out), nil
}

type fakeOrgs struct {
	orgs map[uuid.UUID]*repo.Organisation
}

func (f *fakeOrgs) Get(_ context.Context, id uuid.UUID) (*repo.Organisation, error) {
	o, ok := f.orgs[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrgs) GetByStripeCustomer(_ context.Context, customerID string) (*repo.Organisation, error) {
	for _, o := range f.orgs {
		if o.StripeCustomerID != nil && *o.StripeCustomerID == customerID {
			return o, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (f *fakeOrgs) SetPlan(_ context.Context, id uuid.UUID, plan string) error {
	f.orgs[id].Plan = plan
	return nil
}

func (f *fakeOrgs) SetStripeCustomer(_ context.Context, id uuid.UUID, customerID string) error {
	f.orgs[id].StripeCustomerID = &customerID
	return nil
}

type fakeUsers map[uuid.UUID]*repo.User

func (f fakeUsers) Get(_ context.Context, id uuid.UUID) (*repo.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

type fixture struct {
	svc     Service
	gateway *fakeGateway
	store   *fakeStore
	orgs    *fakeOrgs
	pub     *events.Recorder
	org     *repo.Organisation
	scope   *reqctx.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	org := &repo.Organisation{ID: uuid.New(), Name: "St Elsewhere", Email: "billing@elsewhere.test", Plan: repo.PlanStarter}
	admin := &repo.User{ID: uuid.New(), Email: "admin@elsewhere.test"}
	f := &fixture{
		gateway: &fakeGateway{},
		store:   &fakeStore{subs: map[uuid.UUID]*repo.Subscription{}, payments: map[string]*repo.Payment{}},
		orgs:    &fakeOrgs{orgs: map[uuid.UUID]*repo.Organisation{org.ID: org}},
		pub:     &events.Recorder{},
		org:     org,
		scope:   &reqctx.Scope{UserID: admin.ID, OrgID: org.ID, Role: "admin"},
	}
	f.svc = New(f.gateway, f.store, f.orgs, fakeUsers{admin.ID: admin}, f.pub)
	return f
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("new customer uses caller email", func(t *testing.T) {
		f := newFixture(t)
		url, err := f.svc.Checkout(ctx, f.scope, repo.PlanPro)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.test/pro", url)
		require.Len(t, f.gateway.checkouts, 1)
		req := f.gateway.checkouts[0]
		assert.Equal(t, f.org.ID.String(), req.OrganisationID)
		assert.Empty(t, req.CustomerID)
		assert.Equal(t, "admin@elsewhere.test", req.CustomerEmail)
	})

	t.Run("known customer is reused", func(t *testing.T) {
		f := newFixture(t)
		cus := "cus_123"
		f.org.StripeCustomerID = &cus
		_, err := f.svc.Checkout(ctx, f.scope, repo.PlanEnterprise)
		require.NoError(t, err)
		assert.Equal(t, "cus_123", f.gateway.checkouts[0].CustomerID)
		assert.Empty(t, f.gateway.checkouts[0].CustomerEmail)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Checkout(ctx, f.scope, "platinum")
		assert.ErrorIs(t, err, ErrInvalidPlan)

		_, err = f.svc.Checkout(ctx, &reqctx.Scope{UserID: uuid.New(), IsSuperAdmin: true}, repo.PlanPro)
		assert.ErrorIs(t, err, ErrOrganisationRequired)

		f.gateway.err = payments.ErrNotConfigured
		_, err = f.svc.Checkout(ctx, f.scope, repo.PlanPro)
		assert.ErrorIs(t, err, ErrBillingDisabled)
	})
}

func TestPortal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Portal(ctx, f.scope)
	assert.ErrorIs(t, err, ErrNoCustomer)

	cus := "cus_9"
	f.org.StripeCustomerID = &cus
	url, err := f.svc.Portal(ctx, f.scope)
	require.NoError(t, err)
	assert.Equal(t, "https://portal.test/cus_9", url)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	err := f.svc.HandleWebhook(context.Background(), []byte(`{}`), "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookIgnoresUnhandledEvents(t *testing.T) {
	f := newFixture(t)
	f.gateway.event = nil
	require.NoError(t, f.svc.HandleWebhook(context.Background(), []byte(`{}`), "good"))
	assert.Empty(t, f.store.subs)
}

func TestWebhookSubscriptionLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.gateway.event = &payments.WebhookEvent{
		Kind:           payments.EventCheckoutCompleted,
		CustomerID:     "cus_1",
		SubscriptionID: "sub_1",
		OrganisationID: f.org.ID.String(),
		Plan:           repo.PlanPro,
	}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "good"))
	assert.Equal(t, repo.PlanPro, f.org.Plan)
	require.NotNil(t, f.org.StripeCustomerID)
	assert.Equal(t, "cus_1", *f.org.StripeCustomerID)

	sub, err := f.svc.Subscription(ctx, f.scope)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)

	// Later events carry no metadata and resolve through the customer.
	end := time.Now().Add(30 * 24 * time.Hour).UTC()
	f.gateway.event = &payments.WebhookEvent{
		Kind:             payments.EventSubscriptionUpdated,
		CustomerID:       "cus_1",
		SubscriptionID:   "sub_1",
		Plan:             repo.PlanEnterprise,
		Status:           StatusActive,
		CurrentPeriodEnd: &end,
	}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "good"))
	assert.Equal(t, repo.PlanEnterprise, f.org.Plan)
	sub, _ = f.svc.Subscription(ctx, f.scope)
	assert.Equal(t, sub.ID, f.store.subs[f.org.ID].ID)
	require.NotNil(t, sub.CurrentPeriodEnd)

	f.gateway.event = &payments.WebhookEvent{
		Kind:           payments.EventSubscriptionDeleted,
		SubscriptionID: "sub_1",
		Status:         "canceled",
	}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "good"))
	assert.Equal(t, repo.PlanStarter, f.org.Plan)
	assert.Equal(t, StatusCanceled, f.store.subs[f.org.ID].Status)
	assert.Equal(t, "cus_1", f.store.subs[f.org.ID].StripeCustomerID)
}

func TestWebhookInvoices(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cus := "cus_7"
	f.org.StripeCustomerID = &cus

	f.gateway.event = &payments.WebhookEvent{
		Kind:        payments.EventInvoiceFailed,
		CustomerID:  "cus_7",
		InvoiceID:   "in_1",
		AmountCents: 4900,
		Currency:    "gbp",
	}
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "good"))

	f.gateway.event.Kind = payments.EventInvoicePaid
	require.NoError(t, f.svc.HandleWebhook(ctx, nil, "good"))

	page, err := f.svc.Payments(ctx, f.scope, repo.Page{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "replayed invoice updates the same row")
	assert.Equal(t, PaymentSucceeded, page.Items[0].Status)
	assert.NotNil(t, page.Items[0].PaidAt)

	assert.Equal(t, []string{
		events.Subject(events.EntityPayment, events.EventFailed, f.org.ID),
		events.Subject(events.EntityPayment, events.EventReceived, f.org.ID),
	}, f.pub.Subjects())
	assert.Equal(t, int64(4900), f.pub.Events[1].Payload.(events.PaymentChanged).AmountCents)
}

func TestWebhookUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	f.gateway.event = &payments.WebhookEvent{Kind: payments.EventInvoicePaid, CustomerID: "cus_nobody", InvoiceID: "in_x"}
	err := f.svc.HandleWebhook(context.Background(), nil, "good")
	assert.ErrorIs(t, err, ErrUnknownCustomer)
}

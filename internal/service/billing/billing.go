package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/payments"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// Subscription statuses written locally; Stripe's own statuses pass through.
const (
	StatusActive   = "active"
	StatusCanceled = "canceled"

	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Gateway is satisfied by *payments.Client.
type Gateway interface {
	CreateCheckout(req payments.CheckoutRequest) (string, error)
	CreatePortal(customerID string) (string, error)
	ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error)
}

// Store is satisfied by *repo.BillingRepo.
type Store interface {
	UpsertSubscription(ctx context.Context, s *repo.Subscription) error
	GetSubscription(ctx context.Context, orgID uuid.UUID) (*repo.Subscription, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*repo.Subscription, error)
	UpsertPayment(ctx context.Context, p *repo.Payment) error
	ListPayments(ctx context.Context, orgID uuid.UUID, pg repo.Page) ([]repo.Payment, int, error)
}

// Organisations is satisfied by *repo.OrganisationRepo.
type Organisations interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*repo.Organisation, error)
	SetPlan(ctx context.Context, id uuid.UUID, plan string) error
	SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
}

type Service interface {
	// Checkout returns the hosted Stripe Checkout URL for plan.
	Checkout(ctx context.Context, scope *reqctx.Scope, plan string) (string, error)
	// Portal returns a billing portal URL for the organisation's customer.
	Portal(ctx context.Context, scope *reqctx.Scope) (string, error)
	Subscription(ctx context.Context, scope *reqctx.Scope) (*repo.Subscription, error)
	Payments(ctx context.Context, scope *reqctx.Scope, pg repo.Page) (*repo.Paginated[repo.Payment], error)

	// HandleWebhook verifies and applies a Stripe event. Unhandled event
	// types are acknowledged without effect.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type billingService struct {
	gateway Gateway
	store   Store
	orgs    Organisations
	users   Users
	pub     events.Publisher
	now     func() time.Time
}

func New(gateway Gateway, store Store, orgs Organisations, users Users, pub events.Publisher) Service {
	return &billingService{
		gateway: gateway,
		store:   store,
		orgs:    orgs,
		users:   users,
		pub:     pub,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *billingService) organisation(ctx context.Context, scope *reqctx.Scope) (*repo.Organisation, error) {
	if !scope.HasOrg() {
		return nil, ErrOrganisationRequired
	}
	o, err := s.orgs.Get(ctx, scope.OrgID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrOrganisationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organisation: %w", err)
	}
	return o, nil
}

func (s *billingService) Checkout(ctx context.Context, scope *reqctx.Scope, plan string) (string, error) {
	if !repo.IsValidPlan(plan) {
		return "", ErrInvalidPlan
	}
	o, err := s.organisation(ctx, scope)
	if err != nil {
		return "", err
	}

	req := payments.CheckoutRequest{
		OrganisationID: o.ID.String(),
		Plan:           plan,
		CustomerID:     lo.FromPtr(o.StripeCustomerID),
	}
	if req.CustomerID == "" {
		req.CustomerEmail = o.Email
		if u, err := s.users.Get(ctx, scope.UserID); err == nil && u.Email != "" {
			req.CustomerEmail = u.Email
		}
	}

	url, err := s.gateway.CreateCheckout(req)
	if err != nil {
		return "", mapGatewayErr(err)
	}
	return url, nil
}

func (s *billingService) Portal(ctx context.Context, scope *reqctx.Scope) (string, error) {
	o, err := s.organisation(ctx, scope)
	if err != nil {
		return "", err
	}
	if lo.FromPtr(o.StripeCustomerID) == "" {
		return "", ErrNoCustomer
	}
	url, err := s.gateway.CreatePortal(*o.StripeCustomerID)
	if err != nil {
		return "", mapGatewayErr(err)
	}
	return url, nil
}

func (s *billingService) Subscription(ctx context.Context, scope *reqctx.Scope) (*repo.Subscription, error) {
	if !scope.HasOrg() {
		return nil, ErrOrganisationRequired
	}
	sub, err := s.store.GetSubscription(ctx, scope.OrgID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (s *billingService) Payments(ctx context.Context, scope *reqctx.Scope, pg repo.Page) (*repo.Paginated[repo.Payment], error) {
	if !scope.HasOrg() {
		return nil, ErrOrganisationRequired
	}
	pg = pg.Normalize()
	items, total, err := s.store.ListPayments(ctx, scope.OrgID, pg)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return repo.NewPaginated(lo.Ternary(items == nil, []repo.Payment{}, items), total, pg), nil
}

// ---------------------------------------------------------------------------
// Webhook
// ---------------------------------------------------------------------------

func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return ErrInvalidSignature
		}
		return err
	}
	if ev == nil {
		return nil
	}

	orgID, err := s.resolveOrganisation(ctx, ev)
	if err != nil {
		return err
	}

	switch ev.Kind {
	case payments.EventCheckoutCompleted:
		return s.applyCheckout(ctx, orgID, ev)
	case payments.EventSubscriptionUpdated, payments.EventSubscriptionDeleted:
		return s.applySubscription(ctx, orgID, ev)
	case payments.EventInvoicePaid, payments.EventInvoiceFailed:
		return s.applyInvoice(ctx, orgID, ev)
	}
	return nil
}

// resolveOrganisation prefers the metadata stamped at checkout, then the
// stored customer, then the stored subscription.
func (s *billingService) resolveOrganisation(ctx context.Context, ev *payments.WebhookEvent) (uuid.UUID, error) {
	if id, err := uuid.Parse(ev.OrganisationID); err == nil {
		return id, nil
	}
	if ev.CustomerID != "" {
		o, err := s.orgs.GetByStripeCustomer(ctx, ev.CustomerID)
		if err == nil {
			return o.ID, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("organisation by customer: %w", err)
		}
	}
	if ev.SubscriptionID != "" {
		sub, err := s.store.GetSubscriptionByStripeID(ctx, ev.SubscriptionID)
		if err == nil {
			return sub.OrganisationID, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return uuid.Nil, fmt.Errorf("subscription by id: %w", err)
		}
	}
	return uuid.Nil, ErrUnknownCustomer
}

func (s *billingService) applyCheckout(ctx context.Context, orgID uuid.UUID, ev *payments.WebhookEvent) error {
	if ev.CustomerID != "" {
		if err := s.orgs.SetStripeCustomer(ctx, orgID, ev.CustomerID); err != nil {
			return fmt.Errorf("link customer: %w", err)
		}
	}
	sub := &repo.Subscription{
		OrganisationID:       orgID,
		StripeCustomerID:     ev.CustomerID,
		StripeSubscriptionID: ev.SubscriptionID,
		Plan:                 ev.Plan,
		Status:               StatusActive,
	}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return s.setPlan(ctx, orgID, ev.Plan)
}

func (s *billingService) applySubscription(ctx context.Context, orgID uuid.UUID, ev *payments.WebhookEvent) error {
	status := ev.Status
	if ev.Kind == payments.EventSubscriptionDeleted {
		status = StatusCanceled
	}

	sub := &repo.Subscription{
		OrganisationID:       orgID,
		StripeCustomerID:     ev.CustomerID,
		StripeSubscriptionID: ev.SubscriptionID,
		Plan:                 ev.Plan,
		Status:               status,
		CurrentPeriodEnd:     ev.CurrentPeriodEnd,
		CancelAtPeriodEnd:    ev.CancelAtPeriodEnd,
	}
	if prev, err := s.store.GetSubscription(ctx, orgID); err == nil {
		sub.ID = prev.ID
		sub.StripeCustomerID = lo.CoalesceOrEmpty(sub.StripeCustomerID, prev.StripeCustomerID)
		sub.Plan = lo.CoalesceOrEmpty(sub.Plan, prev.Plan)
	}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}

	switch status {
	case StatusCanceled:
		return s.setPlan(ctx, orgID, repo.PlanStarter)
	case StatusActive, "trialing":
		return s.setPlan(ctx, orgID, sub.Plan)
	}
	return nil
}

func (s *billingService) applyInvoice(ctx context.Context, orgID uuid.UUID, ev *payments.WebhookEvent) error {
	p := &repo.Payment{
		OrganisationID:  orgID,
		StripeInvoiceID: ev.InvoiceID,
		AmountCents:     ev.AmountCents,
		Currency:        ev.Currency,
		Status:          ev.Status,
	}
	event := events.EventFailed
	if ev.Kind == payments.EventInvoicePaid {
		now := s.now()
		p.PaidAt = &now
		p.Status = PaymentSucceeded
		event = events.EventReceived
	} else {
		p.Status = PaymentFailed
	}
	if err := s.store.UpsertPayment(ctx, p); err != nil {
		return fmt.Errorf("upsert payment: %w", err)
	}

	events.PublishAsync(ctx, s.pub, events.Subject(events.EntityPayment, event, orgID), events.PaymentChanged{
		OrganisationID: orgID,
		InvoiceID:      p.StripeInvoiceID,
		AmountCents:    p.AmountCents,
		Currency:       p.Currency,
		Status:         p.Status,
	})
	return nil
}

func (s *billingService) setPlan(ctx context.Context, orgID uuid.UUID, plan string) error {
	if !repo.IsValidPlan(plan) {
		slog.WarnContext(ctx, "billing: ignoring unknown plan", "organisation_id", orgID, "plan", plan)
		return nil
	}
	if err := s.orgs.SetPlan(ctx, orgID, plan); err != nil {
		return fmt.Errorf("set plan: %w", err)
	}
	return nil
}

func mapGatewayErr(err error) error {
	switch {
	case errors.Is(err, payments.ErrUnknownPlan):
		return ErrInvalidPlan
	case errors.Is(err, payments.ErrNotConfigured):
		return ErrBillingDisabled
	}
	return err
}

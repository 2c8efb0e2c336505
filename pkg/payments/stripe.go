// Package payments wraps Stripe Checkout, the billing portal and webhook
// verification. Webhook payloads are translated into WebhookEvent so callers
// never touch Stripe types.
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Alijeyrad/simward_backend/config"
)

var (
	ErrUnknownPlan      = errors.New("unknown plan")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrNotConfigured    = errors.New("stripe is not configured")
)

// Metadata keys stamped on checkout sessions and subscriptions.
const (
	MetaOrganisationID = "organisation_id"
	MetaPlan           = "plan"
)

type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	EventInvoicePaid         EventKind = "invoice.payment_succeeded"
	EventInvoiceFailed       EventKind = "invoice.payment_failed"
)

// WebhookEvent is the subset of a Stripe event the billing service needs.
// Which fields are set depends on Kind.
type WebhookEvent struct {
	ID   string
	Kind EventKind

	CustomerID     string
	SubscriptionID string
	OrganisationID string
	Plan           string

	Status            string
	PriceID           string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool

	InvoiceID   string
	AmountCents int64
	Currency    string
	InvoiceURL  string
}

type CheckoutRequest struct {
	OrganisationID string
	Plan           string
	CustomerID     string
	CustomerEmail  string
}

// Client talks to Stripe through a per-instance API client rather than the
// package-level key.
type Client struct {
	api           *client.API
	webhookSecret string
	prices        map[string]string
	successURL    string
	cancelURL     string
	returnURL     string
}

func New(cfg config.StripeConfig) *Client {
	c := &Client{
		webhookSecret: cfg.WebhookSecret,
		prices:        cfg.Prices,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		returnURL:     cfg.PortalReturnURL,
	}
	if cfg.SecretKey != "" {
		c.api = client.New(cfg.SecretKey, nil)
	}
	return c
}

// PriceID resolves a plan name to its configured price.
func (c *Client) PriceID(plan string) (string, error) {
	id, ok := c.prices[plan]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	return id, nil
}

// PlanForPrice is the reverse lookup used when a subscription changes price.
func (c *Client) PlanForPrice(priceID string) string {
	for plan, id := range c.prices {
		if id == priceID {
			return plan
		}
	}
	return ""
}

// CreateCheckout starts a subscription checkout and returns its URL.
func (c *Client) CreateCheckout(req CheckoutRequest) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}
	priceID, err := c.PriceID(req.Plan)
	if err != nil {
		return "", err
	}

	meta := map[string]string{
		MetaOrganisationID: req.OrganisationID,
		MetaPlan:           req.Plan,
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(req.OrganisationID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: meta,
		},
	}
	params.Metadata = meta
	if req.CustomerID != "" {
		params.Customer = stripe.String(req.CustomerID)
	} else if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe checkout: %w", err)
	}
	return s.URL, nil
}

// CreatePortal opens a billing portal session for an existing customer.
func (c *Client) CreatePortal(customerID string) (string, error) {
	if c.api == nil {
		return "", ErrNotConfigured
	}
	s, err := c.api.BillingPortalSessions.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(c.returnURL),
	})
	if err != nil {
		return "", fmt.Errorf("stripe portal: %w", err)
	}
	return s.URL, nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes the event.
// Event types the platform does not handle return (nil, nil).
func (c *Client) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return decodeEvent(ev, c.PlanForPrice)
}

func decodeEvent(ev stripe.Event, planForPrice func(string) string) (*WebhookEvent, error) {
	out := &WebhookEvent{ID: ev.ID, Kind: EventKind(ev.Type)}

	switch out.Kind {
	case EventCheckoutCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.CustomerID = customerID(s.Customer)
		if s.Subscription != nil {
			out.SubscriptionID = s.Subscription.ID
		}
		out.OrganisationID = s.ClientReferenceID
		if v := s.Metadata[MetaOrganisationID]; v != "" {
			out.OrganisationID = v
		}
		out.Plan = s.Metadata[MetaPlan]
		out.Status = string(stripe.SubscriptionStatusActive)

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var s stripe.Subscription
		if err := json.Unmarshal(ev.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.CustomerID = customerID(s.Customer)
		out.SubscriptionID = s.ID
		out.OrganisationID = s.Metadata[MetaOrganisationID]
		out.Plan = s.Metadata[MetaPlan]
		out.Status = string(s.Status)
		out.CancelAtPeriodEnd = s.CancelAtPeriodEnd
		if s.CurrentPeriodEnd > 0 {
			t := time.Unix(s.CurrentPeriodEnd, 0).UTC()
			out.CurrentPeriodEnd = &t
		}
		if s.Items != nil && len(s.Items.Data) > 0 && s.Items.Data[0].Price != nil {
			out.PriceID = s.Items.Data[0].Price.ID
			if p := planForPrice(out.PriceID); p != "" {
				out.Plan = p
			}
		}

	case EventInvoicePaid, EventInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(ev.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.CustomerID = customerID(inv.Customer)
		if inv.Subscription != nil {
			out.SubscriptionID = inv.Subscription.ID
		}
		out.InvoiceID = inv.ID
		out.Currency = string(inv.Currency)
		out.InvoiceURL = inv.HostedInvoiceURL
		if out.Kind == EventInvoicePaid {
			out.AmountCents = inv.AmountPaid
			out.Status = "succeeded"
		} else {
			out.AmountCents = inv.AmountDue
			out.Status = "failed"
		}

	default:
		return nil, nil
	}

	return out, nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

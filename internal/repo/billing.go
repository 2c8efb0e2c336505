package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Subscription struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	OrganisationID       uuid.UUID  `db:"organisation_id" json:"organisation_id"`
	StripeCustomerID     string     `db:"stripe_customer_id" json:"-"`
	StripeSubscriptionID string     `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	Plan                 string     `db:"plan" json:"plan"`
	Status               string     `db:"status" json:"status"`
	CurrentPeriodEnd     *time.Time `db:"current_period_end" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

type Payment struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	OrganisationID  uuid.UUID  `db:"organisation_id" json:"organisation_id"`
	StripeInvoiceID string     `db:"stripe_invoice_id" json:"stripe_invoice_id"`
	AmountCents     int64      `db:"amount_cents" json:"amount_cents"`
	Currency        string     `db:"currency" json:"currency"`
	Status          string     `db:"status" json:"status"`
	PaidAt          *time.Time `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

type BillingRepo struct {
	db *sqlx.DB
}

const subscriptionColumns = `id, organisation_id, stripe_customer_id, stripe_subscription_id, plan, status,
	current_period_end, cancel_at_period_end, created_at, updated_at`

// UpsertSubscription keeps one subscription row per organisation.
func (r *BillingRepo) UpsertSubscription(ctx context.Context, s *Subscription) error {
	now := time.Now().UTC()
	if s.ID == uuid.Nil {
		s.ID = uuid.Must(uuid.NewV7())
	}
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (:id, :organisation_id, :stripe_customer_id, :stripe_subscription_id, :plan, :status,
		        :current_period_end, :cancel_at_period_end, :created_at, :updated_at)
		ON CONFLICT (organisation_id) DO UPDATE SET
		    stripe_customer_id     = EXCLUDED.stripe_customer_id,
		    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		    plan                   = EXCLUDED.plan,
		    status                 = EXCLUDED.status,
		    current_period_end     = EXCLUDED.current_period_end,
		    cancel_at_period_end   = EXCLUDED.cancel_at_period_end,
		    updated_at             = EXCLUDED.updated_at`, s)
	return mapErr(err)
}

func (r *BillingRepo) GetSubscription(ctx context.Context, orgID uuid.UUID) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE organisation_id = $1`, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *BillingRepo) GetSubscriptionByStripeID(ctx context.Context, stripeID string) (*Subscription, error) {
	var s Subscription
	err := r.db.GetContext(ctx, &s,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE stripe_subscription_id = $1`, stripeID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// UpsertPayment records an invoice outcome; replays update the status.
func (r *BillingRepo) UpsertPayment(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.Must(uuid.NewV7())
	}
	p.CreatedAt = time.Now().UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO payments (id, organisation_id, stripe_invoice_id, amount_cents, currency, status, paid_at, created_at)
		VALUES (:id, :organisation_id, :stripe_invoice_id, :amount_cents, :currency, :status, :paid_at, :created_at)
		ON CONFLICT (stripe_invoice_id) DO UPDATE SET
		    status  = EXCLUDED.status,
		    paid_at = COALESCE(EXCLUDED.paid_at, payments.paid_at)`, p)
	return mapErr(err)
}

func (r *BillingRepo) ListPayments(ctx context.Context, orgID uuid.UUID, pg Page) ([]Payment, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM payments WHERE organisation_id = $1`, orgID); err != nil {
		return nil, 0, mapErr(err)
	}
	var out []Payment
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, organisation_id, stripe_invoice_id, amount_cents, currency, status, paid_at, created_at
		FROM payments WHERE organisation_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, orgID, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

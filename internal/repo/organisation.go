package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// IsValidPlan reports whether plan is a billable plan name.
func IsValidPlan(plan string) bool {
	switch plan {
	case PlanStarter, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

type Organisation struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Email            string     `db:"email" json:"email"`
	Phone            string     `db:"phone" json:"phone"`
	Address          string     `db:"address" json:"address"`
	LogoKey          *string    `db:"logo_key" json:"logo_key,omitempty"`
	Plan             string     `db:"plan" json:"plan"`
	StripeCustomerID *string    `db:"stripe_customer_id" json:"-"`
	OrgDelete        bool       `db:"org_delete" json:"org_delete"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// OrganisationWithCounts is the superadmin listing row.
type OrganisationWithCounts struct {
	Organisation
	UserCount    int `db:"user_count" json:"user_count"`
	PatientCount int `db:"patient_count" json:"patient_count"`
}

type OrganisationFilter struct {
	Search         string
	IncludeDeleted bool
}

type OrganisationRepo struct {
	db *sqlx.DB
}

const organisationColumns = `id, name, email, phone, address, logo_key, plan, stripe_customer_id,
	org_delete, deleted_at, created_at, updated_at`

func (r *OrganisationRepo) Create(ctx context.Context, o *Organisation) error {
	now := time.Now().UTC()
	if o.ID == uuid.Nil {
		o.ID = uuid.Must(uuid.NewV7())
	}
	o.CreatedAt, o.UpdatedAt = now, now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO organisations (id, name, email, phone, address, logo_key, plan, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :address, :logo_key, :plan, :created_at, :updated_at)`, o)
	return mapErr(err)
}

// Get returns the organisation regardless of its deletion flag.
func (r *OrganisationRepo) Get(ctx context.Context, id uuid.UUID) (*Organisation, error) {
	var o Organisation
	err := r.db.GetContext(ctx, &o, `SELECT `+organisationColumns+` FROM organisations WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *OrganisationRepo) GetByStripeCustomer(ctx context.Context, customerID string) (*Organisation, error) {
	var o Organisation
	err := r.db.GetContext(ctx, &o,
		`SELECT `+organisationColumns+` FROM organisations WHERE stripe_customer_id = $1`, customerID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &o, nil
}

func (r *OrganisationRepo) List(ctx context.Context, f OrganisationFilter, p Page) ([]OrganisationWithCounts, int, error) {
	where := `WHERE ($1 OR o.org_delete = FALSE) AND ($2 = '' OR o.name ILIKE '%' || $2 || '%')`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM organisations o `+where, f.IncludeDeleted, f.Search); err != nil {
		return nil, 0, mapErr(err)
	}

	var rows []OrganisationWithCounts
	err := r.db.SelectContext(ctx, &rows, `
		SELECT o.id, o.name, o.email, o.phone, o.address, o.logo_key, o.plan, o.stripe_customer_id,
		       o.org_delete, o.deleted_at, o.created_at, o.updated_at,
		       (SELECT COUNT(*) FROM users u WHERE u.organisation_id = o.id AND u.user_deleted = FALSE) AS user_count,
		       (SELECT COUNT(*) FROM patients pt WHERE pt.organisation_id = o.id AND pt.deleted_at IS NULL) AS patient_count
		FROM organisations o `+where+`
		ORDER BY o.created_at DESC
		LIMIT $3 OFFSET $4`,
		f.IncludeDeleted, f.Search, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return rows, total, nil
}

func (r *OrganisationRepo) Update(ctx context.Context, o *Organisation) error {
	o.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE organisations
		SET name = :name, email = :email, phone = :phone, address = :address,
		    logo_key = :logo_key, updated_at = :updated_at
		WHERE id = :id`, o)
	return requireAffected(res, err)
}

// SetDeleted flips the org_delete flag and its timestamp together.
func (r *OrganisationRepo) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	var deletedAt *time.Time
	if deleted {
		now := time.Now().UTC()
		deletedAt = &now
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE organisations SET org_delete = $2, deleted_at = $3, updated_at = NOW()
		WHERE id = $1`, id, deleted, deletedAt)
	return requireAffected(res, err)
}

func (r *OrganisationRepo) SetPlan(ctx context.Context, id uuid.UUID, plan string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE organisations SET plan = $2, updated_at = NOW() WHERE id = $1`, id, plan)
	return requireAffected(res, err)
}

func (r *OrganisationRepo) SetStripeCustomer(ctx context.Context, id uuid.UUID, customerID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE organisations SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`, id, customerID)
	return requireAffected(res, err)
}

// Package repo is the PostgreSQL data layer. Each aggregate has its own
// repository type; Client bundles them around a single *sqlx.DB.
package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
	// ErrInUse is returned when a row cannot be removed because other rows
	// reference it.
	ErrInUse = errors.New("record is referenced by other records")
)

// Client bundles every repository over one connection pool.
type Client struct {
	db *sqlx.DB

	Organisations  *OrganisationRepo
	Users          *UserRepo
	Patients       *PatientRepo
	Observations   *ObservationRepo
	FluidBalance   *FluidBalanceRepo
	Drugs          *DrugRepo
	Prescriptions  *PrescriptionRepo
	Investigations *InvestigationRepo
	Sessions       *SessionRepo
	Notifications  *NotificationRepo
	ActivityLogs   *ActivityLogRepo
	Billing        *BillingRepo
}

func NewClient(db *sqlx.DB) *Client {
	return &Client{
		db:             db,
		Organisations:  &OrganisationRepo{db: db},
		Users:          &UserRepo{db: db},
		Patients:       &PatientRepo{db: db},
		Observations:   &ObservationRepo{db: db},
		FluidBalance:   &FluidBalanceRepo{db: db},
		Drugs:          &DrugRepo{db: db},
		Prescriptions:  &PrescriptionRepo{db: db},
		Investigations: &InvestigationRepo{db: db},
		Sessions:       &SessionRepo{db: db},
		Notifications:  &NotificationRepo{db: db},
		ActivityLogs:   &ActivityLogRepo{db: db},
		Billing:        &BillingRepo{db: db},
	}
}

// DB exposes the underlying handle for health checks.
func (c *Client) DB() *sqlx.DB { return c.db }

func (c *Client) Ping(ctx context.Context) error { return c.db.PingContext(ctx) }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// withTx runs fn in a transaction, rolling back on error or panic.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrInUse, pqErr.Constraint)
		}
	}
	return err
}

// requireAffected turns a zero-row update into ErrNotFound.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pagination
// ---------------------------------------------------------------------------

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

type Page struct {
	Page    int
	PerPage int
}

// Normalize applies defaults and bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.PerPage }

type Paginated[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

func NewPaginated[T any](items []T, total int, p Page) *Paginated[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PerPage > 0 {
		pages = int(math.Ceil(float64(total) / float64(p.PerPage)))
	}
	return &Paginated[T]{Items: items, Total: total, Page: p.Page, PerPage: p.PerPage, TotalPages: pages}
}

// ---------------------------------------------------------------------------
// JSONB
// ---------------------------------------------------------------------------

// JSONB stores V in a jsonb column.
type JSONB[T any] struct {
	V T
}

func NewJSONB[T any](v T) JSONB[T] { return JSONB[T]{V: v} }

func (j JSONB[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (j *JSONB[T]) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported source %T", src)
	}
	return json.Unmarshal(b, &j.V)
}

func (j JSONB[T]) MarshalJSON() ([]byte, error) { return json.Marshal(j.V) }

func (j *JSONB[T]) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &j.V) }

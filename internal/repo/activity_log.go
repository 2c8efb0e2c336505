package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type ActivityLog struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganisationID *uuid.UUID `db:"organisation_id" json:"organisation_id,omitempty"`
	UserID         *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Method         string     `db:"method" json:"method"`
	Route          string     `db:"route" json:"route"`
	Path           string     `db:"path" json:"path"`
	Entity         string     `db:"entity" json:"entity"`
	EntityID       string     `db:"entity_id" json:"entity_id"`
	StatusCode     int        `db:"status_code" json:"status_code"`
	IP             string     `db:"ip" json:"ip"`
	UserAgent      string     `db:"user_agent" json:"user_agent"`
	RequestID      string     `db:"request_id" json:"request_id"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

type ActivityLogFilter struct {
	OrganisationID *uuid.UUID
	UserID         *uuid.UUID
	Entity         string
	TimeRange
}

type ActivityLogRepo struct {
	db *sqlx.DB
}

const activityColumns = `id, organisation_id, user_id, method, route, path, entity, entity_id, status_code,
	ip, user_agent, request_id, created_at`

func (r *ActivityLogRepo) Create(ctx context.Context, l *ActivityLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.Must(uuid.NewV7())
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO activity_logs (`+activityColumns+`)
		VALUES (:id, :organisation_id, :user_id, :method, :route, :path, :entity, :entity_id, :status_code,
		        :ip, :user_agent, :request_id, :created_at)`, l)
	return mapErr(err)
}

func (r *ActivityLogRepo) List(ctx context.Context, f ActivityLogFilter, pg Page) ([]ActivityLog, int, error) {
	from, to := f.args()
	where := `WHERE ($1::uuid IS NULL OR organisation_id = $1)
		AND ($2::uuid IS NULL OR user_id = $2)
		AND ($3 = '' OR entity = $3)
		AND ($4::timestamptz IS NULL OR created_at >= $4)
		AND ($5::timestamptz IS NULL OR created_at <= $5)`
	args := []any{f.OrganisationID, f.UserID, f.Entity, from, to}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM activity_logs `+where, args...); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []ActivityLog
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+activityColumns+` FROM activity_logs `+where+` ORDER BY created_at DESC LIMIT $6 OFFSET $7`,
		append(args, pg.PerPage, pg.Offset())...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Notification struct {
	ID             uuid.UUID                `db:"id" json:"id"`
	UserID         uuid.UUID                `db:"user_id" json:"user_id"`
	OrganisationID *uuid.UUID               `db:"organisation_id" json:"organisation_id,omitempty"`
	Type           string                   `db:"type" json:"type"`
	Title          string                   `db:"title" json:"title"`
	Body           string                   `db:"body" json:"body"`
	Data           JSONB[map[string]string] `db:"data" json:"data"`
	ReadAt         *time.Time               `db:"read_at" json:"read_at,omitempty"`
	CreatedAt      time.Time                `db:"created_at" json:"created_at"`
}

type NotificationRepo struct {
	db *sqlx.DB
}

const notificationColumns = `id, user_id, organisation_id, type, title, body, data, read_at, created_at`

// CreateMany inserts one notification per recipient in a single transaction.
func (r *NotificationRepo) CreateMany(ctx context.Context, ns []Notification) error {
	if len(ns) == 0 {
		return nil
	}
	now := time.Now().UTC()
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for i := range ns {
			if ns[i].ID == uuid.Nil {
				ns[i].ID = uuid.Must(uuid.NewV7())
			}
			if ns[i].Data.V == nil {
				ns[i].Data.V = map[string]string{}
			}
			ns[i].CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO notifications (id, user_id, organisation_id, type, title, body, data, created_at)
				VALUES (:id, :user_id, :organisation_id, :type, :title, :body, :data, :created_at)`, ns[i]); err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

func (r *NotificationRepo) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, pg Page) ([]Notification, int, error) {
	where := `WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM notifications `+where, userID, unreadOnly); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []Notification
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+notificationColumns+` FROM notifications `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		userID, unreadOnly, pg.PerPage, pg.Offset())
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID)
	return n, mapErr(err)
}

// MarkRead is idempotent for already-read notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2`, id, userID)
	return requireAffected(res, err)
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}

func (r *NotificationRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	return requireAffected(res, err)
}

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganisationID *uuid.UUID `db:"organisation_id" json:"organisation_id,omitempty"`
	FirebaseUID    *string    `db:"firebase_uid" json:"-"`
	Email          string     `db:"email" json:"email"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	Phone          string     `db:"phone" json:"phone"`
	AvatarKey      *string    `db:"avatar_key" json:"avatar_key,omitempty"`
	Role           string     `db:"role" json:"role"`
	Status         string     `db:"status" json:"status"`
	UserDeleted    bool       `db:"user_deleted" json:"user_deleted"`
	DeletedAt      *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	LastLoginAt    *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// OrgID returns the organisation id or uuid.Nil for platform users.
func (u *User) OrgID() uuid.UUID {
	if u.OrganisationID == nil {
		return uuid.Nil
	}
	return *u.OrganisationID
}

type UserFilter struct {
	OrganisationID *uuid.UUID
	Role           string
	Status         string
	Search         string
	IncludeDeleted bool
}

type UserRepo struct {
	db *sqlx.DB
}

const userColumns = `id, organisation_id, firebase_uid, email, first_name, last_name, phone, avatar_key,
	role, status, user_deleted, deleted_at, last_login_at, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	if u.ID == uuid.Nil {
		u.ID = uuid.Must(uuid.NewV7())
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (id, organisation_id, firebase_uid, email, first_name, last_name, phone,
		                   role, status, created_at, updated_at)
		VALUES (:id, :organisation_id, :firebase_uid, :email, :first_name, :last_name, :phone,
		        :role, :status, :created_at, :updated_at)`, u)
	return mapErr(err)
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, `id = $1`, id)
}

func (r *UserRepo) GetByFirebaseUID(ctx context.Context, uid string) (*User, error) {
	return r.getBy(ctx, `firebase_uid = $1`, uid)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, `LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepo) getBy(ctx context.Context, cond string, arg any) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+cond, arg); err != nil {
		return nil, mapErr(err)
	}
	return &u, nil
}

func (r *UserRepo) List(ctx context.Context, f UserFilter, p Page) ([]User, int, error) {
	where := `WHERE ($1::uuid IS NULL OR organisation_id = $1)
		AND ($2 = '' OR role = $2)
		AND ($3 = '' OR status = $3)
		AND ($4 = '' OR email ILIKE '%' || $4 || '%' OR (first_name || ' ' || last_name) ILIKE '%' || $4 || '%')
		AND ($5 OR user_deleted = FALSE)`
	args := []any{f.OrganisationID, f.Role, f.Status, f.Search, f.IncludeDeleted}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users `+where, args...); err != nil {
		return nil, 0, mapErr(err)
	}

	var users []User
	err := r.db.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users `+where+` ORDER BY created_at DESC LIMIT $6 OFFSET $7`,
		append(args, p.PerPage, p.Offset())...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return users, total, nil
}

// ListIDsByRoles returns active users of an organisation holding any of roles.
func (r *UserRepo) ListIDsByRoles(ctx context.Context, orgID uuid.UUID, roles []string) ([]uuid.UUID, error) {
	query, args, err := sqlx.In(`
		SELECT id FROM users
		WHERE organisation_id = ? AND role IN (?) AND status = 'active' AND user_deleted = FALSE`,
		orgID, roles)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(query), args...); err != nil {
		return nil, mapErr(err)
	}
	return ids, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE users
		SET first_name = :first_name, last_name = :last_name, phone = :phone,
		    avatar_key = :avatar_key, updated_at = :updated_at
		WHERE id = :id`, u)
	return requireAffected(res, err)
}

func (r *UserRepo) SetRole(ctx context.Context, id uuid.UUID, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	return requireAffected(res, err)
}

func (r *UserRepo) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return requireAffected(res, err)
}

func (r *UserRepo) SetFirebaseUID(ctx context.Context, id uuid.UUID, uid string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET firebase_uid = $2, updated_at = NOW() WHERE id = $1`, id, uid)
	return requireAffected(res, err)
}

// SetDeleted flips user_deleted and deleted_at together.
func (r *UserRepo) SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) error {
	var deletedAt *time.Time
	if deleted {
		now := time.Now().UTC()
		deletedAt = &now
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET user_deleted = $2, deleted_at = $3, updated_at = NOW()
		WHERE id = $1`, id, deleted, deletedAt)
	return requireAffected(res, err)
}

func (r *UserRepo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return mapErr(err)
}

package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	SessionKindLive    = "live"
	SessionKindVirtual = "virtual"

	SessionStatusScheduled = "scheduled"
	SessionStatusLive      = "live"
	SessionStatusEnded     = "ended"
)

// Visibility maps a panel name to whether participants can see it.
type Visibility map[string]bool

type Session struct {
	ID             uuid.UUID             `db:"id" json:"id"`
	OrganisationID uuid.UUID             `db:"organisation_id" json:"organisation_id"`
	PatientID      *uuid.UUID            `db:"patient_id" json:"patient_id,omitempty"`
	Name           string                `db:"name" json:"name"`
	Kind           string                `db:"kind" json:"kind"`
	Scenario       string                `db:"scenario" json:"scenario"`
	Status         string                `db:"status" json:"status"`
	ScheduledAt    *time.Time            `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt      *time.Time            `db:"started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time            `db:"ended_at" json:"ended_at,omitempty"`
	JoinCodeHash   string                `db:"join_code_hash" json:"-"`
	VRSettings     JSONB[map[string]any] `db:"vr_settings" json:"vr_settings"`
	Visibility     JSONB[Visibility]     `db:"visibility" json:"visibility"`
	CreatedBy      uuid.UUID             `db:"created_by" json:"created_by"`
	DeletedAt      *time.Time            `db:"deleted_at" json:"-"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

type Participant struct {
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Role      string    `db:"role" json:"role"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

type SessionFilter struct {
	Status string
	Kind   string
}

type SessionRepo struct {
	db *sqlx.DB
}

const sessionColumns = `id, organisation_id, patient_id, name, kind, scenario, status, scheduled_at,
	started_at, ended_at, join_code_hash, vr_settings, visibility, created_by, deleted_at, created_at, updated_at`

func (r *SessionRepo) Create(ctx context.Context, s *Session) error {
	now := time.Now().UTC()
	if s.ID == uuid.Nil {
		s.ID = uuid.Must(uuid.NewV7())
	}
	if s.Status == "" {
		s.Status = SessionStatusScheduled
	}
	if s.VRSettings.V == nil {
		s.VRSettings.V = map[string]any{}
	}
	if s.Visibility.V == nil {
		s.Visibility.V = Visibility{}
	}
	s.CreatedAt, s.UpdatedAt = now, now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sessions (id, organisation_id, patient_id, name, kind, scenario, status, scheduled_at,
		    join_code_hash, vr_settings, visibility, created_by, created_at, updated_at)
		VALUES (:id, :organisation_id, :patient_id, :name, :kind, :scenario, :status, :scheduled_at,
		    :join_code_hash, :vr_settings, :visibility, :created_by, :created_at, :updated_at)`, s)
	return mapErr(err)
}

func (r *SessionRepo) Get(ctx context.Context, orgID, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL`, id, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// GetAny loads a session in any organisation, for platform-wide callers.
func (r *SessionRepo) GetAny(ctx context.Context, id uuid.UUID) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

// GetByJoinCodeHash finds an open session of the organisation.
func (r *SessionRepo) GetByJoinCodeHash(ctx context.Context, orgID uuid.UUID, hash string) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE join_code_hash = $1 AND organisation_id = $2 AND deleted_at IS NULL AND status <> 'ended'`,
		hash, orgID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &s, nil
}

func (r *SessionRepo) List(ctx context.Context, orgID uuid.UUID, f SessionFilter, pg Page) ([]Session, int, error) {
	where := `WHERE organisation_id = $1 AND deleted_at IS NULL
		AND ($2 = '' OR status = $2)
		AND ($3 = '' OR kind = $3)`
	args := []any{orgID, f.Status, f.Kind}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM sessions `+where, args...); err != nil {
		return nil, 0, mapErr(err)
	}

	var out []Session
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+sessionColumns+` FROM sessions `+where+` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		append(args, pg.PerPage, pg.Offset())...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return out, total, nil
}

func (r *SessionRepo) Update(ctx context.Context, s *Session) error {
	s.UpdatedAt = time.Now().UTC()
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE sessions
		SET name = :name, patient_id = :patient_id, scenario = :scenario, scheduled_at = :scheduled_at,
		    vr_settings = :vr_settings, updated_at = :updated_at
		WHERE id = :id AND organisation_id = :organisation_id AND deleted_at IS NULL`, s)
	return requireAffected(res, err)
}

// Start moves a scheduled session live.
func (r *SessionRepo) Start(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'live', started_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled' AND deleted_at IS NULL`, id, at)
	return requireAffected(res, err)
}

// End closes a live session.
func (r *SessionRepo) End(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET status = 'ended', ended_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'live' AND deleted_at IS NULL`, id, at)
	return requireAffected(res, err)
}

func (r *SessionRepo) SetVisibility(ctx context.Context, id uuid.UUID, v Visibility) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET visibility = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, NewJSONB(v))
	return requireAffected(res, err)
}

func (r *SessionRepo) SoftDelete(ctx context.Context, orgID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND organisation_id = $2 AND deleted_at IS NULL`, id, orgID)
	return requireAffected(res, err)
}

// ---------------------------------------------------------------------------
// Participants
// ---------------------------------------------------------------------------

// AddParticipant upserts the membership, updating the role on rejoin.
func (r *SessionRepo) AddParticipant(ctx context.Context, p *Participant) error {
	if p.JoinedAt.IsZero() {
		p.JoinedAt = time.Now().UTC()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO session_participants (session_id, user_id, role, joined_at)
		VALUES (:session_id, :user_id, :role, :joined_at)
		ON CONFLICT (session_id, user_id) DO UPDATE SET role = EXCLUDED.role`, p)
	return mapErr(err)
}

func (r *SessionRepo) GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*Participant, error) {
	var p Participant
	err := r.db.GetContext(ctx, &p, `
		SELECT sp.session_id, sp.user_id, u.first_name, u.last_name, sp.role, sp.joined_at
		FROM session_participants sp JOIN users u ON u.id = sp.user_id
		WHERE sp.session_id = $1 AND sp.user_id = $2`, sessionID, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *SessionRepo) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]Participant, error) {
	var out []Participant
	err := r.db.SelectContext(ctx, &out, `
		SELECT sp.session_id, sp.user_id, u.first_name, u.last_name, sp.role, sp.joined_at
		FROM session_participants sp JOIN users u ON u.id = sp.user_id
		WHERE sp.session_id = $1 ORDER BY sp.joined_at`, sessionID)
	if err != nil {
		return nil, mapErr(err)
	}
	return out, nil
}

func (r *SessionRepo) RemoveParticipant(ctx context.Context, sessionID, userID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM session_participants WHERE session_id = $1 AND user_id = $2`, sessionID, userID)
	return requireAffected(res, err)
}

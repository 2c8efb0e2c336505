package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/realtime"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/crypto"
	simredis "github.com/Alijeyrad/simward_backend/pkg/redis"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/util/codes"
)

const (
	RoleFacilitator = "facilitator"
	RoleParticipant = "participant"
	RoleObserver    = "observer"
)

// Panels are the patient record sections whose visibility faculty toggle
// during a session.
var Panels = []string{
	"observations",
	"prescriptions",
	"investigations",
	"notes",
	"fluid_balance",
	"patient_details",
}

// DefaultVisibility shows every panel.
func DefaultVisibility() repo.Visibility {
	return lo.SliceToMap(Panels, func(p string) (string, bool) { return p, true })
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	PatientID   *uuid.UUID     `json:"patient_id"`
	Scenario    string         `json:"scenario"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	VRSettings  map[string]any `json:"vr_settings"`
}

type UpdateRequest struct {
	Name        *string        `json:"name"`
	PatientID   *uuid.UUID     `json:"patient_id"`
	Scenario    *string        `json:"scenario"`
	ScheduledAt *time.Time     `json:"scheduled_at"`
	VRSettings  map[string]any `json:"vr_settings"`
}

type ListRequest struct {
	Status string
	Kind   string
	Page   repo.Page
}

// Created carries the plain join code. It is shown once; only its hash is
// stored.
type Created struct {
	*repo.Session
	JoinCode string `json:"join_code"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.SessionRepo.
type Store interface {
	Create(ctx context.Context, s *repo.Session) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*repo.Session, error)
	GetAny(ctx context.Context, id uuid.UUID) (*repo.Session, error)
	GetByJoinCodeHash(ctx context.Context, orgID uuid.UUID, hash string) (*repo.Session, error)
	List(ctx context.Context, orgID uuid.UUID, f repo.SessionFilter, pg repo.Page) ([]repo.Session, int, error)
	Update(ctx context.Context, s *repo.Session) error
	Start(ctx context.Context, id uuid.UUID, at time.Time) error
	End(ctx context.Context, id uuid.UUID, at time.Time) error
	SetVisibility(ctx context.Context, id uuid.UUID, v repo.Visibility) error
	SoftDelete(ctx context.Context, orgID, id uuid.UUID) error
	AddParticipant(ctx context.Context, p *repo.Participant) error
	GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*repo.Participant, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]repo.Participant, error)
	RemoveParticipant(ctx context.Context, sessionID, userID uuid.UUID) error
}

type Patients interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*repo.Patient, error)
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
}

// JoinCodes is satisfied by *simredis.JoinCodeCache.
type JoinCodes interface {
	Put(ctx context.Context, orgID uuid.UUID, hash string, sessionID uuid.UUID) error
	Lookup(ctx context.Context, orgID uuid.UUID, hash string) (uuid.UUID, error)
	Delete(ctx context.Context, orgID uuid.UUID, hash string) error
}

// Broadcaster is satisfied by *realtime.Hub.
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID uuid.UUID, event string, payload any) error
}

type Service interface {
	Create(ctx context.Context, scope *reqctx.Scope, req CreateRequest) (*Created, error)
	Get(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Session, error)
	List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.Session], error)
	Update(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, req UpdateRequest) (*repo.Session, error)
	Delete(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error

	Start(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Session, error)
	End(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Session, error)
	SetVisibility(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, changes repo.Visibility) (repo.Visibility, error)

	Join(ctx context.Context, scope *reqctx.Scope, code string) (*repo.Session, error)
	ListParticipants(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) ([]repo.Participant, error)
	AddParticipant(ctx context.Context, scope *reqctx.Scope, id, userID uuid.UUID, role string) (*repo.Participant, error)
	RemoveParticipant(ctx context.Context, scope *reqctx.Scope, id, userID uuid.UUID) error

	// CanJoinRoom gates the realtime room: participants and organisation
	// staff may join.
	CanJoinRoom(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (bool, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type sessionService struct {
	store     Store
	patients  Patients
	users     Users
	codes     *codes.Generator
	joinCodes JoinCodes
	hub       Broadcaster
	pub       events.Publisher
	now       func() time.Time
}

func New(store Store, patients Patients, users Users, gen *codes.Generator, joinCodes JoinCodes, hub Broadcaster, pub events.Publisher) Service {
	return &sessionService{
		store:     store,
		patients:  patients,
		users:     users,
		codes:     gen,
		joinCodes: joinCodes,
		hub:       hub,
		pub:       pub,
		now:       time.Now,
	}
}

func (s *sessionService) Create(ctx context.Context, scope *reqctx.Scope, req CreateRequest) (*Created, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	kind := lo.Ternary(req.Kind == "", repo.SessionKindLive, req.Kind)
	if kind != repo.SessionKindLive && kind != repo.SessionKindVirtual {
		return nil, ErrInvalidKind
	}
	if len(req.VRSettings) > 0 && kind != repo.SessionKindVirtual {
		return nil, ErrVRSettingsVirtualOnly
	}
	if err := s.checkPatient(ctx, scope, req.PatientID); err != nil {
		return nil, err
	}

	code, err := s.codes.JoinCode()
	if err != nil {
		return nil, fmt.Errorf("generate join code: %w", err)
	}

	sess := &repo.Session{
		OrganisationID: scope.OrgID,
		PatientID:      req.PatientID,
		Name:           name,
		Kind:           kind,
		Scenario:       strings.TrimSpace(req.Scenario),
		Status:         repo.SessionStatusScheduled,
		ScheduledAt:    req.ScheduledAt,
		JoinCodeHash:   crypto.Hash(code),
		VRSettings:     repo.NewJSONB(lo.Ternary(req.VRSettings == nil, map[string]any{}, req.VRSettings)),
		Visibility:     repo.NewJSONB(DefaultVisibility()),
		CreatedBy:      scope.UserID,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// The creator facilitates.
	if err := s.store.AddParticipant(ctx, &repo.Participant{SessionID: sess.ID, UserID: scope.UserID, Role: RoleFacilitator}); err != nil {
		return nil, fmt.Errorf("add facilitator: %w", err)
	}
	s.cacheJoinCode(ctx, sess)

	return &Created{Session: sess, JoinCode: code}, nil
}

func (s *sessionService) Get(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Session, error) {
	sess, err := s.store.Get(ctx, scope.OrgID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	return sess, err
}

func (s *sessionService) List(ctx context.Context, scope *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.Session], error) {
	pg := req.Page.Normalize()
	items, total, err := s.store.List(ctx, scope.OrgID, repo.SessionFilter{Status: req.Status, Kind: req.Kind}, pg)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return repo.NewPaginated(items, total, pg), nil
}

func (s *sessionService) Update(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, req UpdateRequest) (*repo.Session, error) {
	sess, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == repo.SessionStatusEnded {
		return nil, ErrEnded
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		sess.Name = name
	}
	if req.PatientID != nil {
		if err := s.checkPatient(ctx, scope, req.PatientID); err != nil {
			return nil, err
		}
		sess.PatientID = req.PatientID
	}
	if req.Scenario != nil {
		sess.Scenario = strings.TrimSpace(*req.Scenario)
	}
	if req.ScheduledAt != nil {
		sess.ScheduledAt = req.ScheduledAt
	}
	if req.VRSettings != nil {
		if sess.Kind != repo.SessionKindVirtual {
			return nil, ErrVRSettingsVirtualOnly
		}
		sess.VRSettings = repo.NewJSONB(req.VRSettings)
	}

	if err := s.store.Update(ctx, sess); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("update session: %w", err)
	}
	return sess, nil
}

func (s *sessionService) Delete(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) error {
	sess, err := s.Get(ctx, scope, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, scope.OrgID, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	s.dropJoinCode(ctx, sess)
	return nil
}

func (s *sessionService) Start(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Session, error) {
	sess, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != repo.SessionStatusScheduled {
		return nil, ErrAlreadyStarted
	}

	at := s.now().UTC()
	if err := s.store.Start(ctx, id, at); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAlreadyStarted
		}
		return nil, fmt.Errorf("start session: %w", err)
	}
	sess.Status, sess.StartedAt = repo.SessionStatusLive, &at

	s.announce(ctx, sess, realtime.EventSessionStarted, events.EventStarted)
	return sess, nil
}

func (s *sessionService) End(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (*repo.Session, error) {
	sess, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if sess.Status != repo.SessionStatusLive {
		return nil, ErrNotLive
	}

	at := s.now().UTC()
	if err := s.store.End(ctx, id, at); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotLive
		}
		return nil, fmt.Errorf("end session: %w", err)
	}
	sess.Status, sess.EndedAt = repo.SessionStatusEnded, &at

	s.dropJoinCode(ctx, sess)
	s.announce(ctx, sess, realtime.EventSessionEnded, events.EventEnded)
	return sess, nil
}

// SetVisibility merges changes into the stored panel map and pushes the
// full result to the room.
func (s *sessionService) SetVisibility(ctx context.Context, scope *reqctx.Scope, id uuid.UUID, changes repo.Visibility) (repo.Visibility, error) {
	for panel := range changes {
		if !lo.Contains(Panels, panel) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidPanel, panel)
		}
	}
	sess, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == repo.SessionStatusEnded {
		return nil, ErrEnded
	}

	v := DefaultVisibility()
	for k, on := range sess.Visibility.V {
		v[k] = on
	}
	for k, on := range changes {
		v[k] = on
	}
	if err := s.store.SetVisibility(ctx, id, v); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("set visibility: %w", err)
	}

	s.broadcast(ctx, id, realtime.EventToggleVisibility, v)
	return v, nil
}

func (s *sessionService) Join(ctx context.Context, scope *reqctx.Scope, code string) (*repo.Session, error) {
	code = codes.ParseCode(code)
	if code == "" {
		return nil, ErrInvalidJoinCode
	}
	hash := crypto.Hash(code)

	sess, err := s.lookupJoinCode(ctx, scope, hash)
	if err != nil {
		return nil, err
	}
	if sess.Status == repo.SessionStatusEnded {
		return nil, ErrInvalidJoinCode
	}

	// Rejoining keeps an existing role.
	if _, err := s.store.GetParticipant(ctx, sess.ID, scope.UserID); err == nil {
		return sess, nil
	}
	role := lo.Ternary(scope.Role == authorize.UserRoleObserver, RoleObserver, RoleParticipant)
	if err := s.store.AddParticipant(ctx, &repo.Participant{SessionID: sess.ID, UserID: scope.UserID, Role: role}); err != nil {
		return nil, fmt.Errorf("join session: %w", err)
	}
	return sess, nil
}

func (s *sessionService) ListParticipants(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) ([]repo.Participant, error) {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return nil, err
	}
	out, err := s.store.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []repo.Participant{}
	}
	return out, nil
}

func (s *sessionService) AddParticipant(ctx context.Context, scope *reqctx.Scope, id, userID uuid.UUID, role string) (*repo.Participant, error) {
	role = lo.Ternary(role == "", RoleParticipant, role)
	if !lo.Contains([]string{RoleFacilitator, RoleParticipant, RoleObserver}, role) {
		return nil, ErrInvalidRole
	}
	sess, err := s.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == repo.SessionStatusEnded {
		return nil, ErrEnded
	}
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && (u.UserDeleted || u.OrganisationID == nil || *u.OrganisationID != scope.OrgID)) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	p := &repo.Participant{SessionID: id, UserID: userID, Role: role, FirstName: u.FirstName, LastName: u.LastName}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, fmt.Errorf("add participant: %w", err)
	}
	return p, nil
}

func (s *sessionService) RemoveParticipant(ctx context.Context, scope *reqctx.Scope, id, userID uuid.UUID) error {
	if _, err := s.Get(ctx, scope, id); err != nil {
		return err
	}
	err := s.store.RemoveParticipant(ctx, id, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrParticipantNotFound
	}
	return err
}

func (s *sessionService) CanJoinRoom(ctx context.Context, scope *reqctx.Scope, id uuid.UUID) (bool, error) {
	var (
		sess *repo.Session
		err  error
	)
	// Superadmin scopes carry no organisation.
	if scope.IsSuperAdmin {
		sess, err = s.store.GetAny(ctx, id)
	} else {
		sess, err = s.store.Get(ctx, scope.OrgID, id)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if sess.Status == repo.SessionStatusEnded {
		return false, nil
	}
	if scope.IsSuperAdmin || authorize.IsStaffRole(scope.Role) {
		return true, nil
	}
	_, err = s.store.GetParticipant(ctx, id, scope.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *sessionService) checkPatient(ctx context.Context, scope *reqctx.Scope, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.patients.Get(ctx, scope.OrgID, *id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrPatientNotFound
	}
	return err
}

func (s *sessionService) lookupJoinCode(ctx context.Context, scope *reqctx.Scope, hash string) (*repo.Session, error) {
	if id, err := s.joinCodes.Lookup(ctx, scope.OrgID, hash); err == nil {
		if sess, err := s.store.Get(ctx, scope.OrgID, id); err == nil {
			return sess, nil
		}
	} else if !errors.Is(err, simredis.ErrJoinCodeNotCached) {
		slog.WarnContext(ctx, "session: join code cache lookup failed", "err", err)
	}

	sess, err := s.store.GetByJoinCodeHash(ctx, scope.OrgID, hash)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidJoinCode
	}
	if err != nil {
		return nil, err
	}
	s.cacheJoinCode(ctx, sess)
	return sess, nil
}

func (s *sessionService) cacheJoinCode(ctx context.Context, sess *repo.Session) {
	if err := s.joinCodes.Put(ctx, sess.OrganisationID, sess.JoinCodeHash, sess.ID); err != nil {
		slog.WarnContext(ctx, "session: caching join code failed", "session_id", sess.ID, "err", err)
	}
}

func (s *sessionService) dropJoinCode(ctx context.Context, sess *repo.Session) {
	if err := s.joinCodes.Delete(ctx, sess.OrganisationID, sess.JoinCodeHash); err != nil {
		slog.WarnContext(ctx, "session: dropping join code failed", "session_id", sess.ID, "err", err)
	}
}

// announce tells the room and publishes the domain event that fans out into
// participant notifications.
func (s *sessionService) announce(ctx context.Context, sess *repo.Session, roomEvent, domainEvent string) {
	payload := events.SessionChanged{
		SessionID:      sess.ID,
		OrganisationID: sess.OrganisationID,
		Name:           sess.Name,
		Status:         sess.Status,
	}
	s.broadcast(ctx, sess.ID, roomEvent, payload)
	events.PublishAsync(ctx, s.pub, events.Subject(events.EntitySession, domainEvent, sess.ID), payload)
}

func (s *sessionService) broadcast(ctx context.Context, id uuid.UUID, event string, payload any) {
	if err := s.hub.Broadcast(ctx, id, event, payload); err != nil {
		slog.WarnContext(ctx, "session: broadcast failed", "session_id", id, "event", event, "err", err)
	}
}

package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/events"
	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/firebase"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
	"github.com/Alijeyrad/simward_backend/pkg/util/phone"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateRequest struct {
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Phone          string     `json:"phone"`
	Role           string     `json:"role"`
	OrganisationID *uuid.UUID `json:"organisation_id"`
}

type UpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	AvatarKey *string `json:"avatar_key"`
}

type ListRequest struct {
	Role           string
	Status         string
	Search         string
	IncludeDeleted bool
	Page           repo.Page
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Store is satisfied by *repo.UserRepo.
type Store interface {
	Create(ctx context.Context, u *repo.User) error
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	GetByEmail(ctx context.Context, email string) (*repo.User, error)
	List(ctx context.Context, f repo.UserFilter, p repo.Page) ([]repo.User, int, error)
	UpdateProfile(ctx context.Context, u *repo.User) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetDeleted(ctx context.Context, id uuid.UUID, deleted bool) error
}

// Organisations is satisfied by *repo.OrganisationRepo.
type Organisations interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
}

// Every method takes the caller's scope: non-superadmins only ever see
// users of their own organisation.
type Service interface {
	Create(ctx context.Context, actor *reqctx.Scope, req CreateRequest) (*repo.User, error)
	Get(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) (*repo.User, error)
	List(ctx context.Context, actor *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.User], error)
	UpdateProfile(ctx context.Context, actor *reqctx.Scope, id uuid.UUID, req UpdateRequest) (*repo.User, error)
	ChangeRole(ctx context.Context, actor *reqctx.Scope, id uuid.UUID, role string) (*repo.User, error)
	SetStatus(ctx context.Context, actor *reqctx.Scope, id uuid.UUID, status string) (*repo.User, error)
	Delete(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) error
	Recover(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type userService struct {
	store  Store
	orgs   Organisations
	idp    firebase.IdentityProvider
	authz  authorize.IAuthorization
	events events.Publisher
}

func New(store Store, orgs Organisations, idp firebase.IdentityProvider, authz authorize.IAuthorization, pub events.Publisher) Service {
	return &userService{store: store, orgs: orgs, idp: idp, authz: authz, events: pub}
}

func (s *userService) Create(ctx context.Context, actor *reqctx.Scope, req CreateRequest) (*repo.User, error) {
	if !authorize.IsValidUserRole(req.Role) {
		return nil, ErrInvalidRole
	}
	if req.Role == authorize.UserRoleSuperAdmin && !actor.IsSuperAdmin {
		return nil, ErrSuperAdminOnly
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, ErrInvalidEmail
	}
	tel, err := phone.Normalize(req.Phone, "")
	if err != nil {
		return nil, ErrInvalidPhone
	}

	var orgID *uuid.UUID
	if req.Role != authorize.UserRoleSuperAdmin {
		id := actor.OrgID
		if actor.IsSuperAdmin && req.OrganisationID != nil {
			id = *req.OrganisationID
		}
		if id == uuid.Nil {
			return nil, ErrOrganisationRequired
		}
		if err := s.checkOrganisation(ctx, id); err != nil {
			return nil, err
		}
		orgID = &id
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	uid, err := s.idp.LookupByEmail(ctx, email)
	if errors.Is(err, firebase.ErrUserNotFound) {
		uid, err = s.idp.CreateAccount(ctx, firebase.NewAccount{
			Email:       email,
			DisplayName: strings.TrimSpace(req.FirstName + " " + req.LastName),
			PhoneNumber: tel,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("provision identity: %w", err)
	}

	u := &repo.User{
		OrganisationID: orgID,
		FirebaseUID:    &uid,
		Email:          email,
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Phone:          tel,
		Role:           req.Role,
		Status:         repo.UserStatusActive,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := authorize.AssignUserRole(ctx, s.authz, u.ID.String(), u.Role, orgString(u.OrganisationID)); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}

	events.PublishAsync(ctx, s.events, events.Subject(events.EntityUser, events.EventCreated, u.ID), events.UserCreated{
		UserID:         u.ID,
		OrganisationID: u.OrgID(),
		Role:           u.Role,
	})
	return u, nil
}

func (s *userService) Get(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) (*repo.User, error) {
	return s.getScoped(ctx, actor, id)
}

func (s *userService) List(ctx context.Context, actor *reqctx.Scope, req ListRequest) (*repo.Paginated[repo.User], error) {
	if req.Role != "" && !authorize.IsValidUserRole(req.Role) {
		return nil, ErrInvalidRole
	}
	f := repo.UserFilter{
		Role:           req.Role,
		Status:         req.Status,
		Search:         strings.TrimSpace(req.Search),
		IncludeDeleted: req.IncludeDeleted,
	}
	if actor.HasOrg() {
		orgID := actor.OrgID
		f.OrganisationID = &orgID
	}

	pg := req.Page.Normalize()
	users, total, err := s.store.List(ctx, f, pg)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return repo.NewPaginated(users, total, pg), nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor *reqctx.Scope, id uuid.UUID, req UpdateRequest) (*repo.User, error) {
	u, err := s.getScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		u.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		u.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		tel, err := phone.Normalize(*req.Phone, "")
		if err != nil {
			return nil, ErrInvalidPhone
		}
		u.Phone = tel
	}
	if req.AvatarKey != nil {
		u.AvatarKey = req.AvatarKey
	}

	if err := s.store.UpdateProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (s *userService) ChangeRole(ctx context.Context, actor *reqctx.Scope, id uuid.UUID, role string) (*repo.User, error) {
	if !authorize.IsValidUserRole(role) {
		return nil, ErrInvalidRole
	}
	if role == authorize.UserRoleSuperAdmin {
		// Superadmins live outside organisations; promote through seed-superadmin.
		return nil, ErrSuperAdminOnly
	}
	u, err := s.getModifiable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if u.Role == role {
		return u, nil
	}

	if err := s.store.SetRole(ctx, u.ID, role); err != nil {
		return nil, fmt.Errorf("set role: %w", err)
	}
	if err := authorize.SyncUserRole(ctx, s.authz, u.ID.String(), role, orgString(u.OrganisationID)); err != nil {
		return nil, fmt.Errorf("sync role: %w", err)
	}
	u.Role = role
	return u, nil
}

func (s *userService) SetStatus(ctx context.Context, actor *reqctx.Scope, id uuid.UUID, status string) (*repo.User, error) {
	if status != repo.UserStatusActive && status != repo.UserStatusInactive {
		return nil, ErrInvalidStatus
	}
	u, err := s.getModifiable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if u.Status == status {
		return u, nil
	}

	if err := s.store.SetStatus(ctx, u.ID, status); err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}
	s.setIdentityDisabled(ctx, u, status == repo.UserStatusInactive)
	u.Status = status
	return u, nil
}

// Delete soft-deletes the user. Existing sessions expire on their own; the
// auth middleware rejects deleted users on every request.
func (s *userService) Delete(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) error {
	u, err := s.getModifiable(ctx, actor, id)
	if err != nil {
		return err
	}
	if u.UserDeleted {
		return ErrAlreadyDeleted
	}

	if err := s.store.SetDeleted(ctx, u.ID, true); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := authorize.RevokeUserRoles(ctx, s.authz, u.ID.String()); err != nil {
		return fmt.Errorf("revoke roles: %w", err)
	}
	s.setIdentityDisabled(ctx, u, true)
	return nil
}

func (s *userService) Recover(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) error {
	u, err := s.getModifiable(ctx, actor, id)
	if err != nil {
		return err
	}
	if !u.UserDeleted {
		return ErrNotDeleted
	}
	if u.OrganisationID != nil {
		if err := s.checkOrganisation(ctx, *u.OrganisationID); err != nil {
			return err
		}
	}

	if err := s.store.SetDeleted(ctx, u.ID, false); err != nil {
		return fmt.Errorf("recover user: %w", err)
	}
	if err := authorize.AssignUserRole(ctx, s.authz, u.ID.String(), u.Role, orgString(u.OrganisationID)); err != nil {
		return fmt.Errorf("restore role: %w", err)
	}
	s.setIdentityDisabled(ctx, u, u.Status != repo.UserStatusActive)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *userService) getScoped(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) (*repo.User, error) {
	u, err := s.store.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if actor.HasOrg() && u.OrgID() != actor.OrgID {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// getModifiable is getScoped plus the rules shared by role, status and
// deletion changes.
func (s *userService) getModifiable(ctx context.Context, actor *reqctx.Scope, id uuid.UUID) (*repo.User, error) {
	if id == actor.UserID {
		return nil, ErrCannotModifySelf
	}
	u, err := s.getScoped(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if u.Role == authorize.UserRoleSuperAdmin {
		return nil, ErrCannotModifySuperAdmin
	}
	return u, nil
}

func (s *userService) checkOrganisation(ctx context.Context, id uuid.UUID) error {
	o, err := s.orgs.Get(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrOrganisationNotFound
	}
	if err != nil {
		return err
	}
	if o.OrgDelete {
		return ErrOrganisationDeleted
	}
	return nil
}

// setIdentityDisabled mirrors account state into Firebase. Failures are
// logged: the database row is authoritative and the auth middleware checks it.
func (s *userService) setIdentityDisabled(ctx context.Context, u *repo.User, disabled bool) {
	if u.FirebaseUID == nil {
		return
	}
	if err := s.idp.SetDisabled(ctx, *u.FirebaseUID, disabled); err != nil && !errors.Is(err, firebase.ErrUserNotFound) {
		slog.WarnContext(ctx, "firebase: set disabled failed", "user_id", u.ID, "disabled", disabled, "err", err)
	}
}

func orgString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

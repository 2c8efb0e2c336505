package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/internal/repo"
	"github.com/Alijeyrad/simward_backend/pkg/authorize"
	"github.com/Alijeyrad/simward_backend/pkg/firebase"
	pasetotoken "github.com/Alijeyrad/simward_backend/pkg/paseto"
	simredis "github.com/Alijeyrad/simward_backend/pkg/redis"
	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type LoginRequest struct {
	IDToken string `json:"id_token"`
}

type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *repo.User `json:"user"`
}

type Me struct {
	User         *repo.User         `json:"user"`
	Organisation *repo.Organisation `json:"organisation,omitempty"`
	Role         string             `json:"role"`
	RoleName     string             `json:"role_name"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User      *repo.User
	SessionID uuid.UUID
	Claims    *pasetotoken.Claims
}

// Scope is the caller's default tenant scope: their own organisation. The
// HTTP layer may retarget a superadmin through X-Organisation-ID.
func (p *Principal) Scope() *reqctx.Scope {
	s := &reqctx.Scope{
		UserID:       p.User.ID,
		Role:         p.User.Role,
		IsSuperAdmin: p.User.Role == authorize.UserRoleSuperAdmin,
	}
	if p.User.OrganisationID != nil {
		s.OrgID = *p.User.OrganisationID
	}
	return s
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// Users is satisfied by *repo.UserRepo.
type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*repo.User, error)
	GetByEmail(ctx context.Context, email string) (*repo.User, error)
	SetFirebaseUID(ctx context.Context, id uuid.UUID, uid string) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

// Organisations is satisfied by *repo.OrganisationRepo.
type Organisations interface {
	Get(ctx context.Context, id uuid.UUID) (*repo.Organisation, error)
}

type Service interface {
	// Login exchanges a Firebase ID token for an app session.
	Login(ctx context.Context, req LoginRequest) (*Session, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	// Authenticate verifies an access token, its backing session and the
	// current state of the account.
	Authenticate(ctx context.Context, token string) (*Principal, error)
	Me(ctx context.Context, userID uuid.UUID) (*Me, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	users    Users
	orgs     Organisations
	idp      firebase.IdentityProvider
	sessions *simredis.SessionStore
	paseto   *pasetotoken.Manager
}

func New(
	users Users,
	orgs Organisations,
	idp firebase.IdentityProvider,
	sessions *simredis.SessionStore,
	paseto *pasetotoken.Manager,
) Service {
	return &authService{
		users:    users,
		orgs:     orgs,
		idp:      idp,
		sessions: sessions,
		paseto:   paseto,
	}
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	id, err := s.idp.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, firebase.ErrInvalidToken) {
			return nil, ErrInvalidIDToken
		}
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	u, err := s.resolveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkActive(ctx, u); err != nil {
		return nil, err
	}

	sid, sessExp, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.paseto.IssueAccess(u.ID, &sid)
	if err != nil {
		_ = s.sessions.Delete(ctx, sid)
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if sessExp.Before(exp) {
		exp = sessExp
	}

	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		slog.WarnContext(ctx, "auth: touch last login failed", "user_id", u.ID, "err", err)
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now

	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, simredis.ErrSessionNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.paseto.Verify(token)
	if err != nil || claims.Type != pasetotoken.TokenTypeAccess || claims.SessionID == nil {
		return nil, ErrInvalidToken
	}

	owner, err := s.sessions.UserID(ctx, *claims.SessionID)
	if errors.Is(err, simredis.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if owner != claims.UserID {
		return nil, ErrInvalidToken
	}

	u, err := s.users.Get(ctx, claims.UserID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkActive(ctx, u); err != nil {
		return nil, err
	}

	return &Principal{User: u, SessionID: *claims.SessionID, Claims: claims}, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*Me, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotRegistered
	}
	if err != nil {
		return nil, err
	}

	out := &Me{User: u, Role: u.Role, RoleName: authorize.RoleDisplayNames[authorize.UserRoleToRBACRole[u.Role]]}
	if u.OrganisationID != nil {
		o, err := s.orgs.Get(ctx, *u.OrganisationID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return nil, err
		}
		out.Organisation = o
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// resolveUser finds the account by Firebase uid, falling back to the verified
// email on first login and linking the uid for next time.
func (s *authService) resolveUser(ctx context.Context, id *firebase.Identity) (*repo.User, error) {
	u, err := s.users.GetByFirebaseUID(ctx, id.UID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	if id.Email == "" {
		return nil, ErrUserNotRegistered
	}
	if !id.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	u, err = s.users.GetByEmail(ctx, id.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotRegistered
	}
	if err != nil {
		return nil, err
	}
	if u.FirebaseUID != nil && *u.FirebaseUID != id.UID {
		// Email matches a user linked to another Firebase account.
		return nil, ErrUserNotRegistered
	}

	if err := s.users.SetFirebaseUID(ctx, u.ID, id.UID); err != nil {
		return nil, fmt.Errorf("link firebase uid: %w", err)
	}
	uid := id.UID
	u.FirebaseUID = &uid
	return u, nil
}

func (s *authService) checkActive(ctx context.Context, u *repo.User) error {
	if u.UserDeleted {
		return ErrAccountDeleted
	}
	if u.Status != repo.UserStatusActive {
		return ErrAccountInactive
	}
	if u.OrganisationID == nil {
		return nil
	}
	o, err := s.orgs.Get(ctx, *u.OrganisationID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrOrganisationDeleted
	}
	if err != nil {
		return err
	}
	if o.OrgDelete {
		return ErrOrganisationDeleted
	}
	return nil
}

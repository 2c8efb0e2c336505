package authorize

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

var (
	ErrNoSubjectInContext = errors.New("no subject found in context")
	ErrNoScopeInContext   = errors.New("no organisation scope in context")
)

// SubjectFromContext extracts the GroupSubject (user ID) from context.
// Token claims win; the resolved scope is the fallback for background work
// that carries a scope but no token.
func SubjectFromContext(ctx context.Context) (GroupSubject, error) {
	id, err := UserIDFromContext(ctx)
	if err != nil {
		return "", err
	}
	return GroupSubject(id.String()), nil
}

// MustSubjectFromContext extracts the GroupSubject from context or panics.
// Use only behind the auth middleware.
func MustSubjectFromContext(ctx context.Context) GroupSubject {
	subject, err := SubjectFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return subject
}

// UserIDFromContext extracts the user ID as uuid.UUID from context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	if claims := reqctx.ClaimsFromContext(ctx); claims != nil {
		if id := claims.GetUserID(); id != uuid.Nil {
			return id, nil
		}
	}
	if s, ok := reqctx.ScopeFromContext(ctx); ok && s.UserID != uuid.Nil {
		return s.UserID, nil
	}
	return uuid.Nil, ErrNoSubjectInContext
}

// DomainFromContext returns the Casbin domain for the request scope: the
// organisation domain when one is resolved, sys otherwise.
func DomainFromContext(ctx context.Context) (Domain, error) {
	s, ok := reqctx.ScopeFromContext(ctx)
	if !ok {
		return "", ErrNoScopeInContext
	}
	if s.HasOrg() {
		return OrgDomain(s.OrgID.String()), nil
	}
	if s.IsSuperAdmin {
		return DomainSys, nil
	}
	return "", ErrNoScopeInContext
}

// EnforceInContext checks the caller of ctx against object/action in the
// scope's domain, returning ErrForbidden on denial.
func EnforceInContext(ctx context.Context, auth IAuthorization, object Resource, action Action) error {
	subject, err := SubjectFromContext(ctx)
	if err != nil {
		return err
	}
	domain, err := DomainFromContext(ctx)
	if err != nil {
		return err
	}
	return auth.MustEnforce(ctx, subject, domain, object, action)
}

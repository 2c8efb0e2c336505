package reqctx

import (
	"context"

	"github.com/google/uuid"
)

// Scope is the resolved tenant context of an authenticated request.
type Scope struct {
	// UserID is the caller.
	UserID uuid.UUID

	// OrgID is the organisation the request acts on. For a superadmin it is
	// taken from the X-Organisation-ID header; for everyone else it is the
	// caller's own organisation.
	OrgID uuid.UUID

	// Role is the caller's users.role value.
	Role string

	// IsSuperAdmin is true for platform superadmins.
	IsSuperAdmin bool
}

// HasOrg reports whether an organisation was resolved.
func (s *Scope) HasOrg() bool {
	return s != nil && s.OrgID != uuid.Nil
}

// WithScope stores the tenant scope in the context.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, keyScope, s)
}

// ScopeFromContext returns the scope, or nil, false when not set.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(keyScope).(*Scope)
	return s, ok && s != nil
}

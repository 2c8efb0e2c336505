package authorize

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/pkg/reqctx"
)

type testClaims struct {
	userID uuid.UUID
}

func (c testClaims) GetUserID() uuid.UUID     { return c.userID }
func (c testClaims) GetSessionID() *uuid.UUID { return nil }
func (c testClaims) GetTokenType() string     { return "access" }
func (c testClaims) IsExpired() bool          { return false }

func TestSubjectFromContext(t *testing.T) {
	validUUID := uuid.New()

	tests := []struct {
		name        string
		setupCtx    func() context.Context
		wantSubject GroupSubject
		wantErr     bool
	}{
		{
			name: "claims in context",
			setupCtx: func() context.Context {
				return reqctx.WithClaims(context.Background(), testClaims{userID: validUUID})
			},
			wantSubject: GroupSubject(validUUID.String()),
		},
		{
			name: "scope only",
			setupCtx: func() context.Context {
				return reqctx.WithScope(context.Background(), &reqctx.Scope{UserID: validUUID})
			},
			wantSubject: GroupSubject(validUUID.String()),
		},
		{
			name: "nothing in context",
			setupCtx: func() context.Context {
				return context.Background()
			},
			wantErr: true,
		},
		{
			name: "nil uuid in claims",
			setupCtx: func() context.Context {
				return reqctx.WithClaims(context.Background(), testClaims{userID: uuid.Nil})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, err := SubjectFromContext(tt.setupCtx())

			if tt.wantErr {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if subject != tt.wantSubject {
				t.Errorf("SubjectFromContext() = %q, want %q", subject, tt.wantSubject)
			}
		})
	}
}

func TestMustSubjectFromContext(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic but got none")
		}
	}()
	MustSubjectFromContext(context.Background())
}

func TestDomainFromContext(t *testing.T) {
	orgID := uuid.New()

	d, err := DomainFromContext(reqctx.WithScope(context.Background(), &reqctx.Scope{OrgID: orgID}))
	if err != nil || d != OrgDomain(orgID.String()) {
		t.Errorf("DomainFromContext(org) = %q, %v", d, err)
	}

	d, err = DomainFromContext(reqctx.WithScope(context.Background(), &reqctx.Scope{IsSuperAdmin: true}))
	if err != nil || d != DomainSys {
		t.Errorf("DomainFromContext(superadmin) = %q, %v", d, err)
	}

	_, err = DomainFromContext(reqctx.WithScope(context.Background(), &reqctx.Scope{UserID: uuid.New()}))
	if !errors.Is(err, ErrNoScopeInContext) {
		t.Errorf("expected ErrNoScopeInContext, got %v", err)
	}
}

func TestEnforceInContext(t *testing.T) {
	e := createTestEnforcer(t)
	auth, _ := NewAuthorization(e)
	ctx := context.Background()

	userID, orgID := uuid.New(), uuid.New()
	if err := AssignUserRole(ctx, auth, userID.String(), UserRoleObserver, orgID.String()); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := auth.AddPermission(ctx, RoleOrgObserver, WildcardDomain, ResourcePatient, ActionRead, EffectAllow); err != nil {
		t.Fatalf("add permission: %v", err)
	}

	scoped := reqctx.WithScope(ctx, &reqctx.Scope{UserID: userID, OrgID: orgID, Role: UserRoleObserver})

	if err := EnforceInContext(scoped, auth, ResourcePatient, ActionRead); err != nil {
		t.Errorf("expected read to be allowed, got %v", err)
	}
	if err := EnforceInContext(scoped, auth, ResourcePatient, ActionDelete); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

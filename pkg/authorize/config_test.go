package authorize

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simward_backend/config"
)

func TestOptionsFrom(t *testing.T) {
	o := OptionsFrom(config.AuthorizationConfig{
		EnableAudit:       true,
		PolicySyncEnabled: true,
		SuperadminBypass:  true,
	})
	if o.ModelPath != defaultModelPath {
		t.Errorf("ModelPath = %q, want default", o.ModelPath)
	}
	if !o.Audit || !o.Watch || !o.SuperadminBypass || o.TrackHealth {
		t.Errorf("unexpected options: %+v", o)
	}
}

func TestSuperadminBypassDisabled(t *testing.T) {
	ctx := context.Background()
	auth, err := newAuthorization(createTestEnforcer(t), false)
	if err != nil {
		t.Fatalf("newAuthorization: %v", err)
	}
	if _, err := auth.AddRoleForUserInDomain(ctx, "user:root", RoleSuperAdmin, DomainSys); err != nil {
		t.Fatalf("add role: %v", err)
	}
	if !auth.IsSuperAdmin(ctx, "user:root") {
		t.Fatal("expected superadmin grouping")
	}
	if auth.IsSuperAdmin(ctx, "user:nobody") || auth.IsSuperAdmin(ctx, "") {
		t.Fatal("unexpected superadmin grouping")
	}
	ok, err := auth.Enforce(ctx, "user:root", OrgDomain(uuid.NewString()), ResourcePatient, ActionRead)
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if ok {
		t.Error("superadmin passed without a policy while bypass is off")
	}
}

// Package authorizetest builds a file-backed enforcer seeded with the
// default policies, for tests of code that depends on IAuthorization.
package authorizetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/Alijeyrad/simward_backend/pkg/authorize"
)

const model = `[request_definition]
r = sub, dom, obj, act

[policy_definition]
p = sub, dom, obj, act, eft

[role_definition]
g = _, _, _
g2 = _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = (g(r.sub, p.sub, r.dom) || g2(r.sub, p.sub)) && (p.dom == "*" || p.dom == r.dom) && (p.obj == "*" || keyMatch2(r.obj, p.obj)) && (p.act == "*" || keyMatch(r.act, p.act))
`

// New returns an authorization seeded with DefaultPolicies. Policy changes
// stay in memory.
func New(t testing.TB) authorize.IAuthorization {
	t.Helper()

	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.conf")
	policyPath := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(modelPath, []byte(model), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if err := os.WriteFile(policyPath, nil, 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}

	e, err := casbin.NewDistributedEnforcer(modelPath, fileadapter.NewAdapter(policyPath))
	if err != nil {
		t.Fatalf("create enforcer: %v", err)
	}
	e.EnableAutoSave(false)

	auth, err := authorize.NewAuthorization(e)
	if err != nil {
		t.Fatalf("create authorization: %v", err)
	}
	if err := authorize.SeedDefaultPolicies(context.Background(), auth); err != nil {
		t.Fatalf("seed policies: %v", err)
	}
	return auth
}

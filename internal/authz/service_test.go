package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	return svc, db
}

func TestBuiltinRolesEnforcement(t *testing.T) {
	svc, _ := setupAuthzServiceTest(t)
	if err := svc.SetAdminRoles(3, []string{"factory_operator"}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	cases := []struct {
		object string
		action string
		want   bool
	}{
		{object: "/api/v1/admin/chips/stats/by-status", action: "GET", want: true},
		{object: "/api/v1/admin/chips/9/encode", action: "put", want: true},
		{object: "/api/v1/admin/chips/9/encode", action: "POST", want: false},
		{object: "/api/v1/admin/chips/9/archive", action: "PUT", want: false},
		{object: "/api/v1/admin/customers", action: "POST", want: false},
	}
	for _, item := range cases {
		allow, err := svc.EnforceAdmin(3, item.object, item.action)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", item.action, item.object, err)
		}
		if allow != item.want {
			t.Fatalf("enforce %s %s want %v got %v", item.action, item.object, item.want, allow)
		}
	}
}

func TestSetAdminRolesOverride(t *testing.T) {
	svc, _ := setupAuthzServiceTest(t)
	if err := svc.SetAdminRoles(2, []string{"logistics", "role:logistics"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:logistics" {
		t.Fatalf("roles want [role:logistics], got=%v", roles)
	}

	if err := svc.SetAdminRoles(2, []string{"SAV Technician"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetAdminRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:sav_technician" {
		t.Fatalf("roles want [role:sav_technician], got=%v", roles)
	}

	allow, err := svc.EnforceAdmin(2, "/admin/chips/5/ship-to-client", "PUT")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}
	allow, err = svc.EnforceAdmin(2, "/admin/chips/5/receive-sav", "PUT")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestSetAdminRolesRejectsUnknownRole(t *testing.T) {
	svc, _ := setupAuthzServiceTest(t)
	if err := svc.SetAdminRoles(4, []string{"logistics"}); err != nil {
		t.Fatalf("set role failed: %v", err)
	}

	err := svc.SetAdminRoles(4, []string{"sav_technician", "root"})
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	roles, err := svc.GetAdminRoles(4)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:logistics" {
		t.Fatalf("rejected update must keep previous roles, got=%v", roles)
	}
}

func TestGetAdminPoliciesIncludesInherited(t *testing.T) {
	svc, _ := setupAuthzServiceTest(t)
	if err := svc.SetAdminRoles(5, []string{"account_manager"}); err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	policies, err := svc.GetAdminPolicies(5)
	if err != nil {
		t.Fatalf("get admin policies failed: %v", err)
	}
	found := map[string]bool{}
	for _, item := range policies {
		found[item.Action+" "+item.Object] = true
	}
	for _, want := range []string{"GET /admin/*", "POST /admin/customers/:id/token"} {
		if !found[want] {
			t.Fatalf("missing policy %q in %+v", want, policies)
		}
	}

	rolePolicies, err := svc.GetRolePolicies("readonly_auditor")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	if len(rolePolicies) != 1 || rolePolicies[0].Object != "/admin/*" {
		t.Fatalf("unexpected auditor policies: %+v", rolePolicies)
	}
	if _, err := svc.GetRolePolicies("operations"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole for unknown role, got %v", err)
	}
}

func TestBootstrapRemovesStalePolicies(t *testing.T) {
	svc, db := setupAuthzServiceTest(t)
	if _, err := svc.enforcer.AddPolicy("role:logistics", "/admin/chips/:id/archive", "PUT"); err != nil {
		t.Fatalf("add stale policy failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("re-bootstrap failed: %v", err)
	}

	reloaded, err := NewService(db)
	if err != nil {
		t.Fatalf("reload authz service failed: %v", err)
	}
	policies, err := reloaded.GetRolePolicies("logistics")
	if err != nil {
		t.Fatalf("get role policies failed: %v", err)
	}
	for _, item := range policies {
		if item.Object == "/admin/chips/:id/archive" {
			t.Fatalf("stale policy should be removed: %+v", policies)
		}
	}

	roles := reloaded.ListRoles()
	if len(roles) != len(BuiltinRoleSeeds()) {
		t.Fatalf("roles want %d got %d", len(BuiltinRoleSeeds()), len(roles))
	}
	if roles[0].Role != "role:account_manager" || len(roles[0].Inherits) != 1 {
		t.Fatalf("unexpected first role: %+v", roles[0])
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/chips/:id", want: "/admin/chips/:id"},
		{in: "/admin/chips/:id", want: "/admin/chips/:id"},
		{in: "admin/orders", want: "/admin/orders"},
		{in: "/api/v1", want: "/"},
		{in: "/api/v1beta", want: "/api/v1beta"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestNormalizeRole(t *testing.T) {
	if got, err := NormalizeRole(" SAV Technician "); err != nil || got != "role:sav_technician" {
		t.Fatalf("normalize role got=%q err=%v", got, err)
	}
	if _, err := NormalizeRole("role:"); err == nil {
		t.Fatalf("expected empty role to be rejected")
	}
}

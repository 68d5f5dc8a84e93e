package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 芯片后台角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "readonly_auditor",
			Policies: []Policy{
				{Object: "/admin/*", Action: "GET"},
			},
		},
		{
			Role:     "factory_operator",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/chips/register-single", Action: "POST"},
				{Object: "/admin/chips/import-excel", Action: "POST"},
				{Object: "/admin/chips/parse-excel", Action: "POST"},
				{Object: "/admin/chips/:id/receive-from-supplier", Action: "PUT"},
				{Object: "/admin/chips/:id/encode", Action: "PUT"},
				{Object: "/admin/supplier-orders", Action: "POST"},
			},
		},
		{
			Role:     "logistics",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/chips/:id/ship-to-client", Action: "PUT"},
				{Object: "/admin/orders", Action: "POST"},
			},
		},
		{
			Role:     "sav_technician",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/chips/:id/receive-sav", Action: "PUT"},
				{Object: "/admin/chips/:id/replace", Action: "PUT"},
				{Object: "/admin/chips/:id/archive", Action: "PUT"},
				{Object: "/admin/chips/:id/deactivate", Action: "PUT"},
				{Object: "/admin/security-events/:id/notified", Action: "PUT"},
			},
		},
		{
			Role:     "account_manager",
			Inherits: []string{"readonly_auditor"},
			Policies: []Policy{
				{Object: "/admin/customers", Action: "POST"},
				{Object: "/admin/customers/:id/subscription", Action: "PUT"},
				{Object: "/admin/customers/:id/control-points", Action: "POST"},
				{Object: "/admin/customers/:id/token", Action: "POST"},
			},
		},
	}
}

func indexRoleSeeds(seeds []RoleSeed) (map[string]RoleSeed, error) {
	index := make(map[string]RoleSeed, len(seeds))
	for _, seed := range seeds {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return nil, err
		}
		if _, dup := index[role]; dup {
			return nil, fmt.Errorf("duplicate builtin role %s", role)
		}
		index[role] = seed
	}
	for role, seed := range index {
		for _, parent := range seed.Inherits {
			normalized, err := NormalizeRole(parent)
			if err != nil {
				return nil, err
			}
			if _, ok := index[normalized]; !ok {
				return nil, fmt.Errorf("builtin role %s inherits unknown role %s", role, normalized)
			}
		}
	}
	return index, nil
}

// BootstrapBuiltinRoles 将库内角色策略同步为预置矩阵：补齐缺失项，移除已下线的策略与继承
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	for role, seed := range s.roles {
		if err := s.syncRoleInheritance(role, seed); err != nil {
			return err
		}
		if err := s.syncRolePolicies(role, seed); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) syncRoleInheritance(role string, seed RoleSeed) error {
	desired := make(map[string]struct{}, len(seed.Inherits))
	for _, parent := range seed.Inherits {
		normalized, err := NormalizeRole(parent)
		if err != nil {
			return err
		}
		desired[normalized] = struct{}{}
	}

	links, err := s.enforcer.GetFilteredNamedGroupingPolicy("g", 0, role)
	if err != nil {
		return fmt.Errorf("list role inheritance failed: %w", err)
	}
	for _, link := range links {
		if len(link) < 2 {
			continue
		}
		if _, keep := desired[link[1]]; keep {
			delete(desired, link[1])
			continue
		}
		if _, err := s.enforcer.RemoveNamedGroupingPolicy("g", link[0], link[1]); err != nil {
			return fmt.Errorf("remove stale role inheritance failed: %w", err)
		}
	}
	for parent := range desired {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parent); err != nil {
			return fmt.Errorf("link role inheritance failed: %w", err)
		}
	}
	return nil
}

func (s *Service) syncRolePolicies(role string, seed RoleSeed) error {
	desired := make(map[[2]string]struct{}, len(seed.Policies))
	for _, policy := range seed.Policies {
		action := NormalizeAction(policy.Action)
		if action == "" {
			return fmt.Errorf("builtin policy action is required for %s", role)
		}
		desired[[2]string{NormalizeObject(policy.Object), action}] = struct{}{}
	}

	current, err := s.enforcer.GetFilteredPolicy(0, role)
	if err != nil {
		return fmt.Errorf("list role policies failed: %w", err)
	}
	for _, rule := range current {
		if len(rule) < 3 {
			continue
		}
		key := [2]string{rule[1], rule[2]}
		if _, keep := desired[key]; keep {
			delete(desired, key)
			continue
		}
		if _, err := s.enforcer.RemovePolicy(rule[0], rule[1], rule[2]); err != nil {
			return fmt.Errorf("remove stale role policy failed: %w", err)
		}
	}
	for key := range desired {
		if _, err := s.enforcer.AddPolicy(role, key[0], key[1]); err != nil {
			return fmt.Errorf("add builtin policy failed: %w", err)
		}
	}
	return nil
}

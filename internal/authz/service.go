package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	adminSubjectFmt = "admin:%d"
	rolePrefix      = "role:"
)

// 后台路由鉴权模型：角色可继承，资源按 keyMatch2 匹配 :id 形式的路径
const chipConsoleRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	// ErrUnknownRole 角色不在预置角色表中
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnavailable 授权服务未初始化
	ErrUnavailable = errors.New("authz service unavailable")
)

// Policy 权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// RoleInfo 预置角色概览
type RoleInfo struct {
	Role        string   `json:"role"`
	Inherits    []string `json:"inherits"`
	PolicyCount int      `json:"policy_count"`
}

// Service 后台操作员授权服务
// 角色集合固定为 BuiltinRoleSeeds，接口层只允许为管理员分配角色
type Service struct {
	enforcer *casbin.SyncedEnforcer
	roles    map[string]RoleSeed
}

// NewService 创建授权服务
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}

	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(chipConsoleRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}

	roles, err := indexRoleSeeds(BuiltinRoleSeeds())
	if err != nil {
		return nil, err
	}
	return &Service{enforcer: enforcer, roles: roles}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Enforce 执行授权判断
func (s *Service) Enforce(sub, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	return s.enforcer.Enforce(strings.TrimSpace(sub), NormalizeObject(obj), NormalizeAction(act))
}

// EnforceAdmin 按管理员 ID 判定授权
func (s *Service) EnforceAdmin(adminID uint, obj, act string) (bool, error) {
	return s.Enforce(SubjectForAdmin(adminID), obj, act)
}

// ResolveRole 规范化角色名并确认其为预置角色
func (s *Service) ResolveRole(role string) (string, error) {
	normalized, err := NormalizeRole(role)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", ErrUnavailable
	}
	if _, ok := s.roles[normalized]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRole, normalized)
	}
	return normalized, nil
}

// ListRoles 预置角色列表
func (s *Service) ListRoles() []RoleInfo {
	if s == nil {
		return nil
	}
	items := make([]RoleInfo, 0, len(s.roles))
	for role, seed := range s.roles {
		inherits := make([]string, 0, len(seed.Inherits))
		for _, parent := range seed.Inherits {
			if normalized, err := NormalizeRole(parent); err == nil {
				inherits = append(inherits, normalized)
			}
		}
		items = append(items, RoleInfo{Role: role, Inherits: inherits, PolicyCount: len(seed.Policies)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Role < items[j].Role })
	return items
}

// GetRolePolicies 查询角色生效策略（含继承）
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	normalized, err := s.ResolveRole(role)
	if err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.collectPolicies([]string{normalized})
}

// SetAdminRoles 覆盖设置管理员角色，任一角色非法时不做任何修改
func (s *Service) SetAdminRoles(adminID uint, roles []string) error {
	if adminID == 0 {
		return fmt.Errorf("admin id is required")
	}
	if err := s.ready(); err != nil {
		return err
	}

	resolved := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized, err := s.ResolveRole(role)
		if err != nil {
			return err
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		resolved = append(resolved, normalized)
	}

	subject := SubjectForAdmin(adminID)
	if _, err := s.enforcer.RemoveFilteredNamedGroupingPolicy("g", 0, subject); err != nil {
		return fmt.Errorf("clear admin roles failed: %w", err)
	}
	for _, role := range resolved {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", subject, role); err != nil {
			return fmt.Errorf("assign admin role failed: %w", err)
		}
	}
	return nil
}

// GetAdminRoles 查询管理员直接分配的角色
func (s *Service) GetAdminRoles(adminID uint) ([]string, error) {
	if adminID == 0 {
		return nil, fmt.Errorf("admin id is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	roles, err := s.enforcer.GetRolesForUser(SubjectForAdmin(adminID))
	if err != nil {
		return nil, fmt.Errorf("get admin roles failed: %w", err)
	}
	filtered := make([]string, 0, len(roles))
	for _, role := range roles {
		if _, ok := s.roles[role]; ok {
			filtered = append(filtered, role)
		}
	}
	sort.Strings(filtered)
	return filtered, nil
}

// GetAdminPolicies 查询管理员生效策略（直连 + 角色 + 继承）
func (s *Service) GetAdminPolicies(adminID uint) ([]Policy, error) {
	roles, err := s.GetAdminRoles(adminID)
	if err != nil {
		return nil, err
	}
	return s.collectPolicies(append([]string{SubjectForAdmin(adminID)}, roles...))
}

// collectPolicies 沿预置继承链收集策略并去重排序
func (s *Service) collectPolicies(subjects []string) ([]Policy, error) {
	visited := make(map[string]struct{})
	policyMap := make(map[string]Policy)
	queue := append([]string(nil), subjects...)
	for len(queue) > 0 {
		subject := queue[0]
		queue = queue[1:]
		if _, ok := visited[subject]; ok {
			continue
		}
		visited[subject] = struct{}{}

		rules, err := s.enforcer.GetFilteredPolicy(0, subject)
		if err != nil {
			return nil, fmt.Errorf("get policies for %s failed: %w", subject, err)
		}
		for _, item := range convertPolicies(rules) {
			policyMap[item.Subject+"|"+item.Object+"|"+item.Action] = item
		}
		if seed, ok := s.roles[subject]; ok {
			for _, parent := range seed.Inherits {
				if normalized, err := NormalizeRole(parent); err == nil {
					queue = append(queue, normalized)
				}
			}
		}
	}

	result := make([]Policy, 0, len(policyMap))
	for _, item := range policyMap {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Object == result[j].Object {
			if result[i].Action == result[j].Action {
				return result[i].Subject < result[j].Subject
			}
			return result[i].Action < result[j].Action
		}
		return result[i].Object < result[j].Object
	})
	return result, nil
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

// SubjectForAdmin 管理员主体标识
func SubjectForAdmin(adminID uint) string {
	return fmt.Sprintf(adminSubjectFmt, adminID)
}

// NormalizeRole 统一角色名称为 role:<name>
func NormalizeRole(role string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.TrimPrefix(normalized, rolePrefix)
	if normalized == "" {
		return "", fmt.Errorf("role is required")
	}
	return rolePrefix + normalized, nil
}

// NormalizeObject 统一授权资源路径，去掉 /api/v1 前缀
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if normalized == "" {
		return "/"
	}
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if strings.HasPrefix(normalized, apiV1Prefix+"/") {
		return strings.TrimPrefix(normalized, apiV1Prefix)
	}
	return normalized
}

// NormalizeAction 统一授权动作
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}

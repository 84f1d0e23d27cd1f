package workflow

// 角色词表（与认证系统签发的 Token roles 声明一致）
const (
	RoleAdmin             = "admin"
	RoleSchemeFaculty     = "scheme_faculty"
	RoleSchemeApprover1   = "scheme_approver_1"
	RoleSchemeApprover2   = "scheme_approver_2"
	RoleOutcomeApprover   = "outcome_approver"
	RoleDepartmentManager = "department_manager"
	RoleProgrammeUploader = "programme_uploader"
	RoleViewer            = "viewer"
)

var knownRoles = map[string]bool{
	RoleAdmin:             true,
	RoleSchemeFaculty:     true,
	RoleSchemeApprover1:   true,
	RoleSchemeApprover2:   true,
	RoleOutcomeApprover:   true,
	RoleDepartmentManager: true,
	RoleProgrammeUploader: true,
	RoleViewer:            true,
}

// IsKnownRole 判断角色是否属于词表
func IsKnownRole(role string) bool {
	return knownRoles[role]
}

// RoleSet 角色集合
type RoleSet map[string]struct{}

// NewRoleSet 由角色列表构造集合
func NewRoleSet(roles ...string) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has 是否包含角色
func (s RoleSet) Has(role string) bool {
	_, ok := s[role]
	return ok
}

// Intersects 两个集合是否有交集
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for r := range small {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// Privileged 管理员可越过冻结学期限制
func (s RoleSet) Privileged() bool {
	return s.Has(RoleAdmin)
}

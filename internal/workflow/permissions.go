package workflow

// Action 非状态迁移类操作
type Action string

const (
	ActionCreateItem      Action = "create scheme items"
	ActionUpdateItem      Action = "update scheme items"
	ActionDeleteItem      Action = "delete scheme items"
	ActionEditOutcomes    Action = "edit course outcomes"
	ActionEditMapping     Action = "edit outcome mappings"
	ActionFreezeSemesters Action = "freeze semesters"
	ActionRenameAttribute Action = "rename attributes"
	ActionViewSchemeItems Action = "view scheme items"
)

var permissionsTable = map[Action]RoleSet{
	ActionCreateItem:      NewRoleSet(RoleAdmin, RoleSchemeFaculty, RoleProgrammeUploader),
	ActionUpdateItem:      NewRoleSet(RoleAdmin, RoleSchemeFaculty, RoleProgrammeUploader),
	ActionDeleteItem:      NewRoleSet(RoleAdmin, RoleSchemeFaculty),
	ActionEditOutcomes:    NewRoleSet(RoleAdmin, RoleSchemeFaculty),
	ActionEditMapping:     NewRoleSet(RoleAdmin, RoleSchemeFaculty),
	ActionFreezeSemesters: NewRoleSet(RoleAdmin),
	ActionRenameAttribute: NewRoleSet(RoleAdmin),
	ActionViewSchemeItems: NewRoleSet(RoleAdmin, RoleSchemeFaculty, RoleSchemeApprover1, RoleSchemeApprover2,
		RoleOutcomeApprover, RoleDepartmentManager, RoleProgrammeUploader, RoleViewer),
}

// Permits 角色集合是否允许执行该操作
func Permits(action Action, roles RoleSet) bool {
	allowed, ok := permissionsTable[action]
	if !ok {
		return false
	}
	return roles.Intersects(allowed)
}

// EditableStatus 课程字段只能在草稿或退回修改状态下编辑
func EditableStatus(status string) bool {
	return status == StatusDraft || status == StatusRequestedChanges
}

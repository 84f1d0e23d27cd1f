package workflow

// EntityKind 受状态机约束的实体种类
type EntityKind string

const (
	KindSchemeItem     EntityKind = "scheme_item"
	KindOutcomeMapping EntityKind = "outcome_mapping"
)

// 状态
const (
	StatusDraft              = "DRAFT"
	StatusWaitingForApproval = "WAITING_FOR_APPROVAL"
	StatusApproved           = "APPROVED"
	StatusConfirmed          = "CONFIRMED"
	StatusRequestedChanges   = "REQUESTED_CHANGES"
)

var states = map[EntityKind]map[string]bool{
	KindSchemeItem: {
		StatusDraft:              true,
		StatusWaitingForApproval: true,
		StatusApproved:           true,
		StatusConfirmed:          true,
		StatusRequestedChanges:   true,
	},
	KindOutcomeMapping: {
		StatusDraft:              true,
		StatusWaitingForApproval: true,
		StatusApproved:           true,
		StatusRequestedChanges:   true,
	},
}

// Transition 一条允许的迁移边及其所需角色
type Transition struct {
	Kind  EntityKind
	From  string
	To    string
	Roles RoleSet
}

type edge struct {
	kind     EntityKind
	from, to string
}

var transitionsTable = []Transition{
	// 课程审批
	{Kind: KindSchemeItem, From: StatusDraft, To: StatusWaitingForApproval, Roles: NewRoleSet(RoleAdmin, RoleSchemeFaculty)},
	{Kind: KindSchemeItem, From: StatusRequestedChanges, To: StatusWaitingForApproval, Roles: NewRoleSet(RoleAdmin, RoleSchemeFaculty)},
	{Kind: KindSchemeItem, From: StatusWaitingForApproval, To: StatusApproved, Roles: NewRoleSet(RoleAdmin, RoleSchemeApprover1)},
	{Kind: KindSchemeItem, From: StatusWaitingForApproval, To: StatusRequestedChanges, Roles: NewRoleSet(RoleAdmin, RoleSchemeApprover1)},
	{Kind: KindSchemeItem, From: StatusApproved, To: StatusConfirmed, Roles: NewRoleSet(RoleAdmin, RoleSchemeApprover2)},
	{Kind: KindSchemeItem, From: StatusApproved, To: StatusRequestedChanges, Roles: NewRoleSet(RoleAdmin, RoleSchemeApprover2)},
	{Kind: KindSchemeItem, From: StatusConfirmed, To: StatusRequestedChanges, Roles: NewRoleSet(RoleAdmin)},

	// CO-PO 映射审批
	{Kind: KindOutcomeMapping, From: StatusDraft, To: StatusWaitingForApproval, Roles: NewRoleSet(RoleAdmin, RoleSchemeFaculty)},
	{Kind: KindOutcomeMapping, From: StatusRequestedChanges, To: StatusWaitingForApproval, Roles: NewRoleSet(RoleAdmin, RoleSchemeFaculty)},
	{Kind: KindOutcomeMapping, From: StatusWaitingForApproval, To: StatusApproved, Roles: NewRoleSet(RoleAdmin, RoleOutcomeApprover)},
	{Kind: KindOutcomeMapping, From: StatusWaitingForApproval, To: StatusRequestedChanges, Roles: NewRoleSet(RoleAdmin, RoleOutcomeApprover)},
	{Kind: KindOutcomeMapping, From: StatusApproved, To: StatusRequestedChanges, Roles: NewRoleSet(RoleAdmin)},
}

var transitionIndex = func() map[edge]Transition {
	idx := make(map[edge]Transition, len(transitionsTable))
	for _, tr := range transitionsTable {
		idx[edge{tr.Kind, tr.From, tr.To}] = tr
	}
	return idx
}()

// IsValidState 状态是否属于该实体的状态集
func IsValidState(kind EntityKind, state string) bool {
	return states[kind][state]
}

// TransitionFor 查找 (kind, from, to) 对应的迁移
func TransitionFor(kind EntityKind, from, to string) (Transition, bool) {
	tr, ok := transitionIndex[edge{kind, from, to}]
	return tr, ok
}

// IsTransitionAllowed 迁移已声明、角色有交集且实体当前状态等于 from
func IsTransitionAllowed(kind EntityKind, current, from, to string, roles RoleSet) bool {
	tr, ok := TransitionFor(kind, from, to)
	if !ok {
		return false
	}
	return current == from && roles.Intersects(tr.Roles)
}

// CanMove 以实体当前状态为 from 检查到 to 的迁移
func CanMove(kind EntityKind, current, to string, roles RoleSet) bool {
	return IsTransitionAllowed(kind, current, current, to, roles)
}

// RequiresReason 迁入 REQUESTED_CHANGES 时必须给出原因
func RequiresReason(to string) bool {
	return to == StatusRequestedChanges
}

// Targets 从 from 出发、roles 可达的全部目标状态
func Targets(kind EntityKind, from string, roles RoleSet) []string {
	var out []string
	for _, tr := range transitionsTable {
		if tr.Kind == kind && tr.From == from && roles.Intersects(tr.Roles) {
			out = append(out, tr.To)
		}
	}
	return out
}

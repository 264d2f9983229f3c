package organization

// Role is a member's role inside an organization.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

// Permission is a granular action inside an organization.
type Permission string

const (
	PermTasksRead            Permission = "tasks.read"
	PermTasksCreate          Permission = "tasks.create"
	PermTasksEdit            Permission = "tasks.edit"
	PermTasksDelete          Permission = "tasks.delete"
	PermTasksAssign          Permission = "tasks.assign"
	PermTasksCreateSubtask   Permission = "tasks.create_subtask"
	PermTasksChangeType      Permission = "tasks.change_type"
	PermTasksRelate          Permission = "tasks.relate"
	PermTasksManageChecklist Permission = "tasks.manage_checklist"
	PermMembersView          Permission = "members.view"
	PermMembersInvite        Permission = "members.invite"
	PermMembersManage        Permission = "members.manage"
	PermMembersRemove        Permission = "members.remove"
	PermProjectsCreate       Permission = "projects.create"
	PermProjectsEdit         Permission = "projects.edit"
	PermProjectsDelete       Permission = "projects.delete"
	PermProjectsArchive      Permission = "projects.archive"
	PermAnalyticsView        Permission = "analytics.view"
	PermAnalyticsExport      Permission = "analytics.export"
	PermOrgSettings          Permission = "org.settings"
	PermOrgDelete            Permission = "org.delete"
	PermAuditLogView         Permission = "audit_log.view"
)

var taskAuthoring = []Permission{
	PermTasksRead, PermTasksCreate, PermTasksEdit, PermTasksDelete, PermTasksAssign,
	PermTasksCreateSubtask, PermTasksChangeType, PermTasksRelate, PermTasksManageChecklist,
}

var rolePermissions = map[Role][]Permission{
	RoleGuest: {PermTasksRead, PermMembersView},
	RoleMember: {
		PermTasksRead, PermTasksCreate, PermTasksEdit, PermTasksAssign,
		PermMembersView, PermAnalyticsView,
	},
	RoleManager: append(append([]Permission{}, taskAuthoring...),
		PermMembersView, PermMembersInvite,
		PermProjectsCreate, PermProjectsEdit,
		PermAnalyticsView, PermAnalyticsExport,
	),
	RoleAdmin: append(append([]Permission{}, taskAuthoring...),
		PermMembersView, PermMembersInvite, PermMembersManage, PermMembersRemove,
		PermProjectsCreate, PermProjectsEdit, PermProjectsDelete, PermProjectsArchive,
		PermAnalyticsView, PermAnalyticsExport,
		PermOrgSettings, PermAuditLogView,
	),
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleMember, RoleManager, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// Can reports whether the role grants p. Owners hold every permission.
func (r Role) Can(p Permission) bool {
	if r == RoleOwner {
		return true
	}
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// Permissions lists the permissions of a non-owner role.
func (r Role) Permissions() []Permission {
	return append([]Permission(nil), rolePermissions[r]...)
}

package model

// Permission names checked by the API. Roles grant them through the
// role_permissions table.
const (
	PermissionScheduleCreate = "schedule:create"
	PermissionScheduleRead   = "schedule:read"
	PermissionVisitCreate    = "visit:create"
	PermissionVisitRead      = "visit:read"
	PermissionHolidayManage  = "holiday:manage"
)

// AllPermissions lists every permission in the order they are seeded.
var AllPermissions = []string{
	PermissionScheduleCreate,
	PermissionScheduleRead,
	PermissionVisitCreate,
	PermissionVisitRead,
	PermissionHolidayManage,
}

package authcore

// Permission names recognized by the default catalog. Callers replacing
// the catalog via [Builder.WithPermissions] may register any names they
// want, up to the 64-bit registry width.
const (
	// PermManageUsers is an exported constant or variable used by the authentication core.
	PermManageUsers = "manage_users"
	// PermManageBackups is an exported constant or variable used by the authentication core.
	PermManageBackups = "manage_backups"
	// PermManageSettings is an exported constant or variable used by the authentication core.
	PermManageSettings = "manage_settings"
	// PermViewLogs is an exported constant or variable used by the authentication core.
	PermViewLogs = "view_logs"
	// PermViewStudents is an exported constant or variable used by the authentication core.
	PermViewStudents = "view_students"
	// PermManageStudents is an exported constant or variable used by the authentication core.
	PermManageStudents = "manage_students"
	// PermManageAttendance is an exported constant or variable used by the authentication core.
	PermManageAttendance = "manage_attendance"
	// PermManageGrades is an exported constant or variable used by the authentication core.
	PermManageGrades = "manage_grades"
	// PermViewReports is an exported constant or variable used by the authentication core.
	PermViewReports = "view_reports"
)

// DefaultPermissions returns the permission names registered when the
// builder is given no explicit catalog.
func DefaultPermissions() []string {
	return []string{
		PermManageUsers,
		PermManageBackups,
		PermManageSettings,
		PermViewLogs,
		PermViewStudents,
		PermManageStudents,
		PermManageAttendance,
		PermManageGrades,
		PermViewReports,
	}
}

// DefaultRoles returns the role→permission assignments used when the
// builder is given no explicit role map. Programmers hold the full set;
// supervisors administer students; teachers work their own classes.
func DefaultRoles() map[string][]string {
	return map[string][]string{
		string(RoleProgrammer): DefaultPermissions(),
		string(RoleSupervisor): {
			PermViewStudents,
			PermManageStudents,
			PermManageAttendance,
			PermManageGrades,
			PermViewReports,
			PermViewLogs,
		},
		string(RoleTeacher): {
			PermViewStudents,
			PermManageAttendance,
			PermManageGrades,
			PermViewReports,
		},
	}
}

package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleEmployee       = "employee"
	RoleHRManager      = "hr_manager"
	RolePayrollOfficer = "payroll_officer"
	RoleAdmin          = "admin"
	RoleSuperAdmin     = "super_admin"
	RoleAuditor        = "auditor" // read-only access to the audit trail
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// AuditReaders may list and inspect audit records.
var AuditReaders = []string{RoleAdmin, RoleHRManager, RoleAuditor}

// AuditAdmins may delete audit records.
var AuditAdmins = []string{RoleAdmin}

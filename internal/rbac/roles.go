package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleAdmin runs the office: full access, including billing.
	RoleAdmin = "admin"
	// RoleManager handles day-to-day operations and approvals.
	RoleManager = "manager"
	// RoleAgent works the phones: calls, dispatch, contacts.
	RoleAgent = "agent"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

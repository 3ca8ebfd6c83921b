package rbac

// Role names. Keep these stable; they are part of the ops API contract.
const (
	// RoleAdmin manages widget configs and may trigger any ops endpoint.
	RoleAdmin = "admin"

	// RoleReconciler is held by the scheduled job that triggers reconcile
	// passes; it cannot touch widget configs.
	RoleReconciler = "reconciler"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

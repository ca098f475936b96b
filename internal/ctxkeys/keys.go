// Package ctxkeys defines typed context keys shared between middleware and handlers.
// This avoids import cycles: both middleware and handlers import this package,
// but neither imports the other for context key types.
package ctxkeys

import "context"

// Key is a typed string used as context key to prevent collisions.
type Key string

const (
	UserID   Key = "userID"
	UserRole Key = "userRole"
	UserName Key = "userName"
)

// GetUserID returns the authenticated user's id, or "" when unauthenticated.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserID).(string)
	return id
}

// GetUserRole returns the authenticated user's role, or "" when unauthenticated.
func GetUserRole(ctx context.Context) string {
	role, _ := ctx.Value(UserRole).(string)
	return role
}

// GetUserName returns the authenticated user's display name.
func GetUserName(ctx context.Context) string {
	name, _ := ctx.Value(UserName).(string)
	return name
}

// ValidRoles lists all valid role strings.
var ValidRoles = map[string]bool{
	"student": true,
	"staff":   true,
	"warden":  true,
	"admin":   true,
}

// RoleLevel maps role names to permission levels.
// Hierarchy: admin > warden > staff > student.
var RoleLevel = map[string]int{
	"student": 1,
	"staff":   2,
	"warden":  3,
	"admin":   4,
}

// IsElevated reports whether the role may perform warden-level operations,
// such as closing a complaint directly.
func IsElevated(role string) bool {
	return RoleLevel[role] >= RoleLevel["warden"]
}

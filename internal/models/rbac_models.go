package models

import "time"

// Role is a named bundle of permission strings. System roles are seeded and
// cannot be edited by tenants.
type Role struct {
	ID          string   `json:"id" firestore:"-"`
	Name        string   `json:"name" firestore:"name"`
	Description string   `json:"description,omitempty" firestore:"description,omitempty"`
	Permissions []string `json:"permissions" firestore:"permissions"`
	IsSystem    bool     `json:"isSystem" firestore:"isSystem"`
}

// TeamMember links a user to a team with an optional team-scoped role that
// overrides the user's default account role inside that team.
type TeamMember struct {
	ID     string `json:"id" firestore:"-"`
	UserID string `json:"userId" firestore:"userId"`
	TeamID string `json:"teamId" firestore:"teamId"`
	RoleID string `json:"roleId,omitempty" firestore:"roleId,omitempty"`
}

// ACLEntry is a resource-scoped permission grant to a user, a team, or a
// role, independent of global role-based permissions.
type ACLEntry struct {
	ID           string   `json:"id" firestore:"-"`
	ResourceType string   `json:"resourceType" firestore:"resourceType"` // e.g. "key", "folder"
	ResourceID   string   `json:"resourceId" firestore:"resourceId"`
	UserID       string   `json:"userId,omitempty" firestore:"userId,omitempty"`
	TeamID       string   `json:"teamId,omitempty" firestore:"teamId,omitempty"`
	RoleID       string   `json:"roleId,omitempty" firestore:"roleId,omitempty"`
	Permissions  []string `json:"permissions" firestore:"permissions"`
}

// KeyGrant shares a specific key with a team. The key remains exclusively
// owned by its user; the grant only makes it visible to the team with the
// listed permissions.
type KeyGrant struct {
	ID          string    `json:"id" firestore:"-"`
	KeyID       string    `json:"keyId" firestore:"keyId"`
	TeamID      string    `json:"teamId" firestore:"teamId"`
	Permissions []string  `json:"permissions" firestore:"permissions"`
	GrantedBy   string    `json:"grantedBy" firestore:"grantedBy"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

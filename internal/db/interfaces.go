package db

import (
	"context"

	"keyvault-backend-go/internal/models"
)

// KeyQuery narrows key lookups. OwnerID is always required. Environment is a
// hard equality filter when set; the zero value means "any environment".
type KeyQuery struct {
	Name        string
	FolderID    string
	OwnerID     string
	Environment models.Environment
}

// ACLQuery scopes ACL lookups to a principal: their user ID, their active
// team (if any), and the roles they hold.
type ACLQuery struct {
	UserID  string
	TeamID  string
	RoleIDs []string
}

// FolderRepository is the folder-store contract the resolver walks.
type FolderRepository interface {
	Create(ctx context.Context, folder *models.Folder) (string, error)
	GetByID(ctx context.Context, folderID, ownerID string) (*models.Folder, error)
	// FindProjectByName matches a root folder (empty parentId) by exact name.
	FindProjectByName(ctx context.Context, name, ownerID string) (*models.Folder, error)
	// FindSubfolder matches a child of parentID by exact name.
	FindSubfolder(ctx context.Context, name, parentID, ownerID string) (*models.Folder, error)
	ListProjects(ctx context.Context, ownerID string) ([]*models.Folder, error)
	ListChildren(ctx context.Context, parentID, ownerID string) ([]*models.Folder, error)
	Update(ctx context.Context, folder *models.Folder) error
	Delete(ctx context.Context, folderID string) error
}

// KeyRepository is the key-store contract.
type KeyRepository interface {
	Create(ctx context.Context, key *models.Key) (string, error)
	// GetByID fetches a key scoped to its owner. An empty ownerID skips the
	// ownership filter; callers must authorize that separately (team grants).
	GetByID(ctx context.Context, keyID, ownerID string) (*models.Key, error)
	// FindKey returns the single key matching the query, or (nil, nil).
	FindKey(ctx context.Context, q KeyQuery) (*models.Key, error)
	// ListKeys returns keys in q.FolderID, optionally filtered by environment.
	ListKeys(ctx context.Context, q KeyQuery) ([]*models.Key, error)
	Update(ctx context.Context, key *models.Key) error
	Delete(ctx context.Context, keyID string) error
	// RelocateToRoot clears folderId on every key in the folder. Used by the
	// folder-delete cascade: keys are preserved, not deleted.
	RelocateToRoot(ctx context.Context, folderID, ownerID string) error
}

// UserRepository resolves account records for session principals.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// RoleRepository resolves the permission strings attached to a role.
type RoleRepository interface {
	GetRolePermissions(ctx context.Context, roleID string) ([]string, error)
}

// TeamRepository resolves team membership for team-scoped role lookup.
type TeamRepository interface {
	// GetMemberRole returns the team-scoped role ID for the user, or "" when
	// the user has no role override in that team.
	GetMemberRole(ctx context.Context, userID, teamID string) (string, error)
}

// ACLRepository resolves resource-level access-control entries.
type ACLRepository interface {
	ListForPrincipal(ctx context.Context, q ACLQuery) ([]*models.ACLEntry, error)
	// FindForResource returns the ACL entry for the exact resource scoped to
	// the principal, or (nil, nil).
	FindForResource(ctx context.Context, resourceType, resourceID string, q ACLQuery) (*models.ACLEntry, error)
}

// GrantRepository resolves team-level key sharing grants.
type GrantRepository interface {
	// FindForKey returns the grant sharing keyID with teamID, or (nil, nil).
	FindForKey(ctx context.Context, keyID, teamID string) (*models.KeyGrant, error)
}

// APITokenRepository resolves legacy bearer tokens.
type APITokenRepository interface {
	FindByToken(ctx context.Context, token string) (*models.APIToken, error)
	TouchLastUsed(ctx context.Context, tokenID string) error
}

// AuditRepository persists audit and access-log records.
type AuditRepository interface {
	Create(ctx context.Context, entry models.AuditLog) error
	CreateAccessLog(ctx context.Context, entry models.AccessLog) error
}

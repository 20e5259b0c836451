package core

import (
	"context"

	"keyvault-backend-go/internal/models"
)

// PathResolver interprets a slash path plus optional environment as a
// navigation instruction over the principal's folder tree.
type PathResolver interface {
	// Resolve returns exactly one of a Resolution or a ResolveError; errors
	// are structured values, never raw store failures.
	Resolve(ctx context.Context, req ResolveRequest) (*Resolution, *ResolveError)
}

// PermissionService is the permission evaluator: it produces the effective
// permission set for a principal and answers authorization questions over it.
type PermissionService interface {
	// LoadPermissions unions role-based, principal-embedded and ACL-sourced
	// permissions. Sub-lookup failures degrade to empty sets (fail closed);
	// this method never fails the request.
	LoadPermissions(ctx context.Context, principal *models.Principal, teamID string) PermissionSet
	// CheckResourceAccess reports whether the principal may act on the exact
	// resource: an ACL entry for it plus any required permission, or all
	// required permissions held globally.
	CheckResourceAccess(ctx context.Context, set PermissionSet, principal *models.Principal, teamID, resourceType, resourceID string, required []string) bool
	// LogAccess records an authorization decision. Write-only side channel;
	// failures are swallowed.
	LogAccess(ctx context.Context, entry models.AccessLog)
}

// FolderService manages the folder hierarchy.
type FolderService interface {
	CreateFolder(ctx context.Context, ownerID string, req models.CreateFolderRequest) (*models.Folder, error)
	GetFolder(ctx context.Context, ownerID, folderID string) (*models.FolderNode, error)
	ListProjects(ctx context.Context, ownerID string) ([]*models.Folder, error)
	UpdateFolder(ctx context.Context, ownerID, folderID string, req models.UpdateFolderRequest) (*models.Folder, error)
	// DeleteFolder cascades: child keys are relocated to root, child folders
	// are deleted transitively.
	DeleteFolder(ctx context.Context, ownerID, folderID string) error
	// GetFolderTree builds the subtree rooted at folderID with cycle
	// detection and a depth cap.
	GetFolderTree(ctx context.Context, ownerID, folderID string) (*models.FolderNode, error)
}

// KeyService manages secret records. Values are encrypted on write and
// decrypted only by GetKey.
type KeyService interface {
	CreateKey(ctx context.Context, ownerID string, req models.CreateKeyRequest) (*models.Key, error)
	GetKey(ctx context.Context, ownerID, keyID string) (*models.Key, string, error) // returns key and decrypted value
	// GetSharedKey reads a key owned by someone else through a team grant
	// carrying keys:read; without such a grant the key behaves as missing.
	GetSharedKey(ctx context.Context, principalID, teamID, keyID string) (*models.Key, string, error)
	ListKeys(ctx context.Context, ownerID, folderID string, environment models.Environment) ([]*models.Key, error)
	UpdateKey(ctx context.Context, ownerID, keyID string, req models.UpdateKeyRequest) (*models.Key, error)
	DeleteKey(ctx context.Context, ownerID, keyID string) error
}

// AuditService records audit and access-log entries, fanning out to the
// audit store and, when configured, a message queue.
type AuditService interface {
	CreateAuditLog(ctx context.Context, entry models.AuditLog) error
	// RecordAccessDecision is fire-and-forget: it never returns an error.
	RecordAccessDecision(ctx context.Context, entry models.AccessLog)
}

// EncryptionService wraps the at-rest cipher.
type EncryptionService interface {
	Encrypt(plainText string, key []byte) (string, error)
	Decrypt(cipherTextBase64 string, key []byte) (string, error)
}

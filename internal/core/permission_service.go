package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
	"keyvault-backend-go/pkg/cache"
)

// permissionCacheTTL keeps cached permission sets short-lived so revocations
// take effect within a minute.
const permissionCacheTTL = 60 * time.Second

// permissionService evaluates effective permissions for a principal. The
// effective set is the union of three sources: permissions attached to the
// principal's role (team-scoped role first, account role as fallback),
// permissions embedded in the principal itself (token-based auth), and
// permissions granted through ACL entries. Every sub-lookup degrades to an
// empty contribution on failure: an outage can deny access, never widen it.
type permissionService struct {
	roleRepo  db.RoleRepository
	teamRepo  db.TeamRepository
	aclRepo   db.ACLRepository
	grantRepo db.GrantRepository
	auditSvc  AuditService
	permCache cache.Cache // may be nil
	logger    *zap.Logger
}

// NewPermissionService creates a new PermissionService instance. permCache
// may be nil to disable caching.
func NewPermissionService(roleRepo db.RoleRepository, teamRepo db.TeamRepository, aclRepo db.ACLRepository, grantRepo db.GrantRepository, auditSvc AuditService, permCache cache.Cache, logger *zap.Logger) PermissionService {
	return &permissionService{
		roleRepo:  roleRepo,
		teamRepo:  teamRepo,
		aclRepo:   aclRepo,
		grantRepo: grantRepo,
		auditSvc:  auditSvc,
		permCache: permCache,
		logger:    logger,
	}
}

func permissionCacheKey(principalID, teamID string) string {
	return fmt.Sprintf("perms:%s:%s", principalID, teamID)
}

func (s *permissionService) LoadPermissions(ctx context.Context, principal *models.Principal, teamID string) PermissionSet {
	if principal == nil {
		return NewPermissionSet()
	}

	if cached := s.cachedPermissions(ctx, principal.ID, teamID); cached != nil {
		return cached
	}

	set := NewPermissionSet()

	// Embedded permissions (API tokens, JWT claims) apply as-is.
	for _, p := range principal.Permissions {
		set.Add(p)
	}

	roleID := s.effectiveRoleID(ctx, principal, teamID)
	if roleID != "" {
		perms, err := s.roleRepo.GetRolePermissions(ctx, roleID)
		if err != nil {
			s.logger.Warn("role permission lookup failed, treating as empty",
				zap.String("roleId", roleID),
				zap.String("userId", principal.ID),
				zap.Error(err))
		}
		for _, p := range perms {
			set.Add(p)
		}
	}

	entries, err := s.aclRepo.ListForPrincipal(ctx, db.ACLQuery{
		UserID:  principal.ID,
		TeamID:  teamID,
		RoleIDs: roleIDs(roleID),
	})
	if err != nil {
		s.logger.Warn("acl lookup failed, treating as empty",
			zap.String("userId", principal.ID),
			zap.Error(err))
	}
	for _, entry := range entries {
		for _, p := range entry.Permissions {
			set.Add(p)
		}
	}

	s.storePermissions(ctx, principal.ID, teamID, set)
	return set
}

// effectiveRoleID resolves the role governing this request: the team-scoped
// role when the principal acts within a team, else the account role.
func (s *permissionService) effectiveRoleID(ctx context.Context, principal *models.Principal, teamID string) string {
	if teamID != "" {
		teamRole, err := s.teamRepo.GetMemberRole(ctx, principal.ID, teamID)
		if err != nil {
			s.logger.Warn("team role lookup failed, falling back to account role",
				zap.String("userId", principal.ID),
				zap.String("teamId", teamID),
				zap.Error(err))
		} else if teamRole != "" {
			return teamRole
		}
	}
	return principal.Role
}

func roleIDs(roleID string) []string {
	if roleID == "" {
		return nil
	}
	return []string{roleID}
}

func (s *permissionService) cachedPermissions(ctx context.Context, principalID, teamID string) PermissionSet {
	if s.permCache == nil {
		return nil
	}
	raw, err := s.permCache.Get(ctx, permissionCacheKey(principalID, teamID))
	if err != nil {
		s.logger.Warn("permission cache read failed", zap.Error(err))
		return nil
	}
	if raw == "" {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		s.logger.Warn("permission cache entry is corrupt, ignoring", zap.Error(err))
		return nil
	}
	return NewPermissionSet(perms...)
}

func (s *permissionService) storePermissions(ctx context.Context, principalID, teamID string, set PermissionSet) {
	if s.permCache == nil {
		return
	}
	raw, err := json.Marshal(set.List())
	if err != nil {
		return
	}
	if err := s.permCache.Set(ctx, permissionCacheKey(principalID, teamID), string(raw), permissionCacheTTL); err != nil {
		s.logger.Warn("permission cache write failed", zap.Error(err))
	}
}

func (s *permissionService) CheckResourceAccess(ctx context.Context, set PermissionSet, principal *models.Principal, teamID, resourceType, resourceID string, required []string) bool {
	if principal == nil {
		return false
	}

	// Global permissions alone are sufficient.
	if set.HasAll(required) {
		return true
	}

	roleID := s.effectiveRoleID(ctx, principal, teamID)
	entry, err := s.aclRepo.FindForResource(ctx, resourceType, resourceID, db.ACLQuery{
		UserID:  principal.ID,
		TeamID:  teamID,
		RoleIDs: roleIDs(roleID),
	})
	if err != nil {
		s.logger.Warn("resource acl lookup failed, denying",
			zap.String("resourceType", resourceType),
			zap.String("resourceId", resourceID),
			zap.String("userId", principal.ID),
			zap.Error(err))
		return false
	}
	// An ACL entry scopes the principal to the resource; holding any one of
	// the required permissions in the effective set then grants.
	if entry != nil && set.HasAny(required) {
		return true
	}

	// Keys shared with the principal's team carry their own permission list.
	if resourceType == "key" && teamID != "" && s.grantRepo != nil {
		grant, err := s.grantRepo.FindForKey(ctx, resourceID, teamID)
		if err != nil {
			s.logger.Warn("key grant lookup failed, denying",
				zap.String("resourceId", resourceID),
				zap.String("teamId", teamID),
				zap.Error(err))
			return false
		}
		if grant != nil {
			return NewPermissionSet(grant.Permissions...).HasAny(required)
		}
	}

	return false
}

func (s *permissionService) LogAccess(ctx context.Context, entry models.AccessLog) {
	if s.auditSvc == nil {
		return
	}
	s.auditSvc.RecordAccessDecision(ctx, entry)
}

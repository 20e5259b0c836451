package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/middleware"
	"keyvault-backend-go/internal/models"
)

// accessReadPermissions is the coarse gate checked before any tree walk: the
// principal needs at least one of these (or a wildcard covering one).
var accessReadPermissions = []string{core.PermKeysRead, core.PermFoldersRead}

// AccessHandler serves the path-based access endpoint: it authorizes the
// principal, delegates to the path resolver, and maps the outcome to an HTTP
// response.
type AccessHandler struct {
	resolver core.PathResolver
	permSvc  core.PermissionService
	auditSvc core.AuditService
	logger   *zap.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(resolver core.PathResolver, permSvc core.PermissionService, auditSvc core.AuditService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		resolver: resolver,
		permSvc:  permSvc,
		auditSvc: auditSvc,
		logger:   logger,
	}
}

// ResolvePath handles GET /access?path=...&environment=...&type=...
func (h *AccessHandler) ResolvePath(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}

	path := c.Query("path")

	set := h.permSvc.LoadPermissions(c.Request.Context(), principal, principal.TeamID)
	if !set.HasAny(accessReadPermissions) {
		h.logDecision(c, principal, path, "denied")
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Insufficient permissions to read keys or folders"})
		return
	}
	h.logDecision(c, principal, path, "success")

	if path == "" {
		h.respondResolveError(c, core.ErrMissingPath())
		return
	}

	res, rerr := h.resolver.Resolve(c.Request.Context(), core.ResolveRequest{
		Principal:      principal,
		Path:           path,
		RawEnvironment: c.Query("environment"),
		Type:           core.ParseResolveType(c.Query("type")),
	})
	if rerr != nil {
		h.respondResolveError(c, rerr)
		return
	}

	if res.Kind == core.KindKey && res.Key != nil {
		if err := h.auditSvc.CreateAuditLog(c.Request.Context(), models.AuditLog{
			UserID:     principal.ID,
			Action:     "KEY_ACCESS",
			TargetType: "key",
			TargetID:   res.Key.ID,
			IPAddress:  c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Details: map[string]interface{}{
				"path":        res.Path,
				"environment": res.Environment,
			},
		}); err != nil {
			h.logger.Warn("failed to record key access audit entry",
				zap.String("keyId", res.Key.ID),
				zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, newAccessResponse(res))
}

func (h *AccessHandler) respondResolveError(c *gin.Context, rerr *core.ResolveError) {
	c.JSON(rerr.Status, AccessErrorResponse{Success: false, ResolveError: rerr})
}

func (h *AccessHandler) logDecision(c *gin.Context, principal *models.Principal, path, result string) {
	action := "access_granted"
	if result != "success" {
		action = "access_denied"
	}
	h.permSvc.LogAccess(c.Request.Context(), models.AccessLog{
		UserID:       principal.ID,
		Action:       action,
		ResourceType: "path",
		ResourceID:   path,
		Permissions:  accessReadPermissions,
		Result:       result,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
		Metadata: map[string]interface{}{
			"requestId": middleware.RequestIDFromContext(c),
		},
	})
}

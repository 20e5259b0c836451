package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/models"
)

// authorize enforces a coarse permission on a CRUD handler. On denial it
// writes the 403 response, records the decision, and returns false.
func authorize(c *gin.Context, permSvc core.PermissionService, principal *models.Principal, required string) bool {
	set := permSvc.LoadPermissions(c.Request.Context(), principal, principal.TeamID)
	granted := set.Has(required)

	result := "success"
	action := "access_granted"
	if !granted {
		result = "denied"
		action = "access_denied"
	}
	permSvc.LogAccess(c.Request.Context(), models.AccessLog{
		UserID:       principal.ID,
		Action:       action,
		ResourceType: "endpoint",
		ResourceID:   c.FullPath(),
		Permissions:  []string{required},
		Result:       result,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})

	if !granted {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Insufficient permissions"})
	}
	return granted
}

// authorizeResource enforces a permission against a specific resource. The
// coarse set grants outright; otherwise resource ACLs and team key grants are
// consulted. On denial it writes the 403 response, records the decision, and
// returns false.
func authorizeResource(c *gin.Context, permSvc core.PermissionService, principal *models.Principal, resourceType, resourceID, required string) bool {
	ctx := c.Request.Context()
	set := permSvc.LoadPermissions(ctx, principal, principal.TeamID)
	granted := permSvc.CheckResourceAccess(ctx, set, principal, principal.TeamID, resourceType, resourceID, []string{required})

	result := "success"
	action := "access_granted"
	if !granted {
		result = "denied"
		action = "access_denied"
	}
	permSvc.LogAccess(ctx, models.AccessLog{
		UserID:       principal.ID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Permissions:  []string{required},
		Result:       result,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	})

	if !granted {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Insufficient permissions"})
	}
	return granted
}

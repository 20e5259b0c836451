package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/middleware"
)

// SetupRoutes wires all application routes. Global middleware (logging,
// recovery, CORS) is applied to the router by the caller before this runs.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
	resolver core.PathResolver,
	permSvc core.PermissionService,
	auditSvc core.AuditService,
	folderService core.FolderService,
	keyService core.KeyService,
) {
	accessHandler := NewAccessHandler(resolver, permSvc, auditSvc, logger)
	folderHandler := NewFolderHandler(folderService, permSvc, logger)
	keyHandler := NewKeyHandler(keyService, permSvc, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/api/v1", authMW.Authenticate())
	{
		apiV1.GET("/access", accessHandler.ResolvePath)

		foldersGroup := apiV1.Group("/folders")
		{
			foldersGroup.POST("", folderHandler.CreateFolder)
			foldersGroup.GET("", folderHandler.ListProjects)
			foldersGroup.GET("/:folderId", folderHandler.GetFolder)
			foldersGroup.GET("/:folderId/tree", folderHandler.GetFolderTree)
			foldersGroup.PUT("/:folderId", folderHandler.UpdateFolder)
			foldersGroup.DELETE("/:folderId", folderHandler.DeleteFolder)
		}

		keysGroup := apiV1.Group("/keys")
		{
			keysGroup.POST("", keyHandler.CreateKey)
			keysGroup.GET("", keyHandler.ListKeys)
			keysGroup.GET("/:keyId", keyHandler.GetKey)
			keysGroup.PUT("/:keyId", keyHandler.UpdateKey)
			keysGroup.DELETE("/:keyId", keyHandler.DeleteKey)
		}
	}

	// Pre-versioning SDKs still call /api/access.
	router.GET("/api/access", authMW.Authenticate(), accessHandler.ResolvePath)
}

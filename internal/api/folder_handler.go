package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyvault-backend-go/internal/core"
	"keyvault-backend-go/internal/middleware"
	"keyvault-backend-go/internal/models"
)

// FolderHandler handles folder CRUD and tree endpoints.
type FolderHandler struct {
	folderService core.FolderService
	permSvc       core.PermissionService
	logger        *zap.Logger
}

// NewFolderHandler creates a new FolderHandler.
func NewFolderHandler(fs core.FolderService, permSvc core.PermissionService, logger *zap.Logger) *FolderHandler {
	return &FolderHandler{folderService: fs, permSvc: permSvc, logger: logger}
}

func (h *FolderHandler) mapFolderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrFolderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrFolderNotFound.Error()})
	case errors.Is(err, core.ErrParentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrParentNotFound.Error()})
	case errors.Is(err, core.ErrFolderCycle):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrFolderCycle.Error()})
	case errors.Is(err, core.ErrFolderTooDeep):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: core.ErrFolderTooDeep.Error()})
	default:
		h.logger.Error("folder handler internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred while processing your folder request."})
	}
}

// CreateFolder handles POST /folders
func (h *FolderHandler) CreateFolder(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermFoldersWrite) {
		return
	}

	var req models.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	folder, err := h.folderService.CreateFolder(c.Request.Context(), principal.ID, req)
	if err != nil {
		h.mapFolderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

// ListProjects handles GET /folders
func (h *FolderHandler) ListProjects(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermFoldersRead) {
		return
	}

	projects, err := h.folderService.ListProjects(c.Request.Context(), principal.ID)
	if err != nil {
		h.mapFolderError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetFolder handles GET /folders/:folderId
func (h *FolderHandler) GetFolder(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermFoldersRead) {
		return
	}
	folderID := c.Param("folderId")

	node, err := h.folderService.GetFolder(c.Request.Context(), principal.ID, folderID)
	if err != nil {
		h.mapFolderError(c, err)
		return
	}
	c.JSON(http.StatusOK, node)
}

// GetFolderTree handles GET /folders/:folderId/tree
func (h *FolderHandler) GetFolderTree(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermFoldersRead) {
		return
	}
	folderID := c.Param("folderId")

	tree, err := h.folderService.GetFolderTree(c.Request.Context(), principal.ID, folderID)
	if err != nil {
		h.mapFolderError(c, err)
		return
	}
	c.JSON(http.StatusOK, tree)
}

// UpdateFolder handles PUT /folders/:folderId
func (h *FolderHandler) UpdateFolder(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermFoldersWrite) {
		return
	}
	folderID := c.Param("folderId")

	var req models.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	folder, err := h.folderService.UpdateFolder(c.Request.Context(), principal.ID, folderID, req)
	if err != nil {
		h.mapFolderError(c, err)
		return
	}
	c.JSON(http.StatusOK, folder)
}

// DeleteFolder handles DELETE /folders/:folderId
func (h *FolderHandler) DeleteFolder(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermFoldersDelete) {
		return
	}
	folderID := c.Param("folderId")

	if err := h.folderService.DeleteFolder(c.Request.Context(), principal.ID, folderID); err != nil {
		h.mapFolderError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Folder deleted; keys were relocated to root"})
}

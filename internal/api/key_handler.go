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

// KeyHandler handles key CRUD endpoints. Values are returned decrypted only
// by GetKey; listings are always value-free.
type KeyHandler struct {
	keyService core.KeyService
	permSvc    core.PermissionService
	logger     *zap.Logger
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(ks core.KeyService, permSvc core.PermissionService, logger *zap.Logger) *KeyHandler {
	return &KeyHandler{keyService: ks, permSvc: permSvc, logger: logger}
}

func isValidationError(err error) bool {
	return errors.Is(err, models.ErrInvalidEnum)
}

func (h *KeyHandler) mapKeyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrKeyNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrKeyNotFound.Error()})
	case errors.Is(err, core.ErrFolderNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: core.ErrFolderNotFound.Error()})
	case errors.Is(err, core.ErrInvalidEncryptionKey):
		h.logger.Error("invalid encryption key configured", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Server encryption configuration error. Please contact support."})
	default:
		h.logger.Error("key handler internal error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred while processing your key request."})
	}
}

// CreateKey handles POST /keys
func (h *KeyHandler) CreateKey(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermKeysWrite) {
		return
	}

	var req models.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	key, err := h.keyService.CreateKey(c.Request.Context(), principal.ID, req)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.mapKeyError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

// GetKey handles GET /keys/:keyId; the only read that returns a decrypted
// value.
func (h *KeyHandler) GetKey(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	keyID := c.Param("keyId")
	if !authorizeResource(c, h.permSvc, principal, "key", keyID, core.PermKeysRead) {
		return
	}

	key, value, err := h.keyService.GetKey(c.Request.Context(), principal.ID, keyID)
	if errors.Is(err, core.ErrKeyNotFound) && principal.TeamID != "" {
		// Not the principal's own key; a team grant may still share it.
		key, value, err = h.keyService.GetSharedKey(c.Request.Context(), principal.ID, principal.TeamID, keyID)
	}
	if err != nil {
		h.mapKeyError(c, err)
		return
	}
	c.JSON(http.StatusOK, KeyDetailResponse{Key: key, Value: value})
}

// ListKeys handles GET /keys?folderId=...&environment=...
func (h *KeyHandler) ListKeys(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	if !authorize(c, h.permSvc, principal, core.PermKeysRead) {
		return
	}

	var env models.Environment
	if raw := c.Query("environment"); raw != "" {
		parsed, err := models.ParseEnvironment(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		env = parsed
	}

	keys, err := h.keyService.ListKeys(c.Request.Context(), principal.ID, c.Query("folderId"), env)
	if err != nil {
		h.mapKeyError(c, err)
		return
	}
	c.JSON(http.StatusOK, keys)
}

// UpdateKey handles PUT /keys/:keyId
func (h *KeyHandler) UpdateKey(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	keyID := c.Param("keyId")
	if !authorizeResource(c, h.permSvc, principal, "key", keyID, core.PermKeysWrite) {
		return
	}

	var req models.UpdateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	key, err := h.keyService.UpdateKey(c.Request.Context(), principal.ID, keyID, req)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.mapKeyError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

// DeleteKey handles DELETE /keys/:keyId
func (h *KeyHandler) DeleteKey(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
		return
	}
	keyID := c.Param("keyId")
	if !authorizeResource(c, h.permSvc, principal, "key", keyID, core.PermKeysDelete) {
		return
	}

	if err := h.keyService.DeleteKey(c.Request.Context(), principal.ID, keyID); err != nil {
		h.mapKeyError(c, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Key deleted"})
}

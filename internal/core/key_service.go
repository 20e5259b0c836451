package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
)

type keyService struct {
	keyRepo       db.KeyRepository
	folderRepo    db.FolderRepository
	grantRepo     db.GrantRepository
	encryption    EncryptionService
	encryptionKey []byte
	auditSvc      AuditService
	logger        *zap.Logger
}

// NewKeyService creates a new KeyService instance. encryptionKeyBase64 must
// decode to exactly 32 bytes.
func NewKeyService(keyRepo db.KeyRepository, folderRepo db.FolderRepository, grantRepo db.GrantRepository, encryption EncryptionService, encryptionKeyBase64 string, auditSvc AuditService, logger *zap.Logger) (KeyService, error) {
	key, err := base64.StdEncoding.DecodeString(encryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidEncryptionKey, len(key))
	}
	return &keyService{
		keyRepo:       keyRepo,
		folderRepo:    folderRepo,
		grantRepo:     grantRepo,
		encryption:    encryption,
		encryptionKey: key,
		auditSvc:      auditSvc,
		logger:        logger,
	}, nil
}

func (s *keyService) CreateKey(ctx context.Context, ownerID string, req models.CreateKeyRequest) (*models.Key, error) {
	folder, err := s.folderRepo.GetByID(ctx, req.FolderID, ownerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to verify folder: %w", err)
	}
	if folder == nil {
		return nil, ErrFolderNotFound
	}

	keyType := models.KeyTypeOther
	if req.Type != "" {
		keyType, err = models.ParseKeyType(req.Type)
		if err != nil {
			return nil, err
		}
	}
	env := models.DefaultEnvironment
	if req.Environment != "" {
		env, err = models.ParseEnvironment(req.Environment)
		if err != nil {
			return nil, err
		}
	}

	encrypted, err := s.encryption.Encrypt(req.Value, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt key value: %w", err)
	}

	key := &models.Key{
		Name:        req.Name,
		Description: req.Description,
		Value:       encrypted,
		Type:        keyType,
		Environment: env,
		Tags:        req.Tags,
		IsFavorite:  req.IsFavorite,
		ExpiresAt:   req.ExpiresAt,
		FolderID:    req.FolderID,
		OwnerID:     ownerID,
	}
	id, err := s.keyRepo.Create(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create key: %w", err)
	}
	key.ID = id

	s.audit(ctx, ownerID, "KEY_CREATE", key.ID, map[string]interface{}{
		"name":        key.Name,
		"environment": string(key.Environment),
	})
	return key.WithoutValue(), nil
}

// GetKey returns the key together with its decrypted value. A ciphertext that
// cannot be decrypted yields the placeholder rather than an error.
func (s *keyService) GetKey(ctx context.Context, ownerID, keyID string) (*models.Key, string, error) {
	key, err := s.fetchKey(ctx, keyID, ownerID)
	if err != nil {
		return nil, "", err
	}

	value := s.decryptOrPlaceholder(key)
	s.audit(ctx, ownerID, "KEY_ACCESS", key.ID, map[string]interface{}{
		"name":        key.Name,
		"environment": string(key.Environment),
	})
	return key.WithoutValue(), value, nil
}

// GetSharedKey reads a key the principal does not own through a team grant.
// The grant must exist for the key and team and carry keys:read; otherwise
// the key behaves as missing.
func (s *keyService) GetSharedKey(ctx context.Context, principalID, teamID, keyID string) (*models.Key, string, error) {
	if s.grantRepo == nil || teamID == "" {
		return nil, "", ErrKeyNotFound
	}
	grant, err := s.grantRepo.FindForKey(ctx, keyID, teamID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up key grant: %w", err)
	}
	if grant == nil || !NewPermissionSet(grant.Permissions...).Has(PermKeysRead) {
		return nil, "", ErrKeyNotFound
	}

	key, err := s.fetchKey(ctx, keyID, "")
	if err != nil {
		return nil, "", err
	}

	value := s.decryptOrPlaceholder(key)
	s.audit(ctx, principalID, "KEY_ACCESS", key.ID, map[string]interface{}{
		"name":        key.Name,
		"environment": string(key.Environment),
		"sharedVia":   "team_grant",
		"teamId":      teamID,
	})
	return key.WithoutValue(), value, nil
}

// fetchKey normalizes the repository's two miss shapes (nil result, wrapped
// db.ErrNotFound) to the ErrKeyNotFound sentinel.
func (s *keyService) fetchKey(ctx context.Context, keyID, ownerID string) (*models.Key, error) {
	key, err := s.keyRepo.GetByID(ctx, keyID, ownerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	if key == nil {
		return nil, ErrKeyNotFound
	}
	return key, nil
}

func (s *keyService) decryptOrPlaceholder(key *models.Key) string {
	value, err := s.encryption.Decrypt(key.Value, s.encryptionKey)
	if err != nil {
		s.logger.Warn("key value decryption failed, substituting placeholder",
			zap.String("keyId", key.ID),
			zap.Error(err))
		return encryptedPlaceholder
	}
	return value
}

func (s *keyService) ListKeys(ctx context.Context, ownerID, folderID string, environment models.Environment) ([]*models.Key, error) {
	keys, err := s.keyRepo.ListKeys(ctx, db.KeyQuery{
		FolderID:    folderID,
		OwnerID:     ownerID,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	listed := make([]*models.Key, 0, len(keys))
	for _, k := range keys {
		listed = append(listed, k.WithoutValue())
	}
	return listed, nil
}

func (s *keyService) UpdateKey(ctx context.Context, ownerID, keyID string, req models.UpdateKeyRequest) (*models.Key, error) {
	key, err := s.fetchKey(ctx, keyID, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		key.Name = *req.Name
	}
	if req.Description != nil {
		key.Description = *req.Description
	}
	if req.Value != nil {
		encrypted, err := s.encryption.Encrypt(*req.Value, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt key value: %w", err)
		}
		key.Value = encrypted
	}
	if req.Type != nil {
		keyType, err := models.ParseKeyType(*req.Type)
		if err != nil {
			return nil, err
		}
		key.Type = keyType
	}
	if req.Environment != nil {
		env, err := models.ParseEnvironment(*req.Environment)
		if err != nil {
			return nil, err
		}
		key.Environment = env
	}
	if req.Tags != nil {
		key.Tags = *req.Tags
	}
	if req.IsFavorite != nil {
		key.IsFavorite = *req.IsFavorite
	}
	if req.ExpiresAt != nil {
		key.ExpiresAt = req.ExpiresAt
	}
	key.UpdatedAt = time.Now().UTC()

	if err := s.keyRepo.Update(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to update key: %w", err)
	}

	s.audit(ctx, ownerID, "KEY_UPDATE", key.ID, map[string]interface{}{
		"name":        key.Name,
		"environment": string(key.Environment),
	})
	return key.WithoutValue(), nil
}

func (s *keyService) DeleteKey(ctx context.Context, ownerID, keyID string) error {
	key, err := s.fetchKey(ctx, keyID, ownerID)
	if err != nil {
		return err
	}

	if err := s.keyRepo.Delete(ctx, keyID); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	s.audit(ctx, ownerID, "KEY_DELETE", keyID, map[string]interface{}{
		"name":        key.Name,
		"environment": string(key.Environment),
	})
	return nil
}

func (s *keyService) audit(ctx context.Context, userID, action, targetID string, details map[string]interface{}) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.CreateAuditLog(ctx, models.AuditLog{
		UserID:     userID,
		Action:     action,
		TargetType: "key",
		TargetID:   targetID,
		Details:    details,
	}); err != nil {
		s.logger.Warn("failed to record key audit entry",
			zap.String("action", action),
			zap.String("targetId", targetID),
			zap.Error(err))
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
)

// maxTreeDepth caps the recursion when building a folder tree. The UI only
// nests one level, but stored parentId values are not trusted.
const maxTreeDepth = 10

type folderService struct {
	folderRepo db.FolderRepository
	keyRepo    db.KeyRepository
	auditSvc   AuditService
	logger     *zap.Logger
}

// NewFolderService creates a new FolderService instance.
func NewFolderService(folderRepo db.FolderRepository, keyRepo db.KeyRepository, auditSvc AuditService, logger *zap.Logger) FolderService {
	return &folderService{
		folderRepo: folderRepo,
		keyRepo:    keyRepo,
		auditSvc:   auditSvc,
		logger:     logger,
	}
}

func (s *folderService) CreateFolder(ctx context.Context, ownerID string, req models.CreateFolderRequest) (*models.Folder, error) {
	if req.ParentID != "" {
		if _, err := s.fetchFolder(ctx, req.ParentID, ownerID, ErrParentNotFound); err != nil {
			return nil, err
		}
	}

	folder := &models.Folder{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
		ParentID:    req.ParentID,
		OwnerID:     ownerID,
	}
	id, err := s.folderRepo.Create(ctx, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	folder.ID = id

	s.audit(ctx, ownerID, "FOLDER_CREATE", folder.ID, map[string]interface{}{"name": folder.Name})
	return folder, nil
}

func (s *folderService) GetFolder(ctx context.Context, ownerID, folderID string) (*models.FolderNode, error) {
	folder, err := s.fetchFolder(ctx, folderID, ownerID, ErrFolderNotFound)
	if err != nil {
		return nil, err
	}

	children, err := s.folderRepo.ListChildren(ctx, folder.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subfolders: %w", err)
	}
	keys, err := s.keyRepo.ListKeys(ctx, db.KeyQuery{FolderID: folder.ID, OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	node := &models.FolderNode{Folder: folder}
	for _, c := range children {
		node.Children = append(node.Children, &models.FolderNode{Folder: c})
	}
	for _, k := range keys {
		node.Keys = append(node.Keys, k.WithoutValue())
	}
	return node, nil
}

func (s *folderService) ListProjects(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	projects, err := s.folderRepo.ListProjects(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

func (s *folderService) UpdateFolder(ctx context.Context, ownerID, folderID string, req models.UpdateFolderRequest) (*models.Folder, error) {
	folder, err := s.fetchFolder(ctx, folderID, ownerID, ErrFolderNotFound)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		folder.Name = *req.Name
	}
	if req.Description != nil {
		folder.Description = *req.Description
	}
	if req.Color != nil {
		folder.Color = *req.Color
	}
	if req.ParentID != nil {
		if *req.ParentID != "" {
			if *req.ParentID == folder.ID {
				return nil, ErrFolderCycle
			}
			parent, err := s.fetchFolder(ctx, *req.ParentID, ownerID, ErrParentNotFound)
			if err != nil {
				return nil, err
			}
			if err := s.ensureNotDescendant(ctx, ownerID, folder.ID, parent); err != nil {
				return nil, err
			}
		}
		folder.ParentID = *req.ParentID
	}
	folder.UpdatedAt = time.Now().UTC()

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to update folder: %w", err)
	}

	s.audit(ctx, ownerID, "FOLDER_UPDATE", folder.ID, map[string]interface{}{"name": folder.Name})
	return folder, nil
}

// ensureNotDescendant walks up from the candidate parent and rejects the move
// when folderID appears on the ancestor chain, which would create a cycle.
func (s *folderService) ensureNotDescendant(ctx context.Context, ownerID, folderID string, parent *models.Folder) error {
	visited := map[string]struct{}{}
	cur := parent
	for depth := 0; cur != nil && depth < maxTreeDepth; depth++ {
		if cur.ID == folderID {
			return ErrFolderCycle
		}
		if _, seen := visited[cur.ID]; seen {
			return ErrFolderCycle
		}
		visited[cur.ID] = struct{}{}
		if cur.ParentID == "" {
			return nil
		}
		next, err := s.folderRepo.GetByID(ctx, cur.ParentID, ownerID)
		if err != nil {
			// A missing ancestor terminates the chain.
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("failed to walk ancestor chain: %w", err)
		}
		cur = next
	}
	if cur != nil {
		return ErrFolderTooDeep
	}
	return nil
}

// DeleteFolder cascades: keys in the deleted subtree are relocated to the
// owner's root (preserved, never deleted), subfolders are deleted
// transitively.
func (s *folderService) DeleteFolder(ctx context.Context, ownerID, folderID string) error {
	folder, err := s.fetchFolder(ctx, folderID, ownerID, ErrFolderNotFound)
	if err != nil {
		return err
	}

	visited := map[string]struct{}{}
	if err := s.deleteSubtree(ctx, ownerID, folder.ID, visited, 0); err != nil {
		return err
	}

	s.audit(ctx, ownerID, "FOLDER_DELETE", folderID, map[string]interface{}{"name": folder.Name})
	return nil
}

func (s *folderService) deleteSubtree(ctx context.Context, ownerID, folderID string, visited map[string]struct{}, depth int) error {
	if depth > maxTreeDepth {
		return ErrFolderTooDeep
	}
	if _, seen := visited[folderID]; seen {
		return ErrFolderCycle
	}
	visited[folderID] = struct{}{}

	children, err := s.folderRepo.ListChildren(ctx, folderID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to list subfolders: %w", err)
	}
	for _, child := range children {
		if err := s.deleteSubtree(ctx, ownerID, child.ID, visited, depth+1); err != nil {
			return err
		}
	}

	if err := s.keyRepo.RelocateToRoot(ctx, folderID, ownerID); err != nil {
		return fmt.Errorf("failed to relocate keys: %w", err)
	}
	if err := s.folderRepo.Delete(ctx, folderID); err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	return nil
}

// GetFolderTree builds the subtree rooted at folderID. Traversal carries a
// visited-set and a depth cap so a corrupted parentId chain cannot hang the
// request.
func (s *folderService) GetFolderTree(ctx context.Context, ownerID, folderID string) (*models.FolderNode, error) {
	folder, err := s.fetchFolder(ctx, folderID, ownerID, ErrFolderNotFound)
	if err != nil {
		return nil, err
	}
	visited := map[string]struct{}{}
	return s.buildTree(ctx, ownerID, folder, visited, 0)
}

// fetchFolder normalizes the repository's two miss shapes (nil result,
// wrapped db.ErrNotFound) to the given sentinel.
func (s *folderService) fetchFolder(ctx context.Context, folderID, ownerID string, missing error) (*models.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID, ownerID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, missing
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	if folder == nil {
		return nil, missing
	}
	return folder, nil
}

func (s *folderService) buildTree(ctx context.Context, ownerID string, folder *models.Folder, visited map[string]struct{}, depth int) (*models.FolderNode, error) {
	if depth > maxTreeDepth {
		return nil, ErrFolderTooDeep
	}
	if _, seen := visited[folder.ID]; seen {
		return nil, ErrFolderCycle
	}
	visited[folder.ID] = struct{}{}

	node := &models.FolderNode{Folder: folder}

	keys, err := s.keyRepo.ListKeys(ctx, db.KeyQuery{FolderID: folder.ID, OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	for _, k := range keys {
		node.Keys = append(node.Keys, k.WithoutValue())
	}

	children, err := s.folderRepo.ListChildren(ctx, folder.ID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subfolders: %w", err)
	}
	for _, child := range children {
		childNode, err := s.buildTree(ctx, ownerID, child, visited, depth+1)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

func (s *folderService) audit(ctx context.Context, userID, action, targetID string, details map[string]interface{}) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.CreateAuditLog(ctx, models.AuditLog{
		UserID:     userID,
		Action:     action,
		TargetType: "folder",
		TargetID:   targetID,
		Details:    details,
	}); err != nil {
		s.logger.Warn("failed to record folder audit entry",
			zap.String("action", action),
			zap.String("targetId", targetID),
			zap.Error(err))
	}
}

package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
)

// encryptedPlaceholder is returned in place of a key value whose ciphertext
// cannot be decrypted. The response still succeeds; the failure is logged.
const encryptedPlaceholder = "[Encrypted]"

// resolverService walks the folder tree for a slash path. Lookups are
// awaited sequentially since each level depends on the previous level's
// resolved ID; the depth cap bounds the walk.
type resolverService struct {
	folderRepo    db.FolderRepository
	keyRepo       db.KeyRepository
	encryption    EncryptionService
	encryptionKey []byte
	logger        *zap.Logger
}

// NewPathResolver creates a new PathResolver instance. encryptionKeyBase64
// must decode to exactly 32 bytes.
func NewPathResolver(folderRepo db.FolderRepository, keyRepo db.KeyRepository, encryption EncryptionService, encryptionKeyBase64 string, logger *zap.Logger) (PathResolver, error) {
	key, err := base64.StdEncoding.DecodeString(encryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncryptionKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidEncryptionKey, len(key))
	}
	return &resolverService{
		folderRepo:    folderRepo,
		keyRepo:       keyRepo,
		encryption:    encryption,
		encryptionKey: key,
		logger:        logger,
	}, nil
}

func (s *resolverService) Resolve(ctx context.Context, req ResolveRequest) (*Resolution, *ResolveError) {
	typ := req.Type
	if typ == "" {
		typ = ResolveAuto
	}

	// Environment is validated before anything else so an invalid value is
	// reported even when the path is also malformed.
	var env models.Environment
	envSupplied := strings.TrimSpace(req.RawEnvironment) != ""
	if envSupplied {
		parsed, err := models.ParseEnvironment(req.RawEnvironment)
		if err != nil {
			return nil, errInvalidEnvironment(req.RawEnvironment)
		}
		env = parsed
	}

	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, errInvalidPath(req.Path)
	}
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, errInvalidPath(req.Path)
	}
	if len(segments) > maxPathDepth {
		return nil, errPathTooDeep(path, len(segments))
	}

	ownerID := req.Principal.ID
	project, err := s.folderRepo.FindProjectByName(ctx, segments[0], ownerID)
	if err != nil {
		s.logger.Error("project lookup failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	if project == nil {
		return nil, errProjectNotFound(path, segments[0], s.projectHints(ctx, ownerID))
	}

	if len(segments) == 1 {
		return s.projectView(ctx, path, project, env, envSupplied)
	}

	// Depth >= 2 means the terminal segment will be probed as a key unless
	// the caller explicitly asked for a folder, and a key probe needs the
	// environment as a hard disambiguator.
	keyProbe := typ == ResolveAuto || typ == ResolveKey
	if keyProbe && !envSupplied {
		return nil, errEnvironmentRequired(path)
	}

	// Walk the intermediate segments as folders, one lookup per level.
	current := project
	foundPath := segments[0]
	for _, name := range segments[1 : len(segments)-1] {
		next, err := s.folderRepo.FindSubfolder(ctx, name, current.ID, ownerID)
		if err != nil {
			s.logger.Error("subfolder lookup failed",
				zap.String("path", path),
				zap.String("foundPath", foundPath),
				zap.Error(err))
			return nil, errInternal(path, err)
		}
		if next == nil {
			return nil, errSubfolderNotFound(path, project.Name, foundPath, name, s.siblingHints(ctx, current.ID, ownerID))
		}
		current = next
		foundPath = foundPath + "/" + name
	}

	last := segments[len(segments)-1]

	if !keyProbe {
		return s.folderLookup(ctx, path, project, current, foundPath, last, ownerID, env, envSupplied)
	}

	key, err := s.keyRepo.FindKey(ctx, db.KeyQuery{
		Name:        last,
		FolderID:    current.ID,
		OwnerID:     ownerID,
		Environment: env,
	})
	if err != nil {
		s.logger.Error("key lookup failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	if key != nil {
		return s.keyView(ctx, path, project, current, foundPath, key, env)
	}

	// A terminal segment with further context (depth >= 3) may still name a
	// folder; a bare "Project/X" miss stays a key miss so the caller gets
	// both kinds of hints.
	if typ == ResolveAuto && len(segments) > 2 {
		folder, err := s.folderRepo.FindSubfolder(ctx, last, current.ID, ownerID)
		if err != nil {
			s.logger.Error("terminal folder lookup failed", zap.String("path", path), zap.Error(err))
			return nil, errInternal(path, err)
		}
		if folder != nil {
			return s.folderView(ctx, path, project, folder, foundPath+"/"+last, env, envSupplied)
		}
	}

	return nil, errKeyNotFound(path, project.Name, foundPath, last, string(env),
		s.keyHints(ctx, current.ID, ownerID),
		s.siblingHints(ctx, current.ID, ownerID))
}

func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

func (s *resolverService) projectView(ctx context.Context, path string, project *models.Folder, env models.Environment, envSupplied bool) (*Resolution, *ResolveError) {
	subfolders, err := s.folderRepo.ListChildren(ctx, project.ID, project.OwnerID)
	if err != nil {
		s.logger.Error("project children listing failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	keys, err := s.listKeysWithoutValues(ctx, project.ID, project.OwnerID, env)
	if err != nil {
		s.logger.Error("project key listing failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	return &Resolution{
		Kind:        KindProject,
		Path:        path,
		Environment: effectiveEnvironment(env, envSupplied),
		Message:     fmt.Sprintf("Project %q found", project.Name),
		Project:     project,
		Keys:        keys,
		Subfolders:  subfolders,
	}, nil
}

func (s *resolverService) folderLookup(ctx context.Context, path string, project, parent *models.Folder, foundPath, name, ownerID string, env models.Environment, envSupplied bool) (*Resolution, *ResolveError) {
	folder, err := s.folderRepo.FindSubfolder(ctx, name, parent.ID, ownerID)
	if err != nil {
		s.logger.Error("folder lookup failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	if folder == nil {
		return nil, errSubfolderNotFound(path, project.Name, foundPath, name, s.siblingHints(ctx, parent.ID, ownerID))
	}
	return s.folderView(ctx, path, project, folder, foundPath+"/"+name, env, envSupplied)
}

func (s *resolverService) folderView(ctx context.Context, path string, project, folder *models.Folder, folderPath string, env models.Environment, envSupplied bool) (*Resolution, *ResolveError) {
	subfolders, err := s.folderRepo.ListChildren(ctx, folder.ID, folder.OwnerID)
	if err != nil {
		s.logger.Error("folder children listing failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	keys, err := s.listKeysWithoutValues(ctx, folder.ID, folder.OwnerID, env)
	if err != nil {
		s.logger.Error("folder key listing failed", zap.String("path", path), zap.Error(err))
		return nil, errInternal(path, err)
	}
	return &Resolution{
		Kind:        KindFolder,
		Path:        path,
		Environment: effectiveEnvironment(env, envSupplied),
		Message:     fmt.Sprintf("Folder %q found", folderPath),
		Project:     project,
		Folder:      folder,
		FolderPath:  folderPath,
		Keys:        keys,
		Subfolders:  subfolders,
	}, nil
}

func (s *resolverService) keyView(ctx context.Context, path string, project, folder *models.Folder, folderPath string, key *models.Key, env models.Environment) (*Resolution, *ResolveError) {
	resolved := *key
	plain, err := s.encryption.Decrypt(key.Value, s.encryptionKey)
	if err != nil {
		s.logger.Warn("key value decryption failed, substituting placeholder",
			zap.String("keyId", key.ID),
			zap.String("path", path),
			zap.Error(err))
		resolved.Value = encryptedPlaceholder
	} else {
		resolved.Value = plain
	}

	res := &Resolution{
		Kind:        KindKey,
		Path:        path,
		Environment: string(env),
		Message:     fmt.Sprintf("Key %q found in %s", key.Name, env),
		Project:     project,
		FolderPath:  folderPath,
		Key:         &resolved,
	}
	if folder.ID != project.ID {
		res.Folder = folder
	}
	return res, nil
}

func (s *resolverService) listKeysWithoutValues(ctx context.Context, folderID, ownerID string, env models.Environment) ([]*models.Key, error) {
	keys, err := s.keyRepo.ListKeys(ctx, db.KeyQuery{
		FolderID:    folderID,
		OwnerID:     ownerID,
		Environment: env,
	})
	if err != nil {
		return nil, err
	}
	stripped := make([]*models.Key, 0, len(keys))
	for _, k := range keys {
		stripped = append(stripped, k.WithoutValue())
	}
	return stripped, nil
}

// Hint listings are best-effort: a failed listing degrades to an empty hint
// rather than turning a 404 into a 500.

func (s *resolverService) projectHints(ctx context.Context, ownerID string) []ProjectHint {
	projects, err := s.folderRepo.ListProjects(ctx, ownerID)
	if err != nil {
		s.logger.Warn("project hint listing failed", zap.Error(err))
		return nil
	}
	hints := make([]ProjectHint, 0, len(projects))
	for _, p := range projects {
		hints = append(hints, ProjectHint{Name: p.Name, Description: p.Description})
	}
	return hints
}

func (s *resolverService) siblingHints(ctx context.Context, parentID, ownerID string) []string {
	children, err := s.folderRepo.ListChildren(ctx, parentID, ownerID)
	if err != nil {
		s.logger.Warn("sibling hint listing failed", zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	return names
}

// keyHints lists the keys at the failure point across all environments so a
// caller probing the wrong environment can see where the key actually lives.
func (s *resolverService) keyHints(ctx context.Context, folderID, ownerID string) []KeyHint {
	keys, err := s.keyRepo.ListKeys(ctx, db.KeyQuery{FolderID: folderID, OwnerID: ownerID})
	if err != nil {
		s.logger.Warn("key hint listing failed", zap.Error(err))
		return nil
	}
	hints := make([]KeyHint, 0, len(keys))
	for _, k := range keys {
		hints = append(hints, KeyHint{Name: k.Name, Environment: k.Environment, Type: k.Type})
	}
	return hints
}

func effectiveEnvironment(env models.Environment, supplied bool) string {
	if !supplied {
		return "all"
	}
	return string(env)
}

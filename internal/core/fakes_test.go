package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
)

// In-memory repository fakes. Each fake can be forced to fail wholesale via
// failWith to exercise degradation paths.

type fakeFolderRepo struct {
	mu       sync.Mutex
	folders  map[string]*models.Folder
	nextID   int
	failWith error
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: map[string]*models.Folder{}}
}

func (r *fakeFolderRepo) add(name, parentID, ownerID string) *models.Folder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f := &models.Folder{
		ID:       fmt.Sprintf("folder-%d", r.nextID),
		Name:     name,
		ParentID: parentID,
		OwnerID:  ownerID,
	}
	r.folders[f.ID] = f
	return f
}

func (r *fakeFolderRepo) Create(ctx context.Context, folder *models.Folder) (string, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	f := r.add(folder.Name, folder.ParentID, folder.OwnerID)
	f.Description = folder.Description
	f.Color = folder.Color
	return f.ID, nil
}

func (r *fakeFolderRepo) GetByID(ctx context.Context, folderID, ownerID string) (*models.Folder, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.folders[folderID]
	if !ok || f.OwnerID != ownerID {
		return nil, nil
	}
	copied := *f
	return &copied, nil
}

func (r *fakeFolderRepo) FindProjectByName(ctx context.Context, name, ownerID string) (*models.Folder, error) {
	return r.find(name, "", ownerID)
}

func (r *fakeFolderRepo) FindSubfolder(ctx context.Context, name, parentID, ownerID string) (*models.Folder, error) {
	return r.find(name, parentID, ownerID)
}

func (r *fakeFolderRepo) find(name, parentID, ownerID string) (*models.Folder, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.folders {
		if f.Name == name && f.ParentID == parentID && f.OwnerID == ownerID {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFolderRepo) ListProjects(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	return r.list("", ownerID)
}

func (r *fakeFolderRepo) ListChildren(ctx context.Context, parentID, ownerID string) ([]*models.Folder, error) {
	return r.list(parentID, ownerID)
}

func (r *fakeFolderRepo) list(parentID, ownerID string) ([]*models.Folder, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Folder
	for _, f := range r.folders {
		if f.ParentID == parentID && f.OwnerID == ownerID {
			copied := *f
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFolderRepo) Update(ctx context.Context, folder *models.Folder) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[folder.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *folder
	r.folders[folder.ID] = &copied
	return nil
}

func (r *fakeFolderRepo) Delete(ctx context.Context, folderID string) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.folders, folderID)
	return nil
}

type fakeKeyRepo struct {
	mu       sync.Mutex
	keys     map[string]*models.Key
	nextID   int
	failWith error
}

func newFakeKeyRepo() *fakeKeyRepo {
	return &fakeKeyRepo{keys: map[string]*models.Key{}}
}

func (r *fakeKeyRepo) add(name, folderID, ownerID, value string, env models.Environment) *models.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	k := &models.Key{
		ID:          fmt.Sprintf("key-%d", r.nextID),
		Name:        name,
		Value:       value,
		Type:        models.KeyTypeSecret,
		Environment: env,
		FolderID:    folderID,
		OwnerID:     ownerID,
		UpdatedAt:   time.Now(),
	}
	r.keys[k.ID] = k
	return k
}

func (r *fakeKeyRepo) Create(ctx context.Context, key *models.Key) (string, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("key-%d", r.nextID)
	r.mu.Unlock()
	copied := *key
	copied.ID = id
	r.mu.Lock()
	r.keys[id] = &copied
	r.mu.Unlock()
	return id, nil
}

func (r *fakeKeyRepo) GetByID(ctx context.Context, keyID, ownerID string) (*models.Key, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.keys[keyID]
	if !ok {
		return nil, nil
	}
	if ownerID != "" && k.OwnerID != ownerID {
		return nil, nil
	}
	copied := *k
	return &copied, nil
}

func (r *fakeKeyRepo) FindKey(ctx context.Context, q db.KeyQuery) (*models.Key, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.Name == q.Name && k.FolderID == q.FolderID && k.OwnerID == q.OwnerID {
			if q.Environment != "" && k.Environment != q.Environment {
				continue
			}
			copied := *k
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeKeyRepo) ListKeys(ctx context.Context, q db.KeyQuery) ([]*models.Key, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Key
	for _, k := range r.keys {
		if k.FolderID != q.FolderID || k.OwnerID != q.OwnerID {
			continue
		}
		if q.Environment != "" && k.Environment != q.Environment {
			continue
		}
		copied := *k
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeKeyRepo) Update(ctx context.Context, key *models.Key) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.keys[key.ID]; !ok {
		return db.ErrNotFound
	}
	copied := *key
	r.keys[key.ID] = &copied
	return nil
}

func (r *fakeKeyRepo) Delete(ctx context.Context, keyID string) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, keyID)
	return nil
}

func (r *fakeKeyRepo) RelocateToRoot(ctx context.Context, folderID, ownerID string) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.FolderID == folderID && k.OwnerID == ownerID {
			k.FolderID = ""
		}
	}
	return nil
}

type fakeRoleRepo struct {
	perms    map[string][]string
	failWith error
}

func (r *fakeRoleRepo) GetRolePermissions(ctx context.Context, roleID string) ([]string, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	return r.perms[roleID], nil
}

type fakeTeamRepo struct {
	roles    map[string]string // userID+"/"+teamID -> roleID
	failWith error
}

func (r *fakeTeamRepo) GetMemberRole(ctx context.Context, userID, teamID string) (string, error) {
	if r.failWith != nil {
		return "", r.failWith
	}
	return r.roles[userID+"/"+teamID], nil
}

type fakeACLRepo struct {
	entries  []*models.ACLEntry
	failWith error
}

func (r *fakeACLRepo) matches(e *models.ACLEntry, q db.ACLQuery) bool {
	if e.UserID != "" && e.UserID == q.UserID {
		return true
	}
	if e.TeamID != "" && e.TeamID == q.TeamID {
		return true
	}
	for _, roleID := range q.RoleIDs {
		if e.RoleID != "" && e.RoleID == roleID {
			return true
		}
	}
	return false
}

func (r *fakeACLRepo) ListForPrincipal(ctx context.Context, q db.ACLQuery) ([]*models.ACLEntry, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []*models.ACLEntry
	for _, e := range r.entries {
		if r.matches(e, q) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeACLRepo) FindForResource(ctx context.Context, resourceType, resourceID string, q db.ACLQuery) (*models.ACLEntry, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, e := range r.entries {
		if e.ResourceType == resourceType && e.ResourceID == resourceID && r.matches(e, q) {
			return e, nil
		}
	}
	return nil, nil
}

type fakeGrantRepo struct {
	grants   []*models.KeyGrant
	failWith error
}

func (r *fakeGrantRepo) FindForKey(ctx context.Context, keyID, teamID string) (*models.KeyGrant, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, g := range r.grants {
		if g.KeyID == keyID && g.TeamID == teamID {
			return g, nil
		}
	}
	return nil, nil
}

type fakeCache struct {
	mu       sync.Mutex
	values   map[string]string
	failWith error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if c.failWith != nil {
		return "", c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

type fakeAuditRepo struct {
	mu         sync.Mutex
	entries    []models.AuditLog
	accessLogs []models.AccessLog
	failWith   error
}

func (r *fakeAuditRepo) Create(ctx context.Context, entry models.AuditLog) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) CreateAccessLog(ctx context.Context, entry models.AccessLog) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessLogs = append(r.accessLogs, entry)
	return nil
}

type fakeQueue struct {
	mu       sync.Mutex
	messages map[string][][]byte
	failWith error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{messages: map[string][][]byte{}}
}

func (q *fakeQueue) Publish(queueName string, body []byte) error {
	if q.failWith != nil {
		return q.failWith
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages[queueName] = append(q.messages[queueName], body)
	return nil
}

func (q *fakeQueue) Consume(queueName string, handler func(body []byte)) error {
	return nil
}

func (q *fakeQueue) Close() error { return nil }

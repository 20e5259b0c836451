package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"keyvault-backend-go/internal/models"
)

const keysCollection = "keys"

// firestoreKeyRepository implements KeyRepository on Firestore.
type firestoreKeyRepository struct {
	client *firestore.Client
}

// NewFirestoreKeyRepository creates a KeyRepository backed by Firestore.
func NewFirestoreKeyRepository(client *firestore.Client) KeyRepository {
	return &firestoreKeyRepository{client: client}
}

func (r *firestoreKeyRepository) Create(ctx context.Context, key *models.Key) (string, error) {
	docRef := r.client.Collection(keysCollection).NewDoc()
	key.ID = docRef.ID
	if _, err := docRef.Create(ctx, key); err != nil {
		return "", fmt.Errorf("failed to create key: %w", err)
	}
	return docRef.ID, nil
}

func (r *firestoreKeyRepository) GetByID(ctx context.Context, keyID, ownerID string) (*models.Key, error) {
	if keyID == "" {
		return nil, errors.New("keyID cannot be empty")
	}
	snap, err := r.client.Collection(keysCollection).Doc(keyID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("key %q: %w", keyID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get key %q: %w", keyID, err)
	}

	var key models.Key
	if err := snap.DataTo(&key); err != nil {
		return nil, fmt.Errorf("failed to decode key %q: %w", keyID, err)
	}
	key.ID = snap.Ref.ID

	// An empty ownerID skips the ownership filter (grant-authorized reads).
	if ownerID != "" && key.OwnerID != ownerID {
		return nil, fmt.Errorf("key %q: %w", keyID, ErrNotFound)
	}
	return &key, nil
}

// FindKey matches a single key by exact name within a folder. The environment
// filter is a hard equality when set.
func (r *firestoreKeyRepository) FindKey(ctx context.Context, q KeyQuery) (*models.Key, error) {
	query := r.client.Collection(keysCollection).
		Where("name", "==", q.Name).
		Where("folderId", "==", q.FolderID).
		Where("ownerId", "==", q.OwnerID)
	if q.Environment != "" {
		query = query.Where("environment", "==", string(q.Environment))
	}

	iter := query.Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query key %q: %w", q.Name, err)
	}

	var key models.Key
	if err := doc.DataTo(&key); err != nil {
		return nil, fmt.Errorf("failed to decode key %q: %w", q.Name, err)
	}
	key.ID = doc.Ref.ID
	return &key, nil
}

func (r *firestoreKeyRepository) ListKeys(ctx context.Context, q KeyQuery) ([]*models.Key, error) {
	query := r.client.Collection(keysCollection).
		Where("folderId", "==", q.FolderID).
		Where("ownerId", "==", q.OwnerID)
	if q.Environment != "" {
		query = query.Where("environment", "==", string(q.Environment))
	}

	iter := query.OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var keys []*models.Key
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate keys in folder %q: %w", q.FolderID, err)
		}
		var key models.Key
		if err := doc.DataTo(&key); err != nil {
			return nil, fmt.Errorf("failed to decode key %q: %w", doc.Ref.ID, err)
		}
		key.ID = doc.Ref.ID
		keys = append(keys, &key)
	}
	return keys, nil
}

func (r *firestoreKeyRepository) Update(ctx context.Context, key *models.Key) error {
	if key.ID == "" {
		return errors.New("key ID cannot be empty for Update")
	}
	if _, err := r.client.Collection(keysCollection).Doc(key.ID).Set(ctx, key, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update key %q: %w", key.ID, err)
	}
	return nil
}

func (r *firestoreKeyRepository) Delete(ctx context.Context, keyID string) error {
	if keyID == "" {
		return errors.New("keyID cannot be empty for Delete")
	}
	if _, err := r.client.Collection(keysCollection).Doc(keyID).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("key %q: %w", keyID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete key %q: %w", keyID, err)
	}
	return nil
}

// RelocateToRoot clears folderId on every key in the folder, one update per
// document. Used by the folder-delete cascade.
func (r *firestoreKeyRepository) RelocateToRoot(ctx context.Context, folderID, ownerID string) error {
	iter := r.client.Collection(keysCollection).
		Where("folderId", "==", folderID).
		Where("ownerId", "==", ownerID).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to iterate keys for relocation from folder %q: %w", folderID, err)
		}
		if _, err := doc.Ref.Update(ctx, []firestore.Update{{Path: "folderId", Value: ""}}); err != nil {
			return fmt.Errorf("failed to relocate key %q: %w", doc.Ref.ID, err)
		}
	}
	return nil
}

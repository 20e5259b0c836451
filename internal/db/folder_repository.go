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

const foldersCollection = "folders"

// firestoreFolderRepository implements FolderRepository on Firestore. Root
// folders (projects) are stored with parentId == "".
type firestoreFolderRepository struct {
	client *firestore.Client
}

// NewFirestoreFolderRepository creates a FolderRepository backed by Firestore.
func NewFirestoreFolderRepository(client *firestore.Client) FolderRepository {
	return &firestoreFolderRepository{client: client}
}

func (r *firestoreFolderRepository) Create(ctx context.Context, folder *models.Folder) (string, error) {
	docRef := r.client.Collection(foldersCollection).NewDoc()
	folder.ID = docRef.ID
	if _, err := docRef.Create(ctx, folder); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	return docRef.ID, nil
}

func (r *firestoreFolderRepository) GetByID(ctx context.Context, folderID, ownerID string) (*models.Folder, error) {
	if folderID == "" {
		return nil, errors.New("folderID cannot be empty")
	}
	snap, err := r.client.Collection(foldersCollection).Doc(folderID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get folder %q: %w", folderID, err)
	}

	var folder models.Folder
	if err := snap.DataTo(&folder); err != nil {
		return nil, fmt.Errorf("failed to decode folder %q: %w", folderID, err)
	}
	folder.ID = snap.Ref.ID

	// Ownership check at the data layer: a folder fetched with the wrong
	// owner behaves exactly like a missing folder.
	if folder.OwnerID != ownerID {
		return nil, fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
	}
	return &folder, nil
}

func (r *firestoreFolderRepository) FindProjectByName(ctx context.Context, name, ownerID string) (*models.Folder, error) {
	return r.findOne(ctx, name, "", ownerID)
}

func (r *firestoreFolderRepository) FindSubfolder(ctx context.Context, name, parentID, ownerID string) (*models.Folder, error) {
	if parentID == "" {
		return nil, errors.New("parentID cannot be empty for FindSubfolder")
	}
	return r.findOne(ctx, name, parentID, ownerID)
}

// findOne matches a folder by exact name under parentID for ownerID. Name
// matching is case-sensitive. Returns (nil, nil) when nothing matches.
func (r *firestoreFolderRepository) findOne(ctx context.Context, name, parentID, ownerID string) (*models.Folder, error) {
	iter := r.client.Collection(foldersCollection).
		Where("name", "==", name).
		Where("parentId", "==", parentID).
		Where("ownerId", "==", ownerID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query folder %q: %w", name, err)
	}

	var folder models.Folder
	if err := doc.DataTo(&folder); err != nil {
		return nil, fmt.Errorf("failed to decode folder %q: %w", name, err)
	}
	folder.ID = doc.Ref.ID
	return &folder, nil
}

func (r *firestoreFolderRepository) ListProjects(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	return r.list(ctx, "", ownerID)
}

func (r *firestoreFolderRepository) ListChildren(ctx context.Context, parentID, ownerID string) ([]*models.Folder, error) {
	if parentID == "" {
		return nil, errors.New("parentID cannot be empty for ListChildren")
	}
	return r.list(ctx, parentID, ownerID)
}

func (r *firestoreFolderRepository) list(ctx context.Context, parentID, ownerID string) ([]*models.Folder, error) {
	iter := r.client.Collection(foldersCollection).
		Where("parentId", "==", parentID).
		Where("ownerId", "==", ownerID).
		OrderBy("name", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var folders []*models.Folder
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate folders under %q: %w", parentID, err)
		}
		var folder models.Folder
		if err := doc.DataTo(&folder); err != nil {
			return nil, fmt.Errorf("failed to decode folder %q: %w", doc.Ref.ID, err)
		}
		folder.ID = doc.Ref.ID
		folders = append(folders, &folder)
	}
	return folders, nil
}

func (r *firestoreFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		return errors.New("folder ID cannot be empty for Update")
	}
	if _, err := r.client.Collection(foldersCollection).Doc(folder.ID).Set(ctx, folder, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update folder %q: %w", folder.ID, err)
	}
	return nil
}

func (r *firestoreFolderRepository) Delete(ctx context.Context, folderID string) error {
	if folderID == "" {
		return errors.New("folderID cannot be empty for Delete")
	}
	if _, err := r.client.Collection(foldersCollection).Doc(folderID).Delete(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("folder %q: %w", folderID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete folder %q: %w", folderID, err)
	}
	return nil
}

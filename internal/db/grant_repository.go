package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"keyvault-backend-go/internal/models"
)

const keyGrantsCollection = "key_grants"

type firestoreGrantRepository struct {
	client *firestore.Client
}

// NewFirestoreGrantRepository creates a GrantRepository backed by Firestore.
func NewFirestoreGrantRepository(client *firestore.Client) GrantRepository {
	return &firestoreGrantRepository{client: client}
}

func (r *firestoreGrantRepository) FindForKey(ctx context.Context, keyID, teamID string) (*models.KeyGrant, error) {
	iter := r.client.Collection(keyGrantsCollection).
		Where("keyId", "==", keyID).
		Where("teamId", "==", teamID).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grant for key %q: %w", keyID, err)
	}

	var grant models.KeyGrant
	if err := doc.DataTo(&grant); err != nil {
		return nil, fmt.Errorf("failed to decode grant %q: %w", doc.Ref.ID, err)
	}
	grant.ID = doc.Ref.ID
	return &grant, nil
}

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"keyvault-backend-go/internal/models"
)

const apiTokensCollection = "api_tokens"

type firestoreAPITokenRepository struct {
	client *firestore.Client
}

// NewFirestoreAPITokenRepository creates an APITokenRepository backed by
// Firestore.
func NewFirestoreAPITokenRepository(client *firestore.Client) APITokenRepository {
	return &firestoreAPITokenRepository{client: client}
}

func (r *firestoreAPITokenRepository) FindByToken(ctx context.Context, token string) (*models.APIToken, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	iter := r.client.Collection(apiTokensCollection).
		Where("token", "==", token).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query api token: %w", err)
	}

	var apiToken models.APIToken
	if err := doc.DataTo(&apiToken); err != nil {
		return nil, fmt.Errorf("failed to decode api token %q: %w", doc.Ref.ID, err)
	}
	apiToken.ID = doc.Ref.ID
	return &apiToken, nil
}

func (r *firestoreAPITokenRepository) TouchLastUsed(ctx context.Context, tokenID string) error {
	if tokenID == "" {
		return errors.New("tokenID cannot be empty")
	}
	_, err := r.client.Collection(apiTokensCollection).Doc(tokenID).Update(ctx, []firestore.Update{
		{Path: "lastUsedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to touch api token %q: %w", tokenID, err)
	}
	return nil
}

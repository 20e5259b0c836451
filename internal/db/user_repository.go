package db

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"keyvault-backend-go/internal/models"
)

const usersCollection = "users"

type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a UserRepository backed by Firestore.
// User documents are keyed by the auth UID.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty")
	}
	snap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user %q: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %q: %w", userID, err)
	}

	var user models.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %q: %w", userID, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

package db

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"keyvault-backend-go/internal/models"
)

const (
	auditLogsCollection  = "audit_logs"
	accessLogsCollection = "access_audit_logs"
)

type firestoreAuditRepository struct {
	client *firestore.Client
}

// NewFirestoreAuditRepository creates an AuditRepository backed by Firestore.
func NewFirestoreAuditRepository(client *firestore.Client) AuditRepository {
	return &firestoreAuditRepository{client: client}
}

func (r *firestoreAuditRepository) Create(ctx context.Context, entry models.AuditLog) error {
	docRef := r.client.Collection(auditLogsCollection).NewDoc()
	entry.ID = docRef.ID
	if _, err := docRef.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *firestoreAuditRepository) CreateAccessLog(ctx context.Context, entry models.AccessLog) error {
	docRef := r.client.Collection(accessLogsCollection).NewDoc()
	entry.ID = docRef.ID
	if _, err := docRef.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create access log: %w", err)
	}
	return nil
}

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"keyvault-backend-go/internal/db"
	"keyvault-backend-go/internal/models"
	"keyvault-backend-go/pkg/messagequeue"
)

// auditService implements the AuditService interface. Besides persisting
// entries it publishes access decisions to a message queue when one is
// configured, so downstream consumers (SIEM export, alerting) can subscribe
// without polling the store.
type auditService struct {
	auditRepo db.AuditRepository
	queue     messagequeue.MessageQueue // may be nil
	queueName string
	logger    *zap.Logger
}

// NewAuditService creates a new AuditService instance. queue may be nil to
// disable event publishing.
func NewAuditService(auditRepo db.AuditRepository, queue messagequeue.MessageQueue, queueName string, logger *zap.Logger) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		queue:     queue,
		queueName: queueName,
		logger:    logger,
	}
}

func (s *auditService) CreateAuditLog(ctx context.Context, entry models.AuditLog) error {
	if s.auditRepo == nil {
		return fmt.Errorf("auditService: repository not initialized")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// RecordAccessDecision writes the decision to the access log and publishes
// it. Both sinks are write-only side channels: failures are logged and
// swallowed so an unavailable sink can never block an authorization
// decision.
func (s *auditService) RecordAccessDecision(ctx context.Context, entry models.AccessLog) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if s.auditRepo != nil {
		if err := s.auditRepo.CreateAccessLog(ctx, entry); err != nil {
			s.logger.Warn("failed to persist access log entry",
				zap.String("userId", entry.UserID),
				zap.String("result", entry.Result),
				zap.Error(err))
		}
	}

	if s.queue != nil {
		body, err := json.Marshal(entry)
		if err != nil {
			s.logger.Warn("failed to marshal access log entry for publishing", zap.Error(err))
			return
		}
		if err := s.queue.Publish(s.queueName, body); err != nil {
			s.logger.Warn("failed to publish access log entry",
				zap.String("queue", s.queueName),
				zap.Error(err))
		}
	}
}

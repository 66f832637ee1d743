package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/gearstack/cmms-api/internal/models"
	appErrors "github.com/gearstack/cmms-api/pkg/errors"
)

type auditRepository interface {
	ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error)
}

// AuditService exposes the read side of the audit trail. Writes happen
// exclusively through the event queue.
type AuditService struct {
	audits auditRepository
	logger *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(audits auditRepository, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{audits: audits, logger: logger}
}

// ListByResource returns the newest audit entries for one resource.
func (s *AuditService) ListByResource(ctx context.Context, resource, resourceID string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	entries, err := s.audits.ListByResource(ctx, resource, resourceID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return entries, nil
}

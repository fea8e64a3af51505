package application

import (
	"context"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"go.uber.org/zap"
)

// audit records a mutating operation. A failure is logged and swallowed so
// it never undoes the operation it describes.
func (s *Service) audit(ctx context.Context, actor *domain.Identity, action, targetType string, targetID uint, metadata string) {
	entry := domain.AuditLog{Action: action, TargetType: targetType, Metadata: metadata}
	if actor != nil && actor.UserID != 0 {
		id := actor.UserID
		entry.ActorUserID = &id
	}
	if targetID != 0 {
		entry.TargetID = &targetID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, actor *domain.Identity, limit int) ([]domain.AuditRecord, error) {
	if err := domain.Authorize(actor, 0, domain.ActionViewAudit); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, clampLimit(limit, 200, 2000))
}

package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-platform/internal/domain"
	"github.com/spec-kit/support-platform/internal/service"
)

// StartAuditWorker runs the staff consistency audit on a fixed interval
// and logs the findings. A zero interval disables the worker.
func StartAuditWorker(ctx context.Context, auditService *service.AuditService, interval time.Duration, logger *zap.Logger) {
	if auditService == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAudit(ctx, auditService, logger)
			}
		}
	}()
}

func runAudit(ctx context.Context, auditService *service.AuditService, logger *zap.Logger) {
	issues, err := auditService.Run(ctx)
	if err != nil {
		logger.Warn("staff audit failed", zap.Error(err))
		return
	}
	if len(issues) == 0 {
		logger.Info("staff audit clean")
		return
	}
	for _, issue := range issues {
		field := zap.String("staff_id", issue.StaffID)
		if issue.Severity == domain.SeverityError {
			logger.Error("staff audit issue", field, zap.String("code", issue.Code), zap.String("detail", issue.Message))
		} else {
			logger.Warn("staff audit issue", field, zap.String("code", issue.Code), zap.String("detail", issue.Message))
		}
	}
}

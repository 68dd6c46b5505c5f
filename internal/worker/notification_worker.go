package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-platform/internal/service"
)

// StartNotificationWorker wires notification handlers into the event
// dispatcher. Handlers run synchronously on the publishing goroutine, so
// there is no background loop to stop on shutdown.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notification service not configured; events will not notify")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification handlers registered")
}

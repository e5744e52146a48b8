package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to ticket
// events. Dispatch is synchronous, so there is no goroutine to stop.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger != nil {
		logger.Info("notification handlers registered")
	}
}

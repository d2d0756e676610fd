package interfaces

import (
	"context"

	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

// Notifier announces risk status transitions to an external channel
type Notifier interface {
	NotifyStatusChange(ctx context.Context, risk *model.Risk, result *model.TaskUpdateResult) error
}

package interfaces

import (
	"context"

	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

// RiskRepository persists risks and their weighted tasks. Every mutating
// method runs in a single store transaction.
type RiskRepository interface {
	// List returns every risk with aggregated progress, earliest review date first
	List(ctx context.Context) ([]*model.RiskSummary, error)

	// Get returns a risk and its tasks ordered by task ID. Unknown IDs yield model.ErrRiskNotFound.
	Get(ctx context.Context, id int64) (*model.RiskDetail, error)

	// Create inserts the risk and its tasks atomically and returns the new risk ID
	Create(ctx context.Context, risk *model.Risk, tasks []model.TaskTemplate) (int64, error)

	// SeedTasks inserts tasks only if the risk still has none, re-checked under a lock
	// on the risk. It reports whether the tasks were inserted.
	SeedTasks(ctx context.Context, id int64, tasks []model.TaskTemplate) (bool, error)

	// UpdateTasks sets the done flag of tasks matching both task ID and risk ID.
	// Unmatched IDs are ignored.
	UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error)

	// Delete removes the risk's tasks and then the risk. Deleting a missing risk is not an error.
	Delete(ctx context.Context, id int64) error
}

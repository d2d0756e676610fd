package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
	"github.com/secmon-lab/complytrack/pkg/utils/async"
	"github.com/secmon-lab/complytrack/pkg/utils/logging"
	"github.com/secmon-lab/complytrack/pkg/utils/metrics"
	"golang.org/x/sync/singleflight"
)

type RiskUseCase struct {
	repo       interfaces.Repository
	catalog    *model.Catalog
	notifier   interfaces.Notifier
	metrics    *metrics.Metrics
	dispatcher *async.Dispatcher
	seeds      singleflight.Group
}

type riskOption func(*RiskUseCase)

func withNotifier(n interfaces.Notifier) riskOption {
	return func(uc *RiskUseCase) { uc.notifier = n }
}

func withMetrics(m *metrics.Metrics) riskOption {
	return func(uc *RiskUseCase) { uc.metrics = m }
}

func withDispatcher(d *async.Dispatcher) riskOption {
	return func(uc *RiskUseCase) { uc.dispatcher = d }
}

func NewRiskUseCase(repo interfaces.Repository, catalog *model.Catalog, opts ...riskOption) *RiskUseCase {
	if catalog == nil {
		catalog = model.DefaultCatalog()
	}
	uc := &RiskUseCase{
		repo:    repo,
		catalog: catalog,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.dispatcher == nil {
		uc.dispatcher = async.NewDispatcher()
	}
	return uc
}

// CreateRiskInput is a risk creation request before validation. Tasks are used
// as given after normalization; an empty list seeds tasks from the catalog.
type CreateRiskInput struct {
	Title      string
	Dept       string
	ReviewDate string
	Level      string
	Owner      string
	Tasks      []model.TaskTemplate
}

// ListRisks returns every risk with its progress, earliest review date first
func (uc *RiskUseCase) ListRisks(ctx context.Context) ([]*model.RiskSummary, error) {
	risks, err := uc.repo.Risk().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list risks")
	}
	return risks, nil
}

// GetRisk returns a risk with its tasks. A risk without tasks is seeded from the
// catalog first; concurrent calls for the same risk share one seeding attempt.
func (uc *RiskUseCase) GetRisk(ctx context.Context, id int64) (*model.RiskDetail, error) {
	detail, err := uc.repo.Risk().Get(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V(RiskIDKey, id))
	}
	if len(detail.Tasks) > 0 {
		return detail, nil
	}

	v, err, _ := uc.seeds.Do(strconv.FormatInt(id, 10), func() (any, error) {
		// Callers joining this attempt must not fail when the first caller goes away
		ctx := context.WithoutCancel(ctx)

		seeded, err := uc.repo.Risk().SeedTasks(ctx, id, uc.catalog.Tasks(detail.Title))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to seed risk tasks", goerr.V(RiskIDKey, id))
		}
		if seeded {
			uc.metrics.TasksSeededBy(metrics.SeedTriggerLazy)
			logging.From(ctx).Info("seeded risk tasks",
				"risk_id", id,
				"catalog_entry", uc.catalog.EntryName(detail.Title),
			)
		}

		reloaded, err := uc.repo.Risk().Get(ctx, id)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to reload risk", goerr.V(RiskIDKey, id))
		}
		return reloaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*model.RiskDetail), nil
}

// CreateRisk validates input, stores the risk and its tasks atomically and returns the new ID
func (uc *RiskUseCase) CreateRisk(ctx context.Context, input CreateRiskInput) (int64, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return 0, goerr.Wrap(ErrInvalidRequest, "risk_title is required")
	}

	reviewDate, err := model.ParseReviewDate(input.ReviewDate)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidRequest, "review_date must be YYYY-MM-DD", goerr.V("review_date", input.ReviewDate))
	}

	level, err := types.ParseRiskLevel(input.Level)
	if err != nil {
		return 0, goerr.Wrap(ErrInvalidRequest, "invalid risk_level", goerr.V("risk_level", input.Level))
	}

	dept := strings.TrimSpace(input.Dept)
	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		owner = dept
	}

	risk := &model.Risk{
		Title:      title,
		Dept:       dept,
		ReviewDate: reviewDate,
		Level:      level,
		Owner:      owner,
	}
	if err := risk.Validate(); err != nil {
		return 0, goerr.Wrap(ErrInvalidRequest, err.Error())
	}

	tasks := model.NormalizeTaskTemplates(input.Tasks)
	seeded := false
	if len(tasks) == 0 {
		tasks = uc.catalog.Tasks(title)
		seeded = true
	}

	id, err := uc.repo.Risk().Create(ctx, risk, tasks)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create risk", goerr.V("title", title))
	}

	uc.metrics.RiskCreated()
	if seeded {
		uc.metrics.TasksSeededBy(metrics.SeedTriggerCreate)
	}
	logging.From(ctx).Info("risk created",
		"risk_id", id,
		"tasks", len(tasks),
		"seeded", seeded,
	)

	return id, nil
}

// UpdateTasks sets done flags of the risk's tasks and returns the resulting progress.
// Updates for tasks of other risks are ignored. A status transition is notified
// in the background.
func (uc *RiskUseCase) UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error) {
	result, err := uc.repo.Risk().UpdateTasks(ctx, id, updates)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk tasks", goerr.V(RiskIDKey, id))
	}

	uc.metrics.TaskFlagsWritten(result.Updated)
	if result.StatusChanged() {
		uc.metrics.StatusChanged(result.Current.Status().String())
		uc.notifyStatusChange(ctx, id, result)
	}

	return result, nil
}

func (uc *RiskUseCase) notifyStatusChange(ctx context.Context, id int64, result *model.TaskUpdateResult) {
	if uc.notifier == nil {
		return
	}

	uc.dispatcher.Dispatch(ctx, "notify_status_change", func(ctx context.Context) error {
		detail, err := uc.repo.Risk().Get(ctx, id)
		if err != nil {
			return goerr.Wrap(err, "failed to get risk for notification", goerr.V(RiskIDKey, id))
		}
		if err := uc.notifier.NotifyStatusChange(ctx, &detail.Risk, result); err != nil {
			return goerr.Wrap(err, "failed to notify status change", goerr.V(RiskIDKey, id))
		}
		return nil
	})
}

// DeleteRisk removes the risk and its tasks. Deleting a missing risk succeeds.
func (uc *RiskUseCase) DeleteRisk(ctx context.Context, id int64) error {
	if err := uc.repo.Risk().Delete(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete risk", goerr.V(RiskIDKey, id))
	}
	logging.From(ctx).Info("risk deleted", "risk_id", id)
	return nil
}

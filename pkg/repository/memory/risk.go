package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

// riskRepository keeps risks and tasks behind one lock, so every method is atomic
// with respect to the others.
type riskRepository struct {
	mu         sync.RWMutex
	risks      map[int64]*model.Risk
	tasks      map[int64][]*model.RiskTask
	nextRiskID int64
	nextTaskID int64
}

func newRiskRepository() *riskRepository {
	return &riskRepository{
		risks:      make(map[int64]*model.Risk),
		tasks:      make(map[int64][]*model.RiskTask),
		nextRiskID: 1,
		nextTaskID: 1,
	}
}

func copyRisk(r *model.Risk) model.Risk {
	return model.Risk{
		ID:         r.ID,
		Title:      r.Title,
		Dept:       r.Dept,
		ReviewDate: r.ReviewDate,
		Level:      r.Level,
		Owner:      r.Owner,
	}
}

func copyTasks(tasks []*model.RiskTask) []*model.RiskTask {
	out := make([]*model.RiskTask, len(tasks))
	for i, t := range tasks {
		c := *t
		out[i] = &c
	}
	return out
}

func (r *riskRepository) List(ctx context.Context) ([]*model.RiskSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summaries := make([]*model.RiskSummary, 0, len(r.risks))
	for id, risk := range r.risks {
		summaries = append(summaries, &model.RiskSummary{
			Risk:     copyRisk(risk),
			Progress: model.ComputeProgress(r.tasks[id]),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if !a.ReviewDate.Equal(b.ReviewDate) {
			return a.ReviewDate.Before(b.ReviewDate)
		}
		return a.ID < b.ID
	})

	return summaries, nil
}

func (r *riskRepository) Get(ctx context.Context, id int64) (*model.RiskDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	risk, exists := r.risks[id]
	if !exists {
		return nil, goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
	}

	return &model.RiskDetail{
		Risk:  copyRisk(risk),
		Tasks: copyTasks(r.tasks[id]),
	}, nil
}

// insertTasks must be called with the write lock held
func (r *riskRepository) insertTasks(riskID int64, tasks []model.TaskTemplate) {
	for _, t := range tasks {
		r.tasks[riskID] = append(r.tasks[riskID], &model.RiskTask{
			ID:     r.nextTaskID,
			RiskID: riskID,
			Label:  t.Label,
			Weight: t.Weight,
			Done:   t.Done,
		})
		r.nextTaskID++
	}
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, tasks []model.TaskTemplate) (int64, error) {
	if risk == nil {
		return 0, goerr.New("risk is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyRisk(risk)
	created.ID = r.nextRiskID
	created.Level = created.Level.Normalize()
	r.nextRiskID++

	r.risks[created.ID] = &created
	r.insertTasks(created.ID, tasks)

	return created.ID, nil
}

func (r *riskRepository) SeedTasks(ctx context.Context, id int64, tasks []model.TaskTemplate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.risks[id]; !exists {
		return false, goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
	}
	if len(r.tasks[id]) > 0 || len(tasks) == 0 {
		return false, nil
	}

	r.insertTasks(id, tasks)
	return true, nil
}

func (r *riskRepository) UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tasks := r.tasks[id]
	result := &model.TaskUpdateResult{
		Previous: model.ComputeProgress(tasks),
	}

	for _, u := range updates {
		if u.ID == nil {
			continue
		}
		for _, t := range tasks {
			if t.ID == *u.ID {
				t.Done = u.Done
				result.Updated++
				break
			}
		}
	}

	result.Current = model.ComputeProgress(tasks)
	return result, nil
}

func (r *riskRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, id)
	delete(r.risks, id)
	return nil
}

package firestore

import (
	"context"
	"sort"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// riskDocument carries the aggregated task weights so List reads one document per risk
type riskDocument struct {
	ID              int64     `firestore:"id"`
	Title           string    `firestore:"title"`
	Dept            string    `firestore:"dept"`
	ReviewDate      time.Time `firestore:"review_date"`
	Level           string    `firestore:"level"`
	Owner           string    `firestore:"owner"`
	CompletedWeight int64     `firestore:"completed_weight"`
	TotalWeight     int64     `firestore:"total_weight"`
	CreatedAt       time.Time `firestore:"created_at"`
	UpdatedAt       time.Time `firestore:"updated_at"`
}

type taskDocument struct {
	ID     int64  `firestore:"id"`
	RiskID int64  `firestore:"risk_id"`
	Label  string `firestore:"label"`
	Weight int64  `firestore:"weight"`
	Done   bool   `firestore:"done"`
}

func (d *riskDocument) toModel() model.Risk {
	return model.Risk{
		ID:         d.ID,
		Title:      d.Title,
		Dept:       d.Dept,
		ReviewDate: model.DateOf(d.ReviewDate),
		Level:      types.RiskLevel(d.Level).Normalize(),
		Owner:      d.Owner,
	}
}

func (d *taskDocument) toModel() *model.RiskTask {
	return &model.RiskTask{
		ID:     d.ID,
		RiskID: d.RiskID,
		Label:  d.Label,
		Weight: int(d.Weight),
		Done:   d.Done,
	}
}

type riskRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRiskRepository(client *firestore.Client) *riskRepository {
	return &riskRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *riskRepository) risksCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_risks"
	}
	return "risks"
}

func (r *riskRepository) counterCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_counters"
	}
	return "counters"
}

const (
	riskCounterDoc = "risk_counter"
	taskCounterDoc = "risk_task_counter"
	tasksSubcol    = "tasks"
)

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (r *riskRepository) riskRef(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.risksCollection()).Doc(docID(id))
}

func (r *riskRepository) tasksRef(riskID int64) *firestore.CollectionRef {
	return r.riskRef(riskID).Collection(tasksSubcol)
}

func (r *riskRepository) counterRef(name string) *firestore.DocumentRef {
	return r.client.Collection(r.counterCollection()).Doc(name)
}

// readCounter returns the last issued value of a counter, 0 if it was never used
func readCounter(tx *firestore.Transaction, ref *firestore.DocumentRef) (int64, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, nil
		}
		return 0, goerr.Wrap(err, "failed to get counter", goerr.V("counter", ref.ID))
	}

	v, err := doc.DataAt("value")
	if err != nil {
		return 0, goerr.Wrap(err, "failed to get counter value", goerr.V("counter", ref.ID))
	}
	n, ok := v.(int64)
	if !ok {
		return 0, goerr.New("counter value is not an integer", goerr.V("counter", ref.ID), goerr.V("value", v))
	}
	return n, nil
}

func readTasks(tx *firestore.Transaction, col *firestore.CollectionRef) ([]*taskDocument, error) {
	snaps, err := tx.Documents(col).GetAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read tasks", goerr.V("collection", col.Path))
	}

	tasks := make([]*taskDocument, 0, len(snaps))
	for _, snap := range snaps {
		var t taskDocument
		if err := snap.DataTo(&t); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal task", goerr.V("path", snap.Ref.Path))
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// writeTasks queues task documents with ids following lastTaskID and returns their weights
func (r *riskRepository) writeTasks(tx *firestore.Transaction, riskID, lastTaskID int64, tasks []model.TaskTemplate) (completed, total int64, err error) {
	col := r.tasksRef(riskID)
	for i, t := range tasks {
		doc := &taskDocument{
			ID:     lastTaskID + int64(i) + 1,
			RiskID: riskID,
			Label:  t.Label,
			Weight: int64(t.Weight),
			Done:   t.Done,
		}
		if err := tx.Set(col.Doc(docID(doc.ID)), doc); err != nil {
			return 0, 0, goerr.Wrap(err, "failed to write task", goerr.V("risk_id", riskID), goerr.V("index", i))
		}
		total += doc.Weight
		if doc.Done {
			completed += doc.Weight
		}
	}

	if len(tasks) > 0 {
		if err := tx.Set(r.counterRef(taskCounterDoc), map[string]any{
			"value": lastTaskID + int64(len(tasks)),
		}); err != nil {
			return 0, 0, goerr.Wrap(err, "failed to advance task counter")
		}
	}
	return completed, total, nil
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, tasks []model.TaskTemplate) (int64, error) {
	if risk == nil {
		return 0, goerr.New("risk is nil")
	}

	var id int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// all reads precede writes in a firestore transaction
		lastRiskID, err := readCounter(tx, r.counterRef(riskCounterDoc))
		if err != nil {
			return err
		}
		lastTaskID, err := readCounter(tx, r.counterRef(taskCounterDoc))
		if err != nil {
			return err
		}

		id = lastRiskID + 1
		if err := tx.Set(r.counterRef(riskCounterDoc), map[string]any{"value": id}); err != nil {
			return goerr.Wrap(err, "failed to advance risk counter")
		}

		completed, total, err := r.writeTasks(tx, id, lastTaskID, tasks)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		doc := &riskDocument{
			ID:              id,
			Title:           risk.Title,
			Dept:            risk.Dept,
			ReviewDate:      model.DateOf(risk.ReviewDate),
			Level:           risk.Level.Normalize().String(),
			Owner:           risk.Owner,
			CompletedWeight: completed,
			TotalWeight:     total,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Create(r.riskRef(id), doc); err != nil {
			return goerr.Wrap(err, "failed to create risk", goerr.V("id", id))
		}
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create risk", goerr.V("title", risk.Title))
	}

	return id, nil
}

func (r *riskRepository) getRiskDoc(tx *firestore.Transaction, id int64) (*riskDocument, error) {
	snap, err := tx.Get(r.riskRef(id))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	var doc riskDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal risk", goerr.V("id", id))
	}
	return &doc, nil
}

func (r *riskRepository) Get(ctx context.Context, id int64) (*model.RiskDetail, error) {
	snap, err := r.riskRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	var doc riskDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal risk", goerr.V("id", id))
	}

	iter := r.tasksRef(id).Documents(ctx)
	defer iter.Stop()

	tasks := []*model.RiskTask{}
	for {
		taskSnap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate tasks", goerr.V("id", id))
		}

		var t taskDocument
		if err := taskSnap.DataTo(&t); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal task", goerr.V("id", id))
		}
		tasks = append(tasks, t.toModel())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return &model.RiskDetail{
		Risk:  doc.toModel(),
		Tasks: tasks,
	}, nil
}

func (r *riskRepository) List(ctx context.Context) ([]*model.RiskSummary, error) {
	iter := r.client.Collection(r.risksCollection()).Documents(ctx)
	defer iter.Stop()

	var summaries []*model.RiskSummary
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate risks")
		}

		var doc riskDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal risk", goerr.V("path", snap.Ref.Path))
		}
		summaries = append(summaries, &model.RiskSummary{
			Risk:     doc.toModel(),
			Progress: model.NewProgress(int(doc.CompletedWeight), int(doc.TotalWeight)),
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

func (r *riskRepository) SeedTasks(ctx context.Context, id int64, tasks []model.TaskTemplate) (bool, error) {
	var seeded bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		seeded = false

		doc, err := r.getRiskDoc(tx, id)
		if err != nil {
			return err
		}
		existing, err := tx.Documents(r.tasksRef(id).Limit(1)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to check tasks", goerr.V("id", id))
		}
		if len(existing) > 0 || len(tasks) == 0 {
			return nil
		}
		lastTaskID, err := readCounter(tx, r.counterRef(taskCounterDoc))
		if err != nil {
			return err
		}

		completed, total, err := r.writeTasks(tx, id, lastTaskID, tasks)
		if err != nil {
			return err
		}

		doc.CompletedWeight = completed
		doc.TotalWeight = total
		doc.UpdatedAt = time.Now().UTC()
		if err := tx.Set(r.riskRef(id), doc); err != nil {
			return goerr.Wrap(err, "failed to update risk", goerr.V("id", id))
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to seed risk tasks")
	}

	return seeded, nil
}

func (r *riskRepository) UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error) {
	var result *model.TaskUpdateResult
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = &model.TaskUpdateResult{}

		doc, err := r.getRiskDoc(tx, id)
		if err != nil {
			// updates addressed to an unknown risk match nothing
			if isNotFound(err) {
				return nil
			}
			return err
		}
		taskDocs, err := readTasks(tx, r.tasksRef(id))
		if err != nil {
			return err
		}

		byID := make(map[int64]*taskDocument, len(taskDocs))
		tasks := make([]*model.RiskTask, 0, len(taskDocs))
		for _, t := range taskDocs {
			byID[t.ID] = t
		}
		for _, t := range taskDocs {
			tasks = append(tasks, t.toModel())
		}
		result.Previous = model.ComputeProgress(tasks)

		changed := make(map[int64]*taskDocument)
		for _, u := range updates {
			if u.ID == nil {
				continue
			}
			t, ok := byID[*u.ID]
			if !ok {
				continue
			}
			result.Updated++
			t.Done = u.Done
			changed[t.ID] = t
		}

		tasks = tasks[:0]
		for _, t := range taskDocs {
			tasks = append(tasks, t.toModel())
		}
		result.Current = model.ComputeProgress(tasks)

		if len(changed) == 0 {
			return nil
		}
		for taskID, t := range changed {
			if err := tx.Update(r.tasksRef(id).Doc(docID(taskID)), []firestore.Update{
				{Path: "done", Value: t.Done},
			}); err != nil {
				return goerr.Wrap(err, "failed to update task", goerr.V("id", id), goerr.V("task_id", taskID))
			}
		}

		if err := tx.Update(r.riskRef(id), []firestore.Update{
			{Path: "completed_weight", Value: int64(result.Current.CompletedWeight)},
			{Path: "total_weight", Value: int64(result.Current.TotalWeight)},
			{Path: "updated_at", Value: time.Now().UTC()},
		}); err != nil {
			return goerr.Wrap(err, "failed to update risk progress", goerr.V("id", id), goerr.V("title", doc.Title))
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk tasks")
	}

	return result, nil
}

func (r *riskRepository) Delete(ctx context.Context, id int64) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snaps, err := tx.Documents(r.tasksRef(id)).GetAll()
		if err != nil {
			return goerr.Wrap(err, "failed to read tasks", goerr.V("id", id))
		}

		for _, snap := range snaps {
			if err := tx.Delete(snap.Ref); err != nil {
				return goerr.Wrap(err, "failed to delete task", goerr.V("path", snap.Ref.Path))
			}
		}
		// deleting a missing document is not an error
		if err := tx.Delete(r.riskRef(id)); err != nil {
			return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
	}

	return nil
}

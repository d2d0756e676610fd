package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
)

const (
	listRisksQuery = `
		SELECT
			r.risk_id, r.risk_title, r.dept, r.review_date, r.risk_level, r.risk_owner,
			COALESCE(SUM(CASE WHEN rt.done THEN rt.weight ELSE 0 END), 0) AS completed_weight,
			COALESCE(SUM(rt.weight), 0) AS total_weight
		FROM risks r
		LEFT JOIN risk_tasks rt ON rt.risk_id = r.risk_id
		GROUP BY r.risk_id
		ORDER BY r.review_date ASC, r.risk_id ASC`

	getRiskQuery = `
		SELECT risk_id, risk_title, dept, review_date, risk_level, risk_owner
		FROM risks WHERE risk_id = $1`

	lockRiskQuery = `SELECT risk_id FROM risks WHERE risk_id = $1 FOR UPDATE`

	listTasksQuery = `
		SELECT id, risk_id, label, weight, done
		FROM risk_tasks WHERE risk_id = $1 ORDER BY id ASC`

	countTasksQuery = `SELECT COUNT(*) FROM risk_tasks WHERE risk_id = $1`

	progressQuery = `
		SELECT
			COALESCE(SUM(CASE WHEN done THEN weight ELSE 0 END), 0),
			COALESCE(SUM(weight), 0)
		FROM risk_tasks WHERE risk_id = $1`

	insertRiskQuery = `
		INSERT INTO risks (risk_title, dept, review_date, risk_level, risk_owner)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING risk_id`

	insertTaskQuery = `
		INSERT INTO risk_tasks (risk_id, label, weight, done)
		VALUES ($1, $2, $3, $4)`

	updateTaskDoneQuery = `UPDATE risk_tasks SET done = $3 WHERE risk_id = $1 AND id = $2`

	deleteTasksQuery = `DELETE FROM risk_tasks WHERE risk_id = $1`
	deleteRiskQuery  = `DELETE FROM risks WHERE risk_id = $1`
)

type riskRepository struct {
	pool *pgxpool.Pool
}

func newRiskRepository(pool *pgxpool.Pool) *riskRepository {
	return &riskRepository{pool: pool}
}

// riskRow holds the nullable columns of a risks row
type riskRow struct {
	id         int64
	title      string
	dept       *string
	reviewDate time.Time
	level      string
	owner      *string
}

func (row *riskRow) toModel() model.Risk {
	r := model.Risk{
		ID:         row.id,
		Title:      row.title,
		ReviewDate: model.DateOf(row.reviewDate),
		Level:      types.RiskLevel(row.level).Normalize(),
	}
	if row.dept != nil {
		r.Dept = *row.dept
	}
	if row.owner != nil {
		r.Owner = *row.owner
	}
	return r
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *riskRepository) List(ctx context.Context) ([]*model.RiskSummary, error) {
	rows, err := r.pool.Query(ctx, listRisksQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query risks")
	}
	defer rows.Close()

	var summaries []*model.RiskSummary
	for rows.Next() {
		var row riskRow
		var completed, total int64
		if err := rows.Scan(&row.id, &row.title, &row.dept, &row.reviewDate, &row.level, &row.owner, &completed, &total); err != nil {
			return nil, goerr.Wrap(err, "failed to scan risk")
		}
		summaries = append(summaries, &model.RiskSummary{
			Risk:     row.toModel(),
			Progress: model.NewProgress(int(completed), int(total)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate risks")
	}

	return summaries, nil
}

func (r *riskRepository) Get(ctx context.Context, id int64) (*model.RiskDetail, error) {
	var row riskRow
	err := r.pool.QueryRow(ctx, getRiskQuery, id).Scan(&row.id, &row.title, &row.dept, &row.reviewDate, &row.level, &row.owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	rows, err := r.pool.Query(ctx, listTasksQuery, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query risk tasks", goerr.V("id", id))
	}
	defer rows.Close()

	tasks := []*model.RiskTask{}
	for rows.Next() {
		var t model.RiskTask
		if err := rows.Scan(&t.ID, &t.RiskID, &t.Label, &t.Weight, &t.Done); err != nil {
			return nil, goerr.Wrap(err, "failed to scan risk task", goerr.V("id", id))
		}
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate risk tasks", goerr.V("id", id))
	}

	return &model.RiskDetail{
		Risk:  row.toModel(),
		Tasks: tasks,
	}, nil
}

func insertTasks(ctx context.Context, tx pgx.Tx, riskID int64, tasks []model.TaskTemplate) error {
	if len(tasks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(insertTaskQuery, riskID, t.Label, t.Weight, t.Done)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range tasks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return goerr.Wrap(err, "failed to insert risk task", goerr.V("risk_id", riskID), goerr.V("index", i))
		}
	}
	if err := br.Close(); err != nil {
		return goerr.Wrap(err, "failed to close task batch", goerr.V("risk_id", riskID))
	}
	return nil
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, tasks []model.TaskTemplate) (int64, error) {
	if risk == nil {
		return 0, goerr.New("risk is nil")
	}

	var id int64
	err := execTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertRiskQuery,
			risk.Title,
			nullable(risk.Dept),
			risk.ReviewDate,
			risk.Level.Normalize().String(),
			nullable(risk.Owner),
		).Scan(&id); err != nil {
			return goerr.Wrap(err, "failed to insert risk", goerr.V("title", risk.Title))
		}

		return insertTasks(ctx, tx, id, tasks)
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create risk")
	}

	return id, nil
}

func (r *riskRepository) SeedTasks(ctx context.Context, id int64, tasks []model.TaskTemplate) (bool, error) {
	var seeded bool
	err := execTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, lockRiskQuery, id).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to lock risk", goerr.V("id", id))
		}

		var count int64
		if err := tx.QueryRow(ctx, countTasksQuery, id).Scan(&count); err != nil {
			return goerr.Wrap(err, "failed to count risk tasks", goerr.V("id", id))
		}
		if count > 0 || len(tasks) == 0 {
			return nil
		}

		if err := insertTasks(ctx, tx, id, tasks); err != nil {
			return err
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to seed risk tasks")
	}

	return seeded, nil
}

func queryProgress(ctx context.Context, tx pgx.Tx, id int64) (model.Progress, error) {
	var completed, total int64
	if err := tx.QueryRow(ctx, progressQuery, id).Scan(&completed, &total); err != nil {
		return model.Progress{}, goerr.Wrap(err, "failed to aggregate progress", goerr.V("id", id))
	}
	return model.NewProgress(int(completed), int(total)), nil
}

func (r *riskRepository) UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error) {
	result := &model.TaskUpdateResult{}
	err := execTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Serializes concurrent batches on the same risk so Previous is exact.
		var locked int64
		if err := tx.QueryRow(ctx, lockRiskQuery, id).Scan(&locked); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return goerr.Wrap(err, "failed to lock risk", goerr.V("id", id))
		}

		prev, err := queryProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Previous = prev

		for _, u := range updates {
			if u.ID == nil {
				continue
			}
			tag, err := tx.Exec(ctx, updateTaskDoneQuery, id, *u.ID, u.Done)
			if err != nil {
				return goerr.Wrap(err, "failed to update task", goerr.V("id", id), goerr.V("task_id", *u.ID))
			}
			result.Updated += int(tag.RowsAffected())
		}

		cur, err := queryProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Current = cur
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update risk tasks")
	}

	return result, nil
}

func (r *riskRepository) Delete(ctx context.Context, id int64) error {
	err := execTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteTasksQuery, id); err != nil {
			return goerr.Wrap(err, "failed to delete risk tasks", goerr.V("id", id))
		}
		if _, err := tx.Exec(ctx, deleteRiskQuery, id); err != nil {
			return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete risk")
	}
	return nil
}

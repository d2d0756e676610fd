package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
)

const (
	listRisksQuery = `
		SELECT
			r.risk_id, r.risk_title, r.dept, r.review_date, r.risk_level, r.risk_owner,
			COALESCE(SUM(CASE WHEN rt.done THEN rt.weight ELSE 0 END), 0),
			COALESCE(SUM(rt.weight), 0)
		FROM risks r
		LEFT JOIN risk_tasks rt ON rt.risk_id = r.risk_id
		GROUP BY r.risk_id
		ORDER BY r.review_date ASC, r.risk_id ASC`

	getRiskQuery = `
		SELECT risk_id, risk_title, dept, review_date, risk_level, risk_owner
		FROM risks WHERE risk_id = ?`

	riskExistsQuery = `SELECT COUNT(*) FROM risks WHERE risk_id = ?`

	listTasksQuery = `
		SELECT id, risk_id, label, weight, done
		FROM risk_tasks WHERE risk_id = ? ORDER BY id ASC`

	countTasksQuery = `SELECT COUNT(*) FROM risk_tasks WHERE risk_id = ?`

	progressQuery = `
		SELECT
			COALESCE(SUM(CASE WHEN done THEN weight ELSE 0 END), 0),
			COALESCE(SUM(weight), 0)
		FROM risk_tasks WHERE risk_id = ?`

	insertRiskQuery = `
		INSERT INTO risks (risk_title, dept, review_date, risk_level, risk_owner)
		VALUES (?, ?, ?, ?, ?)`

	insertTaskQuery = `INSERT INTO risk_tasks (risk_id, label, weight, done) VALUES (?, ?, ?, ?)`

	updateTaskDoneQuery = `UPDATE risk_tasks SET done = ? WHERE risk_id = ? AND id = ?`

	deleteTasksQuery = `DELETE FROM risk_tasks WHERE risk_id = ?`
	deleteRiskQuery  = `DELETE FROM risks WHERE risk_id = ?`
)

type riskRepository struct {
	db *sql.DB
}

func newRiskRepository(db *sql.DB) *riskRepository {
	return &riskRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRisk(row scanner, extra ...any) (model.Risk, error) {
	var (
		r          model.Risk
		dept       sql.NullString
		reviewDate string
		level      string
		owner      sql.NullString
	)
	dest := append([]any{&r.ID, &r.Title, &dept, &reviewDate, &level, &owner}, extra...)
	if err := row.Scan(dest...); err != nil {
		return r, err
	}

	d, err := time.Parse(model.DateLayout, reviewDate)
	if err != nil {
		return r, goerr.Wrap(err, "invalid stored review date", goerr.V("risk_id", r.ID), goerr.V("review_date", reviewDate))
	}
	r.ReviewDate = d
	r.Dept = dept.String
	r.Owner = owner.String
	r.Level = types.RiskLevel(level).Normalize()
	return r, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *riskRepository) List(ctx context.Context) ([]*model.RiskSummary, error) {
	rows, err := r.db.QueryContext(ctx, listRisksQuery)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query risks")
	}
	defer rows.Close()

	var summaries []*model.RiskSummary
	for rows.Next() {
		var completed, total int64
		risk, err := scanRisk(rows, &completed, &total)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan risk")
		}
		summaries = append(summaries, &model.RiskSummary{
			Risk:     risk,
			Progress: model.NewProgress(int(completed), int(total)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate risks")
	}

	return summaries, nil
}

func (r *riskRepository) Get(ctx context.Context, id int64) (*model.RiskDetail, error) {
	risk, err := scanRisk(r.db.QueryRowContext(ctx, getRiskQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	rows, err := r.db.QueryContext(ctx, listTasksQuery, id)
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

	return &model.RiskDetail{Risk: risk, Tasks: tasks}, nil
}

func insertTasks(ctx context.Context, tx *sql.Tx, riskID int64, tasks []model.TaskTemplate) error {
	if len(tasks) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, insertTaskQuery)
	if err != nil {
		return goerr.Wrap(err, "failed to prepare task insert")
	}
	defer stmt.Close()

	for i, t := range tasks {
		if _, err := stmt.ExecContext(ctx, riskID, t.Label, t.Weight, t.Done); err != nil {
			return goerr.Wrap(err, "failed to insert risk task", goerr.V("risk_id", riskID), goerr.V("index", i))
		}
	}
	return nil
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, tasks []model.TaskTemplate) (int64, error) {
	if risk == nil {
		return 0, goerr.New("risk is nil")
	}

	var id int64
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertRiskQuery,
			risk.Title,
			nullable(risk.Dept),
			risk.ReviewDate.Format(model.DateLayout),
			risk.Level.Normalize().String(),
			nullable(risk.Owner),
		)
		if err != nil {
			return goerr.Wrap(err, "failed to insert risk", goerr.V("title", risk.Title))
		}
		if id, err = res.LastInsertId(); err != nil {
			return goerr.Wrap(err, "failed to get inserted risk id")
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
	// BEGIN IMMEDIATE holds the write lock from the first statement, so the
	// count and insert below cannot interleave with another seeder.
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int64
		if err := tx.QueryRowContext(ctx, riskExistsQuery, id).Scan(&exists); err != nil {
			return goerr.Wrap(err, "failed to check risk", goerr.V("id", id))
		}
		if exists == 0 {
			return goerr.Wrap(model.ErrRiskNotFound, "risk not found", goerr.V("id", id))
		}

		var count int64
		if err := tx.QueryRowContext(ctx, countTasksQuery, id).Scan(&count); err != nil {
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

func queryProgress(ctx context.Context, tx *sql.Tx, id int64) (model.Progress, error) {
	var completed, total int64
	if err := tx.QueryRowContext(ctx, progressQuery, id).Scan(&completed, &total); err != nil {
		return model.Progress{}, goerr.Wrap(err, "failed to aggregate progress", goerr.V("id", id))
	}
	return model.NewProgress(int(completed), int(total)), nil
}

func (r *riskRepository) UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error) {
	result := &model.TaskUpdateResult{}
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		prev, err := queryProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		result.Previous = prev

		for _, u := range updates {
			if u.ID == nil {
				continue
			}
			res, err := tx.ExecContext(ctx, updateTaskDoneQuery, u.Done, id, *u.ID)
			if err != nil {
				return goerr.Wrap(err, "failed to update task", goerr.V("id", id), goerr.V("task_id", *u.ID))
			}
			n, err := res.RowsAffected()
			if err != nil {
				return goerr.Wrap(err, "failed to get affected rows", goerr.V("id", id))
			}
			result.Updated += int(n)
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
	err := execTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteTasksQuery, id); err != nil {
			return goerr.Wrap(err, "failed to delete risk tasks", goerr.V("id", id))
		}
		if _, err := tx.ExecContext(ctx, deleteRiskQuery, id); err != nil {
			return goerr.Wrap(err, "failed to delete risk", goerr.V("id", id))
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete risk")
	}
	return nil
}

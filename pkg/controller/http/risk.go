package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/usecase"
	"github.com/secmon-lab/complytrack/pkg/utils/errutil"
	"github.com/secmon-lab/complytrack/pkg/utils/safe"
)

const maxRequestBodyBytes = 1 << 20

type riskSummaryResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"risk_title"`
	Dept       string `json:"dept"`
	ReviewDate string `json:"review_date"`
	Progress   int    `json:"progress"`
	Status     string `json:"status"`
	Level      string `json:"risk_level"`
	Owner      string `json:"risk_owner"`
}

type taskResponse struct {
	ID     int64  `json:"id"`
	Label  string `json:"label"`
	Weight int    `json:"weight"`
	Done   bool   `json:"done"`
}

type riskDetailResponse struct {
	ID         int64          `json:"id"`
	Title      string         `json:"risk_title"`
	Dept       string         `json:"dept"`
	ReviewDate string         `json:"review_date"`
	Level      string         `json:"risk_level"`
	Owner      string         `json:"risk_owner"`
	Tasks      []taskResponse `json:"tasks"`
	Progress   int            `json:"progress"`
	Status     string         `json:"status"`
}

type createRiskRequest struct {
	Title      string          `json:"risk_title"`
	Dept       string          `json:"dept"`
	ReviewDate string          `json:"review_date"`
	Level      string          `json:"risk_level"`
	Owner      string          `json:"risk_owner"`
	Tasks      json.RawMessage `json:"tasks"`
}

type updateTasksRequest struct {
	Tasks json.RawMessage `json:"tasks"`
}

type createRiskResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type updateTasksResponse struct {
	Success  bool `json:"success"`
	Progress int  `json:"progress"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// statusCodeOf maps use case errors to HTTP status codes
func statusCodeOf(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrRiskNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// riskIDParam parses the {id} path parameter as a positive integer
func riskIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(usecase.ErrInvalidRequest, "invalid risk id", goerr.V("id", raw))
	}
	return id, nil
}

func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrInvalidRequest, "malformed JSON body", goerr.V("cause", err.Error()))
	}
	return nil
}

func listRisksHandler(uc RiskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		risks, err := uc.ListRisks(r.Context())
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, statusCodeOf(err))
			return
		}

		resp := make([]riskSummaryResponse, len(risks))
		for i, risk := range risks {
			resp[i] = riskSummaryResponse{
				ID:         risk.ID,
				Title:      risk.Title,
				Dept:       risk.DisplayDept(),
				ReviewDate: risk.ReviewDate.Format(model.DateLayout),
				Progress:   risk.Progress.Percent(),
				Status:     risk.Progress.Status().String(),
				Level:      risk.Level.Normalize().String(),
				Owner:      risk.Owner,
			}
		}
		safe.WriteJSON(r.Context(), w, http.StatusOK, resp)
	}
}

func getRiskHandler(uc RiskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := riskIDParam(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		detail, err := uc.GetRisk(r.Context(), id)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, statusCodeOf(err))
			return
		}

		tasks := make([]taskResponse, len(detail.Tasks))
		for i, t := range detail.Tasks {
			tasks[i] = taskResponse{
				ID:     t.ID,
				Label:  t.Label,
				Weight: t.Weight,
				Done:   t.Done,
			}
		}
		progress := detail.Progress()
		safe.WriteJSON(r.Context(), w, http.StatusOK, riskDetailResponse{
			ID:         detail.ID,
			Title:      detail.Title,
			Dept:       detail.DisplayDept(),
			ReviewDate: detail.ReviewDate.Format(model.DateLayout),
			Level:      detail.Level.Normalize().String(),
			Owner:      detail.Owner,
			Tasks:      tasks,
			Progress:   progress.Percent(),
			Status:     progress.Status().String(),
		})
	}
}

func createRiskHandler(uc RiskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRiskRequest
		if err := decodeBody(r, w, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		id, err := uc.CreateRisk(r.Context(), usecase.CreateRiskInput{
			Title:      req.Title,
			Dept:       req.Dept,
			ReviewDate: req.ReviewDate,
			Level:      req.Level,
			Owner:      req.Owner,
			Tasks:      decodeTaskTemplates(req.Tasks),
		})
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, statusCodeOf(err))
			return
		}

		safe.WriteJSON(r.Context(), w, http.StatusOK, createRiskResponse{Success: true, ID: id})
	}
}

func updateTasksHandler(uc RiskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := riskIDParam(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		var req updateTasksRequest
		if err := decodeBody(r, w, &req); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}
		updates, ok := decodeTaskUpdates(req.Tasks)
		if !ok {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(usecase.ErrInvalidRequest, "tasks must be an array"), http.StatusBadRequest)
			return
		}

		result, err := uc.UpdateTasks(r.Context(), id, updates)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, statusCodeOf(err))
			return
		}

		safe.WriteJSON(r.Context(), w, http.StatusOK, updateTasksResponse{
			Success:  true,
			Progress: result.Current.Percent(),
		})
	}
}

func deleteRiskHandler(uc RiskUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := riskIDParam(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
			return
		}

		if err := uc.DeleteRisk(r.Context(), id); err != nil {
			errutil.HandleHTTP(r.Context(), w, err, statusCodeOf(err))
			return
		}

		safe.WriteJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
	}
}

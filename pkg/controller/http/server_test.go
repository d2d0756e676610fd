package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	httpctrl "github.com/secmon-lab/complytrack/pkg/controller/http"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/repository/memory"
	"github.com/secmon-lab/complytrack/pkg/usecase"
	"github.com/secmon-lab/complytrack/pkg/utils/metrics"
)

type testServer struct {
	repo *memory.Memory
	srv  *httptest.Server
}

func newTestServer(t *testing.T, opts ...httpctrl.Options) *testServer {
	t.Helper()

	repo := memory.New()
	uc := usecase.New(repo)
	srv := httptest.NewServer(httpctrl.New(uc.Risk, opts...))
	t.Cleanup(srv.Close)

	return &testServer{repo: repo, srv: srv}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	gt.NoError(t, err).Required()
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()
	return resp.StatusCode, data
}

type riskSummary struct {
	ID         int64  `json:"id"`
	Title      string `json:"risk_title"`
	Dept       string `json:"dept"`
	ReviewDate string `json:"review_date"`
	Progress   int    `json:"progress"`
	Status     string `json:"status"`
	Level      string `json:"risk_level"`
	Owner      string `json:"risk_owner"`
}

type riskDetail struct {
	riskSummary
	Tasks []struct {
		ID     int64  `json:"id"`
		Label  string `json:"label"`
		Weight int    `json:"weight"`
		Done   bool   `json:"done"`
	} `json:"tasks"`
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// createdBody is the response of POST /api/risks
type createdBody struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(data, &v)).Required()
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/health", "")
	gt.Value(t, code).Equal(http.StatusOK)
	gt.Value(t, decode[map[string]string](t, body)["status"]).Equal("ok")
}

func TestRiskLifecycle(t *testing.T) {
	s := newTestServer(t)

	// create with seeded tasks
	code, body := s.do(t, http.MethodPost, "/api/risks",
		`{"risk_title":"Data breach at vendor","dept":"Security","review_date":"2025-05-01","risk_level":"High"}`)
	gt.Value(t, code).Equal(http.StatusOK)
	created := decode[struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}](t, body)
	gt.Bool(t, created.Success).True()

	code, body = s.do(t, http.MethodGet, "/api/risks/"+itoa(created.ID), "")
	gt.Value(t, code).Equal(http.StatusOK)
	detail := decode[riskDetail](t, body)
	gt.Value(t, detail.Title).Equal("Data breach at vendor")
	gt.Value(t, detail.Dept).Equal("Security")
	gt.Value(t, detail.ReviewDate).Equal("2025-05-01")
	gt.Value(t, detail.Level).Equal("High")
	gt.Value(t, detail.Owner).Equal("Security")
	gt.Array(t, detail.Tasks).Length(6).Required()
	gt.Value(t, detail.Tasks[0].Label).Equal("Isolate affected systems")
	gt.Value(t, detail.Progress).Equal(0)
	gt.Value(t, detail.Status).Equal("At risk")

	// complete the first three tasks: 20 + 20 + 15 = 55
	payload := `{"tasks":[{"id":` + itoa(detail.Tasks[0].ID) + `,"done":true},{"id":` + itoa(detail.Tasks[1].ID) +
		`,"done":1},{"id":"` + itoa(detail.Tasks[2].ID) + `","done":"yes"},{"done":true}]}`
	code, body = s.do(t, http.MethodPut, "/api/risks/"+itoa(created.ID)+"/tasks", payload)
	gt.Value(t, code).Equal(http.StatusOK)
	updated := decode[struct {
		Success  bool `json:"success"`
		Progress int  `json:"progress"`
	}](t, body)
	gt.Bool(t, updated.Success).True()
	gt.Value(t, updated.Progress).Equal(55)

	code, body = s.do(t, http.MethodGet, "/api/risks", "")
	gt.Value(t, code).Equal(http.StatusOK)
	list := decode[[]riskSummary](t, body)
	gt.Array(t, list).Length(1).Required()
	gt.Value(t, list[0].Progress).Equal(55)
	gt.Value(t, list[0].Status).Equal("on track")

	code, body = s.do(t, http.MethodDelete, "/api/risks/"+itoa(created.ID), "")
	gt.Value(t, code).Equal(http.StatusOK)
	gt.Bool(t, decode[map[string]bool](t, body)["success"]).True()

	code, body = s.do(t, http.MethodGet, "/api/risks/"+itoa(created.ID), "")
	gt.Value(t, code).Equal(http.StatusNotFound)
	gt.Bool(t, decode[errorBody](t, body).Success).False()
}

func TestCreateRiskWithTasks(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/risks",
		`{"risk_title":"Custom","review_date":"2025-01-31","tasks":[{"label":"","weight":150,"done":1},{"label":"B","weight":"30"}]}`)
	gt.Value(t, code).Equal(http.StatusOK)
	created := decode[createdBody](t, body)
	gt.Bool(t, created.Success).True()
	id := created.ID

	code, body = s.do(t, http.MethodGet, "/api/risks/"+itoa(id), "")
	gt.Value(t, code).Equal(http.StatusOK)
	detail := decode[riskDetail](t, body)
	gt.Value(t, detail.Dept).Equal(model.UnassignedDept)
	gt.Value(t, detail.Level).Equal("Low")
	gt.Array(t, detail.Tasks).Length(2).Required()
	gt.Value(t, detail.Tasks[0].Label).Equal("Task")
	gt.Value(t, detail.Tasks[0].Weight).Equal(100)
	gt.Bool(t, detail.Tasks[0].Done).True()
	gt.Value(t, detail.Tasks[1].Label).Equal("B")
	gt.Value(t, detail.Tasks[1].Weight).Equal(0)
	gt.Value(t, detail.Progress).Equal(100)
	gt.Value(t, detail.Status).Equal("Ahead")
}

func TestGetRiskSeedsExistingRiskWithoutTasks(t *testing.T) {
	s := newTestServer(t)

	id, err := s.repo.Risk().Create(context.Background(), &model.Risk{
		Title:      "Supplier non-compliance",
		ReviewDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	gt.NoError(t, err).Required()

	code, body := s.do(t, http.MethodGet, "/api/risks/"+itoa(id), "")
	gt.Value(t, code).Equal(http.StatusOK)
	detail := decode[riskDetail](t, body)
	gt.Array(t, detail.Tasks).Length(6).Required()
	gt.Value(t, detail.Tasks[0].Label).Equal("Notify procurement")
}

func TestUpdateTasksIgnoresOtherRisks(t *testing.T) {
	s := newTestServer(t)

	_, body := s.do(t, http.MethodPost, "/api/risks", `{"risk_title":"A","review_date":"2025-01-01","tasks":[{"label":"a","weight":100}]}`)
	idA := decode[createdBody](t, body).ID
	_, body = s.do(t, http.MethodPost, "/api/risks", `{"risk_title":"B","review_date":"2025-01-01","tasks":[{"label":"b","weight":100}]}`)
	idB := decode[createdBody](t, body).ID

	_, body = s.do(t, http.MethodGet, "/api/risks/"+itoa(idB), "")
	taskB := decode[riskDetail](t, body).Tasks[0].ID

	code, body := s.do(t, http.MethodPut, "/api/risks/"+itoa(idA)+"/tasks", `{"tasks":[{"id":`+itoa(taskB)+`,"done":true}]}`)
	gt.Value(t, code).Equal(http.StatusOK)
	gt.Value(t, decode[map[string]any](t, body)["progress"]).Equal(float64(0))

	_, body = s.do(t, http.MethodGet, "/api/risks/"+itoa(idB), "")
	gt.Bool(t, decode[riskDetail](t, body).Tasks[0].Done).False()
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"get with non-numeric id", http.MethodGet, "/api/risks/abc", "", http.StatusBadRequest},
		{"get with zero id", http.MethodGet, "/api/risks/0", "", http.StatusBadRequest},
		{"get missing risk", http.MethodGet, "/api/risks/999", "", http.StatusNotFound},
		{"delete with bad id", http.MethodDelete, "/api/risks/x", "", http.StatusBadRequest},
		{"delete missing risk", http.MethodDelete, "/api/risks/999", "", http.StatusOK},
		{"create with malformed JSON", http.MethodPost, "/api/risks", `{"risk_title":`, http.StatusBadRequest},
		{"create without title", http.MethodPost, "/api/risks", `{"review_date":"2025-01-01"}`, http.StatusBadRequest},
		{"create without review date", http.MethodPost, "/api/risks", `{"risk_title":"x"}`, http.StatusBadRequest},
		{"create with bad risk level", http.MethodPost, "/api/risks", `{"risk_title":"x","review_date":"2025-01-01","risk_level":"Huge"}`, http.StatusBadRequest},
		{"update with tasks object", http.MethodPut, "/api/risks/1/tasks", `{"tasks":{"id":1}}`, http.StatusBadRequest},
		{"update without tasks", http.MethodPut, "/api/risks/1/tasks", `{}`, http.StatusBadRequest},
		{"update with empty body", http.MethodPut, "/api/risks/1/tasks", "", http.StatusBadRequest},
		{"update unknown risk", http.MethodPut, "/api/risks/999/tasks", `{"tasks":[{"id":1,"done":true}]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := s.do(t, tt.method, tt.path, tt.body)
			gt.Value(t, code).Equal(tt.code)
			if tt.code >= http.StatusBadRequest {
				resp := decode[errorBody](t, body)
				gt.Bool(t, resp.Success).False()
				gt.String(t, resp.Error).NotEqual("")
			}
		})
	}
}

type failingRiskUseCase struct{}

var errStore = errors.New("connection reset")

func (failingRiskUseCase) ListRisks(ctx context.Context) ([]*model.RiskSummary, error) {
	return nil, errStore
}

func (failingRiskUseCase) GetRisk(ctx context.Context, id int64) (*model.RiskDetail, error) {
	return nil, errStore
}

func (failingRiskUseCase) CreateRisk(ctx context.Context, input usecase.CreateRiskInput) (int64, error) {
	return 0, errStore
}

func (failingRiskUseCase) UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error) {
	return nil, errStore
}

func (failingRiskUseCase) DeleteRisk(ctx context.Context, id int64) error {
	return errStore
}

func TestStoreErrorsReturn500(t *testing.T) {
	srv := httptest.NewServer(httpctrl.New(failingRiskUseCase{}))
	defer srv.Close()
	s := &testServer{srv: srv}

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/risks", ""},
		{http.MethodGet, "/api/risks/1", ""},
		{http.MethodPost, "/api/risks", `{"risk_title":"x","review_date":"2025-01-01"}`},
		{http.MethodPut, "/api/risks/1/tasks", `{"tasks":[]}`},
		{http.MethodDelete, "/api/risks/1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			code, body := s.do(t, tt.method, tt.path, tt.body)
			gt.Value(t, code).Equal(http.StatusInternalServerError)
			resp := decode[errorBody](t, body)
			gt.Bool(t, resp.Success).False()
			// internal details are not exposed
			gt.Value(t, resp.Error).Equal(http.StatusText(http.StatusInternalServerError))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, httpctrl.WithMetrics(m))

	code, _ := s.do(t, http.MethodGet, "/api/risks", "")
	gt.Value(t, code).Equal(http.StatusOK)

	code, body := s.do(t, http.MethodGet, "/metrics", "")
	gt.Value(t, code).Equal(http.StatusOK)
	gt.String(t, string(body)).Contains("complytrack_http_request_duration_seconds_count")
	gt.String(t, string(body)).Contains(`route="/api/risks`)
	gt.String(t, string(body)).Contains(`status="200"`)
}

func TestMetricsEndpointDisabled(t *testing.T) {
	s := newTestServer(t)
	code, _ := s.do(t, http.MethodGet, "/metrics", "")
	gt.Value(t, code).Equal(http.StatusNotFound)
}

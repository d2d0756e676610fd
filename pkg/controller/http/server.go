package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/usecase"
	"github.com/secmon-lab/complytrack/pkg/utils/metrics"
	"github.com/secmon-lab/complytrack/pkg/utils/safe"
)

// RiskUseCase is the subset of the risk use case served over HTTP
type RiskUseCase interface {
	ListRisks(ctx context.Context) ([]*model.RiskSummary, error)
	GetRisk(ctx context.Context, id int64) (*model.RiskDetail, error)
	CreateRisk(ctx context.Context, input usecase.CreateRiskInput) (int64, error)
	UpdateTasks(ctx context.Context, id int64, updates []model.TaskUpdate) (*model.TaskUpdateResult, error)
	DeleteRisk(ctx context.Context, id int64) error
}

var _ RiskUseCase = &usecase.RiskUseCase{}

type Server struct {
	router  *chi.Mux
	riskUC  RiskUseCase
	metrics *metrics.Metrics
}

type Options func(*Server)

// WithMetrics records request latency and serves the registry on /metrics
func WithMetrics(m *metrics.Metrics) Options {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(riskUC RiskUseCase, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		riskUC: riskUC,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	if s.metrics != nil {
		r.Use(requestMetrics(s.metrics))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api/risks", func(r chi.Router) {
		r.Get("/", listRisksHandler(s.riskUC))
		r.Post("/", createRiskHandler(s.riskUC))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", getRiskHandler(s.riskUC))
			r.Delete("/", deleteRiskHandler(s.riskUC))
			r.Put("/tasks", updateTasksHandler(s.riskUC))
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	safe.WriteJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

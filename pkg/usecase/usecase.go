package usecase

import (
	"context"

	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/utils/async"
	"github.com/secmon-lab/complytrack/pkg/utils/metrics"
)

type UseCases struct {
	repo       interfaces.Repository
	catalog    *model.Catalog
	notifier   interfaces.Notifier
	metrics    *metrics.Metrics
	dispatcher *async.Dispatcher
	Risk       *RiskUseCase
}

type Option func(*UseCases)

// WithCatalog replaces the built-in seed catalog
func WithCatalog(catalog *model.Catalog) Option {
	return func(uc *UseCases) {
		uc.catalog = catalog
	}
}

// WithNotifier enables status change notifications
func WithNotifier(notifier interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = notifier
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *UseCases) {
		uc.metrics = m
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:       repo,
		catalog:    model.DefaultCatalog(),
		dispatcher: async.NewDispatcher(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	uc.Risk = NewRiskUseCase(repo, uc.catalog,
		withNotifier(uc.notifier),
		withMetrics(uc.metrics),
		withDispatcher(uc.dispatcher),
	)

	return uc
}

// Wait blocks until pending background notifications finish or ctx is done
func (uc *UseCases) Wait(ctx context.Context) error {
	return uc.dispatcher.Wait(ctx)
}

package memory

import (
	"github.com/secmon-lab/complytrack/pkg/domain/interfaces"
)

// Memory is an in-process repository for development and tests
type Memory struct {
	risk *riskRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		risk: newRiskRepository(),
	}
}

func (m *Memory) Risk() interfaces.RiskRepository {
	return m.risk
}

func (m *Memory) Close() error {
	return nil
}

package model

import "github.com/secmon-lab/complytrack/pkg/domain/types"

// Progress holds the aggregated task weights of one risk. SQL backends fill it from
// SUM aggregates and the memory backend from ComputeProgress, so both share Percent.
type Progress struct {
	CompletedWeight int
	TotalWeight     int
}

// NewProgress builds a Progress from aggregated weights
func NewProgress(completedWeight, totalWeight int) Progress {
	return Progress{
		CompletedWeight: completedWeight,
		TotalWeight:     totalWeight,
	}
}

// ComputeProgress aggregates the weights of tasks
func ComputeProgress(tasks []*RiskTask) Progress {
	var p Progress
	for _, t := range tasks {
		if t == nil {
			continue
		}
		p.TotalWeight += t.Weight
		if t.Done {
			p.CompletedWeight += t.Weight
		}
	}
	return p
}

// Percent returns the completed share of the total weight as an integer in [0,100],
// rounded half up. A zero total weight yields 0.
func (p Progress) Percent() int {
	if p.TotalWeight <= 0 || p.CompletedWeight <= 0 {
		return 0
	}
	// round(c/t*100) == floor((200c + t) / 2t) for non-negative c and positive t
	percent := (200*p.CompletedWeight + p.TotalWeight) / (2 * p.TotalWeight)
	return min(percent, 100)
}

// Status derives the status label from Percent
func (p Progress) Status() types.RiskStatus {
	return types.StatusForProgress(p.Percent())
}

package types

// RiskStatus is the label derived from a risk's progress percentage
type RiskStatus string

const (
	RiskStatusAhead   RiskStatus = "Ahead"
	RiskStatusOnTrack RiskStatus = "on track"
	RiskStatusAtRisk  RiskStatus = "At risk"
)

const (
	// AheadThreshold is the lowest progress reported as ahead
	AheadThreshold = 80
	// AtRiskThreshold is the highest progress reported as at risk
	AtRiskThreshold = 30
)

// AllRiskStatuses returns all valid risk statuses
func AllRiskStatuses() []RiskStatus {
	return []RiskStatus{
		RiskStatusAhead,
		RiskStatusOnTrack,
		RiskStatusAtRisk,
	}
}

// StatusForProgress derives the status label from a progress percentage.
// Zero progress, including a risk without tasks, is at risk.
func StatusForProgress(progress int) RiskStatus {
	switch {
	case progress >= AheadThreshold:
		return RiskStatusAhead
	case progress <= AtRiskThreshold:
		return RiskStatusAtRisk
	default:
		return RiskStatusOnTrack
	}
}

// IsValid checks if the risk status is valid
func (s RiskStatus) IsValid() bool {
	switch s {
	case RiskStatusAhead,
		RiskStatusOnTrack,
		RiskStatusAtRisk:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk status
func (s RiskStatus) String() string {
	return string(s)
}

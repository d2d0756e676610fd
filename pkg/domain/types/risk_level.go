package types

import (
	"fmt"
	"strings"
)

// RiskLevel is the severity classification attached to a risk
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "Low"
	RiskLevelMedium   RiskLevel = "Medium"
	RiskLevelHigh     RiskLevel = "High"
	RiskLevelCritical RiskLevel = "Critical"
)

// AllRiskLevels returns all valid risk levels
func AllRiskLevels() []RiskLevel {
	return []RiskLevel{
		RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh,
		RiskLevelCritical,
	}
}

// IsValid checks if the risk level is valid
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLevelLow,
		RiskLevelMedium,
		RiskLevelHigh,
		RiskLevelCritical:
		return true
	default:
		return false
	}
}

// Normalize returns the level, treating empty as RiskLevelLow.
func (l RiskLevel) Normalize() RiskLevel {
	if l == "" {
		return RiskLevelLow
	}
	return l
}

// String returns the string representation of the risk level
func (l RiskLevel) String() string {
	return string(l)
}

// ParseRiskLevel parses a case-insensitive string into a RiskLevel. Empty input yields RiskLevelLow.
func ParseRiskLevel(s string) (RiskLevel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return RiskLevelLow, nil
	}
	for _, level := range AllRiskLevels() {
		if strings.EqualFold(string(level), s) {
			return level, nil
		}
	}
	return "", fmt.Errorf("invalid risk level: %s", s)
}

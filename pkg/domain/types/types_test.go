package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
)

func TestStatusForProgress(t *testing.T) {
	tests := []struct {
		progress int
		want     types.RiskStatus
	}{
		{progress: 0, want: types.RiskStatusAtRisk},
		{progress: 30, want: types.RiskStatusAtRisk},
		{progress: 31, want: types.RiskStatusOnTrack},
		{progress: 50, want: types.RiskStatusOnTrack},
		{progress: 79, want: types.RiskStatusOnTrack},
		{progress: 80, want: types.RiskStatusAhead},
		{progress: 100, want: types.RiskStatusAhead},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			gt.Value(t, types.StatusForProgress(tt.progress)).Equal(tt.want)
		})
	}
}

func TestRiskStatus_IsValid(t *testing.T) {
	for _, s := range types.AllRiskStatuses() {
		gt.B(t, s.IsValid()).True()
	}
	gt.B(t, types.RiskStatus("on-track").IsValid()).False()
	gt.B(t, types.RiskStatus("").IsValid()).False()
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.RiskLevel
		wantErr bool
	}{
		{name: "empty defaults to low", input: "", want: types.RiskLevelLow},
		{name: "exact", input: "High", want: types.RiskLevelHigh},
		{name: "case insensitive", input: "medium", want: types.RiskLevelMedium},
		{name: "surrounding spaces", input: "  critical ", want: types.RiskLevelCritical},
		{name: "unknown", input: "severe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.ParseRiskLevel(tt.input)
			if tt.wantErr {
				gt.Value(t, err).NotNil()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, got).Equal(tt.want)
		})
	}
}

func TestRiskLevel_Normalize(t *testing.T) {
	gt.Value(t, types.RiskLevel("").Normalize()).Equal(types.RiskLevelLow)
	gt.Value(t, types.RiskLevelHigh.Normalize()).Equal(types.RiskLevelHigh)
}

package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
)

func TestNewTaskTemplate(t *testing.T) {
	long := strings.Repeat("あ", 250)

	tests := []struct {
		name   string
		label  string
		weight int
		want   model.TaskTemplate
	}{
		{
			name:   "kept as is",
			label:  "Patch systems",
			weight: 40,
			want:   model.TaskTemplate{Label: "Patch systems", Weight: 40},
		},
		{
			name:   "empty label defaults",
			label:  "",
			weight: 10,
			want:   model.TaskTemplate{Label: "Task", Weight: 10},
		},
		{
			name:   "negative weight clamped",
			label:  "x",
			weight: -5,
			want:   model.TaskTemplate{Label: "x", Weight: 0},
		},
		{
			name:   "large weight clamped",
			label:  "x",
			weight: 250,
			want:   model.TaskTemplate{Label: "x", Weight: 100},
		},
		{
			name:   "long label truncated by characters",
			label:  long,
			weight: 1,
			want:   model.TaskTemplate{Label: strings.Repeat("あ", 200), Weight: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, model.NewTaskTemplate(tt.label, tt.weight, false)).Equal(tt.want)
		})
	}
}

func TestTaskWeightFromFloat(t *testing.T) {
	gt.Value(t, model.TaskWeightFromFloat(12.4)).Equal(12)
	gt.Value(t, model.TaskWeightFromFloat(12.5)).Equal(13)
	gt.Value(t, model.TaskWeightFromFloat(-1)).Equal(0)
	gt.Value(t, model.TaskWeightFromFloat(101)).Equal(100)
}

func TestRisk_Validate(t *testing.T) {
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	gt.NoError(t, (&model.Risk{Title: "Data Breach", ReviewDate: date}).Validate())
	gt.Value(t, (&model.Risk{Title: "  ", ReviewDate: date}).Validate()).NotNil()
	gt.Value(t, (&model.Risk{Title: "Data Breach"}).Validate()).NotNil()
	gt.Value(t, (&model.Risk{Title: "Data Breach", ReviewDate: date, Level: types.RiskLevel("huge")}).Validate()).NotNil()
}

func TestRisk_DisplayDept(t *testing.T) {
	gt.Value(t, (&model.Risk{}).DisplayDept()).Equal("Unassigned")
	gt.Value(t, (&model.Risk{Dept: "IT"}).DisplayDept()).Equal("IT")
}

func TestParseReviewDate(t *testing.T) {
	d, err := model.ParseReviewDate("2025-01-01")
	gt.NoError(t, err).Required()
	gt.Value(t, d).Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	d, err = model.ParseReviewDate("2025-03-04T15:00:00Z")
	gt.NoError(t, err).Required()
	gt.Value(t, d).Equal(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC))

	_, err = model.ParseReviewDate("")
	gt.Value(t, err).NotNil()

	_, err = model.ParseReviewDate("01/02/2025")
	gt.Value(t, err).NotNil()
}

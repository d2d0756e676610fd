package model

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/complytrack/pkg/domain/types"
)

const (
	// MaxTaskLabelLength is the maximum number of characters kept in a task label
	MaxTaskLabelLength = 200
	// DefaultTaskLabel is used when a task is created without a label
	DefaultTaskLabel = "Task"
	// MinTaskWeight and MaxTaskWeight bound a task weight
	MinTaskWeight = 0
	MaxTaskWeight = 100
	// UnassignedDept is displayed for a risk without an owning department
	UnassignedDept = "Unassigned"
	// DateLayout is the wire format of a review date
	DateLayout = "2006-01-02"
)

// ErrRiskNotFound is returned when a risk id does not exist in the store
var ErrRiskNotFound = goerr.New("risk not found")

// Risk is a tracked compliance or operational exposure
type Risk struct {
	ID         int64
	Title      string
	Dept       string
	ReviewDate time.Time
	Level      types.RiskLevel
	Owner      string
}

// DisplayDept returns the owning department, or "Unassigned" if none
func (r *Risk) DisplayDept() string {
	if strings.TrimSpace(r.Dept) == "" {
		return UnassignedDept
	}
	return r.Dept
}

// Validate checks the fields required to persist a risk
func (r *Risk) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return goerr.New("risk title is required")
	}
	if r.ReviewDate.IsZero() {
		return goerr.New("review date is required", goerr.V("title", r.Title))
	}
	if !r.Level.Normalize().IsValid() {
		return goerr.New("invalid risk level", goerr.V("level", r.Level))
	}
	return nil
}

// RiskTask is one weighted remediation step belonging to a risk
type RiskTask struct {
	ID     int64
	RiskID int64
	Label  string
	Weight int
	Done   bool
}

// TaskTemplate is a task before it is persisted and assigned an id
type TaskTemplate struct {
	Label  string `toml:"label"`
	Weight int    `toml:"weight"`
	Done   bool   `toml:"done"`
}

// NewTaskTemplate builds a normalized template: the label is truncated to
// MaxTaskLabelLength characters and defaults to "Task", the weight is clamped to [0,100].
func NewTaskTemplate(label string, weight int, done bool) TaskTemplate {
	return TaskTemplate{
		Label:  NormalizeTaskLabel(label),
		Weight: ClampTaskWeight(weight),
		Done:   done,
	}
}

// NormalizeTaskLabel applies the label default and length limit
func NormalizeTaskLabel(label string) string {
	if label == "" {
		return DefaultTaskLabel
	}
	if utf8.RuneCountInString(label) > MaxTaskLabelLength {
		runes := []rune(label)
		return string(runes[:MaxTaskLabelLength])
	}
	return label
}

// ClampTaskWeight bounds weight to [MinTaskWeight, MaxTaskWeight]
func ClampTaskWeight(weight int) int {
	return max(MinTaskWeight, min(MaxTaskWeight, weight))
}

// TaskWeightFromFloat converts a JSON number into a task weight. Non-finite values become 0.
func TaskWeightFromFloat(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	v = math.Max(MinTaskWeight, math.Min(MaxTaskWeight, v))
	return int(math.Round(v))
}

// NormalizeTaskTemplates returns normalized copies of tasks
func NormalizeTaskTemplates(tasks []TaskTemplate) []TaskTemplate {
	normalized := make([]TaskTemplate, len(tasks))
	for i, t := range tasks {
		normalized[i] = NewTaskTemplate(t.Label, t.Weight, t.Done)
	}
	return normalized
}

// TaskUpdate sets the completion flag of one task. A nil ID is skipped.
type TaskUpdate struct {
	ID   *int64
	Done bool
}

// TaskUpdateResult describes the effect of applying a batch of TaskUpdate
type TaskUpdateResult struct {
	Previous Progress
	Current  Progress
	Updated  int
}

// StatusChanged reports whether the batch moved the risk to another status
func (r *TaskUpdateResult) StatusChanged() bool {
	return r.Previous.Status() != r.Current.Status()
}

// RiskSummary is a risk together with its aggregated progress, as listed
type RiskSummary struct {
	Risk
	Progress Progress
}

// RiskDetail is a risk together with its full task list
type RiskDetail struct {
	Risk
	Tasks []*RiskTask
}

// Progress computes the aggregated progress of the detail's tasks
func (d *RiskDetail) Progress() Progress {
	return ComputeProgress(d.Tasks)
}

// ParseReviewDate parses a YYYY-MM-DD date. A full RFC3339 timestamp is accepted and truncated to its date.
func ParseReviewDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, goerr.New("review date is required")
	}
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid review date", goerr.V("review_date", s))
	}
	return DateOf(ts), nil
}

// DateOf truncates t to a calendar date at UTC midnight
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

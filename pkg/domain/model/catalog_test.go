package model_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/complytrack/pkg/domain/model"
)

func TestDefaultCatalog_Valid(t *testing.T) {
	gt.NoError(t, model.DefaultCatalog().Validate())
}

func TestDefaultCatalog_WeightsSumTo100(t *testing.T) {
	c := model.DefaultCatalog()
	sum := func(ts []model.TaskTemplate) int {
		total := 0
		for _, t := range ts {
			total += t.Weight
		}
		return total
	}

	for _, e := range c.Entries {
		gt.Value(t, sum(e.Tasks)).Equal(100)
	}
	gt.Value(t, sum(c.Default)).Equal(100)
}

func TestCatalog_Match(t *testing.T) {
	c := model.DefaultCatalog()

	tests := []struct {
		title     string
		wantEntry string
		wantFirst string
	}{
		{title: "GDPR Violation in HR", wantEntry: "gdpr-violation", wantFirst: "Assess data exposure"},
		{title: "Data Breach at Site A", wantEntry: "data-breach", wantFirst: "Isolate affected systems"},
		{title: "GDPR violation after data breach", wantEntry: "gdpr-violation", wantFirst: "Assess data exposure"},
		{title: "Product contamination - line 3", wantEntry: "product-contamination", wantFirst: "Quarantine affected products"},
		{title: "Mislabeling of allergens", wantEntry: "labeling-error", wantFirst: "Identify mislabeled products"},
		{title: "Labeling Error", wantEntry: "labeling-error", wantFirst: "Identify mislabeled products"},
		{title: "Safety Hazard - Workplace", wantEntry: "workplace-safety-hazard", wantFirst: "Isolate hazard area"},
		{title: "Workplace safety hazard in warehouse", wantEntry: "workplace-safety-hazard", wantFirst: "Isolate hazard area"},
		{title: "Adverse customer reaction", wantEntry: "adverse-customer-reaction", wantFirst: "Document incident"},
		{title: "Expense fraud", wantEntry: "fraud-misconduct", wantFirst: "Suspend involved parties"},
		{title: "Employee misconduct", wantEntry: "fraud-misconduct", wantFirst: "Suspend involved parties"},
		{title: "Policy violation", wantEntry: "policy-violation", wantFirst: "Document violation"},
		{title: "ERP downtime", wantEntry: "system-failure", wantFirst: "Notify IT support"},
		{title: "Inventory loss Q3", wantEntry: "inventory-loss", wantFirst: "Secure area"},
		{title: "Laptop theft", wantEntry: "inventory-loss", wantFirst: "Secure area"},
		{title: "Supplier non-compliance", wantEntry: "supplier-non-compliance", wantFirst: "Notify procurement"},
		{title: "Marketing budget overrun", wantEntry: "budget-overrun", wantFirst: "Baseline current spend"},
		{title: "Contract breach", wantEntry: "breach", wantFirst: "Enable MFA for all privileged accounts"},
		{title: "Something unusual", wantEntry: "default", wantFirst: "Define mitigation plan"},
		{title: "", wantEntry: "default", wantFirst: "Define mitigation plan"},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			gt.Value(t, c.EntryName(tt.title)).Equal(tt.wantEntry)
			got := c.Tasks(tt.title)
			gt.Array(t, got).Length(6).Required()
			gt.Value(t, got[0].Label).Equal(tt.wantFirst)
			for _, task := range got {
				gt.Bool(t, task.Done).False()
			}
		})
	}
}

func TestCatalog_DefaultTemplateWeights(t *testing.T) {
	got := model.DefaultCatalog().Tasks("unknown")
	weights := make([]int, len(got))
	for i, task := range got {
		weights[i] = task.Weight
	}
	gt.Value(t, weights).Equal([]int{20, 10, 15, 35, 10, 10})
}

func TestCatalog_TasksReturnsCopy(t *testing.T) {
	c := model.DefaultCatalog()
	first := c.Tasks("data breach")
	first[0].Label = "changed"
	first[0].Done = true

	second := c.Tasks("data breach")
	gt.Value(t, second[0].Label).Equal("Isolate affected systems")
	gt.Bool(t, second[0].Done).False()
}

func TestCatalog_Deterministic(t *testing.T) {
	c := model.DefaultCatalog()
	gt.Value(t, c.Tasks("System failure")).Equal(c.Tasks("SYSTEM FAILURE"))
}

func TestCatalog_Validate(t *testing.T) {
	valid := []model.TaskTemplate{{Label: "a", Weight: 60}, {Label: "b", Weight: 40}}

	tests := []struct {
		name    string
		catalog model.Catalog
		wantErr bool
	}{
		{
			name:    "valid",
			catalog: model.Catalog{Entries: []model.CatalogEntry{{Name: "x", Keywords: []string{"x"}, Tasks: valid}}, Default: valid},
		},
		{
			name:    "missing default",
			catalog: model.Catalog{},
			wantErr: true,
		},
		{
			name:    "weights do not sum to 100",
			catalog: model.Catalog{Default: []model.TaskTemplate{{Label: "a", Weight: 50}}},
			wantErr: true,
		},
		{
			name:    "empty label",
			catalog: model.Catalog{Default: []model.TaskTemplate{{Label: " ", Weight: 100}}},
			wantErr: true,
		},
		{
			name:    "weight out of range",
			catalog: model.Catalog{Default: []model.TaskTemplate{{Label: "a", Weight: 120}, {Label: "b", Weight: -20}}},
			wantErr: true,
		},
		{
			name:    "no keywords",
			catalog: model.Catalog{Entries: []model.CatalogEntry{{Name: "x", Keywords: []string{" "}, Tasks: valid}}, Default: valid},
			wantErr: true,
		},
		{
			name: "duplicate names",
			catalog: model.Catalog{Entries: []model.CatalogEntry{
				{Name: "x", Keywords: []string{"x"}, Tasks: valid},
				{Name: "x", Keywords: []string{"y"}, Tasks: valid},
			}, Default: valid},
			wantErr: true,
		},
		{
			name:    "missing name",
			catalog: model.Catalog{Entries: []model.CatalogEntry{{Keywords: []string{"x"}, Tasks: valid}}, Default: valid},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.catalog.Validate()
			if tt.wantErr {
				gt.Error(t, err).Is(model.ErrInvalidCatalog)
				return
			}
			gt.NoError(t, err)
		})
	}
}

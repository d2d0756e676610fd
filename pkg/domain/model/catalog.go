package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// CatalogTotalWeight is the weight every seeded task list sums to
const CatalogTotalWeight = 100

// Sentinel errors for catalog validation
var (
	ErrInvalidCatalog = goerr.New("invalid seed catalog")
)

// CatalogEntry maps a set of title keywords to a task checklist
type CatalogEntry struct {
	Name     string         `toml:"name"`
	Keywords []string       `toml:"keywords"`
	Tasks    []TaskTemplate `toml:"tasks"`
}

// Matches reports whether any keyword appears in the lowercased title
func (e *CatalogEntry) Matches(lowerTitle string) bool {
	for _, kw := range e.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(lowerTitle, kw) {
			return true
		}
	}
	return false
}

// Catalog is an ordered list of entries; the first match wins and Default applies otherwise.
type Catalog struct {
	Entries []CatalogEntry
	Default []TaskTemplate
}

// Tasks returns a fresh copy of the task templates seeded for a risk titled title
func (c *Catalog) Tasks(title string) []TaskTemplate {
	return cloneTemplates(c.Match(title))
}

// Match returns the task list selected for title without copying it
func (c *Catalog) Match(title string) []TaskTemplate {
	lower := strings.ToLower(title)
	for i := range c.Entries {
		if c.Entries[i].Matches(lower) {
			return c.Entries[i].Tasks
		}
	}
	return c.Default
}

// EntryName returns the name of the entry selected for title, or "default"
func (c *Catalog) EntryName(title string) string {
	lower := strings.ToLower(title)
	for i := range c.Entries {
		if c.Entries[i].Matches(lower) {
			return c.Entries[i].Name
		}
	}
	return "default"
}

// Validate checks that every entry is usable and its weights sum to 100
func (c *Catalog) Validate() error {
	names := make(map[string]bool, len(c.Entries))
	for i, e := range c.Entries {
		if e.Name == "" {
			return goerr.Wrap(ErrInvalidCatalog, "entry name is required", goerr.V("index", i))
		}
		if names[e.Name] {
			return goerr.Wrap(ErrInvalidCatalog, "duplicate entry name", goerr.V("name", e.Name))
		}
		names[e.Name] = true

		hasKeyword := false
		for _, kw := range e.Keywords {
			if strings.TrimSpace(kw) != "" {
				hasKeyword = true
				break
			}
		}
		if !hasKeyword {
			return goerr.Wrap(ErrInvalidCatalog, "entry requires at least one keyword", goerr.V("name", e.Name))
		}
		if err := validateTemplates(e.Tasks); err != nil {
			return goerr.Wrap(err, "invalid entry tasks", goerr.V("name", e.Name))
		}
	}

	if err := validateTemplates(c.Default); err != nil {
		return goerr.Wrap(err, "invalid default tasks")
	}
	return nil
}

func validateTemplates(tasks []TaskTemplate) error {
	if len(tasks) == 0 {
		return goerr.Wrap(ErrInvalidCatalog, "task list is empty")
	}

	total := 0
	for i, t := range tasks {
		if strings.TrimSpace(t.Label) == "" {
			return goerr.Wrap(ErrInvalidCatalog, "task label is required", goerr.V("index", i))
		}
		if len([]rune(t.Label)) > MaxTaskLabelLength {
			return goerr.Wrap(ErrInvalidCatalog, "task label too long", goerr.V("index", i), goerr.V("label", t.Label))
		}
		if t.Weight < MinTaskWeight || t.Weight > MaxTaskWeight {
			return goerr.Wrap(ErrInvalidCatalog, "task weight out of range", goerr.V("index", i), goerr.V("weight", t.Weight))
		}
		total += t.Weight
	}
	if total != CatalogTotalWeight {
		return goerr.Wrap(ErrInvalidCatalog, "task weights must sum to 100", goerr.V("total", total))
	}
	return nil
}

func cloneTemplates(tasks []TaskTemplate) []TaskTemplate {
	out := make([]TaskTemplate, len(tasks))
	for i, t := range tasks {
		out[i] = TaskTemplate{Label: t.Label, Weight: t.Weight}
	}
	return out
}

func task(label string, weight int) TaskTemplate {
	return TaskTemplate{Label: label, Weight: weight}
}

// DefaultCatalog returns the built-in seed catalog. Entries are evaluated in order, so more
// specific categories (e.g. "gdpr violation", "data breach") precede the generic "breach".
func DefaultCatalog() *Catalog {
	return &Catalog{
		Entries: []CatalogEntry{
			{
				Name:     "gdpr-violation",
				Keywords: []string{"gdpr violation"},
				Tasks: []TaskTemplate{
					task("Assess data exposure", 20),
					task("Notify DPO and legal", 15),
					task("Report to authorities", 15),
					task("Notify affected individuals", 15),
					task("Remediate breach", 20),
					task("Review policies & train staff", 15),
				},
			},
			{
				Name:     "data-breach",
				Keywords: []string{"data breach"},
				Tasks: []TaskTemplate{
					task("Isolate affected systems", 20),
					task("Investigate breach source", 20),
					task("Notify IT/security team", 15),
					task("Patch vulnerabilities", 15),
					task("Communicate with stakeholders", 15),
					task("Document and report", 15),
				},
			},
			{
				Name:     "product-contamination",
				Keywords: []string{"product contamination"},
				Tasks: []TaskTemplate{
					task("Quarantine affected products", 20),
					task("Notify quality assurance", 15),
					task("Conduct root cause analysis", 20),
					task("Recall products if needed", 20),
					task("Remediate contamination", 15),
					task("Review and update SOPs", 10),
				},
			},
			{
				Name:     "labeling-error",
				Keywords: []string{"labeling error", "mislabeling"},
				Tasks: []TaskTemplate{
					task("Identify mislabeled products", 20),
					task("Notify regulatory team", 15),
					task("Correct labeling", 20),
					task("Recall if distributed", 20),
					task("Communicate with customers", 15),
					task("Review labeling process", 10),
				},
			},
			{
				Name:     "workplace-safety-hazard",
				Keywords: []string{"safety hazard - workplace", "workplace safety hazard"},
				Tasks: []TaskTemplate{
					task("Isolate hazard area", 20),
					task("Notify safety officer", 15),
					task("Investigate root cause", 20),
					task("Remediate hazard", 20),
					task("Conduct safety training", 15),
					task("Update safety protocols", 10),
				},
			},
			{
				Name:     "adverse-customer-reaction",
				Keywords: []string{"adverse customer reaction"},
				Tasks: []TaskTemplate{
					task("Document incident", 20),
					task("Notify customer service", 15),
					task("Investigate cause", 20),
					task("Provide remedy to customer", 20),
					task("Review product/process", 15),
					task("Report to management", 10),
				},
			},
			{
				Name:     "fraud-misconduct",
				Keywords: []string{"fraud", "misconduct"},
				Tasks: []TaskTemplate{
					task("Suspend involved parties", 20),
					task("Notify compliance/legal", 15),
					task("Conduct investigation", 20),
					task("Document findings", 15),
					task("Implement corrective actions", 20),
					task("Review controls", 10),
				},
			},
			{
				Name:     "policy-violation",
				Keywords: []string{"policy violation"},
				Tasks: []TaskTemplate{
					task("Document violation", 20),
					task("Notify HR/compliance", 15),
					task("Investigate incident", 20),
					task("Counsel involved parties", 20),
					task("Implement corrective actions", 15),
					task("Review and update policy", 10),
				},
			},
			{
				Name:     "system-failure",
				Keywords: []string{"system failure", "downtime"},
				Tasks: []TaskTemplate{
					task("Notify IT support", 20),
					task("Diagnose failure", 20),
					task("Restore system", 20),
					task("Communicate outage", 15),
					task("Review incident", 15),
					task("Update recovery plan", 10),
				},
			},
			{
				Name:     "inventory-loss",
				Keywords: []string{"inventory loss", "theft"},
				Tasks: []TaskTemplate{
					task("Secure area", 20),
					task("Notify security", 15),
					task("Investigate loss", 20),
					task("Document incident", 15),
					task("Report to authorities", 20),
					task("Review inventory controls", 10),
				},
			},
			{
				Name:     "supplier-non-compliance",
				Keywords: []string{"supplier non-compliance"},
				Tasks: []TaskTemplate{
					task("Notify procurement", 20),
					task("Assess impact", 20),
					task("Engage supplier", 20),
					task("Document non-compliance", 15),
					task("Implement contingency", 15),
					task("Review supplier agreements", 10),
				},
			},
			{
				Name:     "budget-overrun",
				Keywords: []string{"budget", "overrun"},
				Tasks: []TaskTemplate{
					task("Baseline current spend", 15),
					task("Negotiate vendor discounts", 20),
					task("Freeze nonessential purchases", 15),
					task("Weekly cost variance review", 15),
					task("Automate spend alerts", 15),
					task("Reforecast budget with stakeholders", 20),
				},
			},
			{
				Name:     "breach",
				Keywords: []string{"breach"},
				Tasks: []TaskTemplate{
					task("Enable MFA for all privileged accounts", 20),
					task("Patch critical systems", 20),
					task("Encrypt sensitive data at rest", 15),
					task("Implement IDS/IPS monitoring", 15),
					task("Employee security awareness training", 10),
					task("Backup and disaster recovery test", 20),
				},
			},
		},
		Default: []TaskTemplate{
			task("Define mitigation plan", 20),
			task("Assign owner(s)", 10),
			task("Identify key milestones", 15),
			task("Execute main mitigation tasks", 35),
			task("Validate outcomes", 10),
			task("Close-out and document", 10),
		},
	}
}

// Package ruleset parses and serves the versioned monitoring ruleset that
// drives scheduling expansion. The ruleset is the polymorphism: category
// behavior is entirely data, not a type hierarchy (spec.md §9).
package ruleset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// Milestone is one scheduled point after start at which a set of tests
// becomes due.
type Milestone struct {
	Months     int                      `json:"months"`
	Tests      []string                 `json:"tests"`
	Exceptions map[string]DrugException `json:"exceptions,omitempty"`
}

// DrugException removes tests from a milestone for a specific drug name.
type DrugException struct {
	RemoveTests []string `json:"remove_tests"`
}

// WeeklyBlock expands to Count entries spaced IntervalWeeks apart.
type WeeklyBlock struct {
	Count         int      `json:"count"`
	IntervalWeeks int      `json:"interval_weeks"`
	Tests         []string `json:"tests"`
}

// RecurringBlock produces tests on a fixed monthly cadence.
type RecurringBlock struct {
	Tests []string `json:"tests"`
}

// CategoryRules is the full rule set for one drug category.
type CategoryRules struct {
	Baseline       []string         `json:"baseline"`
	Weekly         *WeeklyBlock     `json:"weekly,omitempty"`
	Milestones     []Milestone      `json:"milestones,omitempty"`
	Annual         *RecurringBlock  `json:"annual,omitempty"`
	Every3Months   *RecurringBlock  `json:"every_3_months,omitempty"`
	Every4To6Months *RecurringBlock `json:"every_4_6_months,omitempty"`
	Every6Months   *RecurringBlock  `json:"every_6_months,omitempty"`
}

// Document is the top-level JSON shape described in spec.md §4.1.
type Document struct {
	Categories map[string]CategoryRules `json:"categories"`
}

// Ruleset is the parsed, immutable configuration exposed to callers, plus
// its version metadata.
type Ruleset struct {
	Version       string
	EffectiveFrom time.Time
	CreatedAt     time.Time
	doc           Document
}

// Parse validates and wraps a JSON ruleset document.
func Parse(raw []byte, version string, effectiveFrom, createdAt time.Time) (*Ruleset, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, domain.Configuration("malformed ruleset document", err)
	}
	if len(doc.Categories) == 0 {
		return nil, domain.Configuration("ruleset document has no categories", nil)
	}
	for name, rules := range doc.Categories {
		if err := validateCategory(name, rules); err != nil {
			return nil, err
		}
	}
	return &Ruleset{Version: version, EffectiveFrom: effectiveFrom, CreatedAt: createdAt, doc: doc}, nil
}

func validateCategory(name string, rules CategoryRules) error {
	if rules.Weekly != nil {
		if rules.Weekly.Count < 0 || rules.Weekly.IntervalWeeks <= 0 {
			return domain.Configuration(fmt.Sprintf("category %s: invalid weekly block", name), nil)
		}
	}
	for _, m := range rules.Milestones {
		if m.Months < 0 {
			return domain.Configuration(fmt.Sprintf("category %s: milestone with negative months", name), nil)
		}
	}
	return nil
}

// CategoryFor looks up a category's rules, returning CONFIGURATION_ERROR
// when the category is unknown (spec.md §4.3 "Error conditions").
func (r *Ruleset) CategoryFor(category domain.DrugCategory) (CategoryRules, error) {
	rules, ok := r.doc.Categories[string(category)]
	if !ok {
		return CategoryRules{}, domain.Configuration(fmt.Sprintf("unknown ruleset category %q", category), nil)
	}
	return rules, nil
}

package domain

// ComparatorType selects which evaluation path a ReferenceThreshold uses.
type ComparatorType string

const (
	ComparatorNumeric ComparatorType = "NUMERIC"
	ComparatorCoded   ComparatorType = "CODED"
)

// ReferenceThreshold is an operator-configured classification rule.
type ReferenceThreshold struct {
	ID                 string
	MonitoringType     string
	Unit               string
	ComparatorType     ComparatorType
	Sex                string // scoping facet, empty means "any"
	AgeBand            string
	SourceSystemScope  string
	LowCritical        *float64
	LowWarning         *float64
	HighWarning        *float64
	HighCritical       *float64
	CodedAbnormalValues []string // case-insensitive, compared case-folded
	Enabled            bool
	Version            string
}

// SpecificityScore implements spec.md §4.5 step 5's tie-break: sex=+2,
// age_band=+1, source_system_scope=+2.
func (t ReferenceThreshold) SpecificityScore() int {
	score := 0
	if t.Sex != "" {
		score += 2
	}
	if t.AgeBand != "" {
		score += 1
	}
	if t.SourceSystemScope != "" {
		score += 2
	}
	return score
}

// HasAnyBound reports whether at least one numeric bound is present, the
// minimum for a NUMERIC threshold to be meaningful (spec.md §3 invariant).
func (t ReferenceThreshold) HasAnyBound() bool {
	return t.LowCritical != nil || t.LowWarning != nil || t.HighWarning != nil || t.HighCritical != nil
}

// BoundsOrdered checks low_critical ≤ low_warning ≤ high_warning ≤
// high_critical when each pair is present.
func (t ReferenceThreshold) BoundsOrdered() bool {
	vals := []*float64{t.LowCritical, t.LowWarning, t.HighWarning, t.HighCritical}
	var prev *float64
	for _, v := range vals {
		if v == nil {
			continue
		}
		if prev != nil && *prev > *v {
			return false
		}
		prev = v
	}
	return true
}

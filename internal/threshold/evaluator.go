// Package threshold implements classification of a MonitoringEvent value
// against operator-configured ReferenceThresholds (spec.md §4.5, C5).
package threshold

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

var numericValuePattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Result is the output of Evaluate: spec.md §4.5 "(flag, reason_code,
// threshold_id, numeric_value, unit)".
type Result struct {
	Flag          domain.AbnormalFlag
	ReasonCode    string
	ThresholdID   string
	NumericValue  *float64
	Unit          string
}

// Evaluate implements spec.md §4.5's full algorithm against the given
// enabled thresholds for event.TestType.
func Evaluate(event domain.MonitoringEvent, patient domain.Patient, thresholds []domain.ReferenceThreshold) Result {
	if len(thresholds) == 0 {
		return Result{Flag: domain.FlagUnknown, ReasonCode: "NO_THRESHOLDS"}
	}

	if event.Interpretation != "" {
		if res, ok := evaluateCoded(event, thresholds); ok {
			return res
		}
	}

	numeric, parsedUnit, ok := parseNumericValue(event.Value)
	if !ok {
		return Result{Flag: domain.FlagUnknown, ReasonCode: "NON_NUMERIC_VALUE"}
	}
	unit := event.Unit
	if unit == "" {
		unit = parsedUnit
	}

	candidates := selectNumericCandidates(thresholds, patient, event, unit)
	if len(candidates) == 0 {
		return Result{Flag: domain.FlagUnknown, ReasonCode: "UNIT_MISMATCH", NumericValue: &numeric, Unit: unit}
	}

	best := bestBySpecificity(candidates)
	flag, reason := compareBounds(numeric, best)
	return Result{Flag: flag, ReasonCode: reason, ThresholdID: best.ID, NumericValue: &numeric, Unit: unit}
}

// evaluateCoded implements spec.md §4.5 step 2: any CODED threshold whose
// coded_abnormal_values (case-folded) contains the interpretation
// (case-folded) is an unconditional CRITICAL hit. Preserved exactly as
// specified per the Open Question (c) decision in DESIGN.md.
func evaluateCoded(event domain.MonitoringEvent, thresholds []domain.ReferenceThreshold) (Result, bool) {
	interpretation := strings.ToLower(strings.TrimSpace(event.Interpretation))
	for _, t := range thresholds {
		if t.ComparatorType != domain.ComparatorCoded || !t.Enabled {
			continue
		}
		if !strings.EqualFold(t.MonitoringType, event.TestType) {
			continue
		}
		for _, coded := range t.CodedAbnormalValues {
			if strings.ToLower(strings.TrimSpace(coded)) == interpretation {
				return Result{Flag: domain.FlagOutsideCritical, ReasonCode: "CODED_ABNORMAL", ThresholdID: t.ID}, true
			}
		}
	}
	return Result{}, false
}

// parseNumericValue extracts the numeric value from a string like "7.5" or
// "7.5 mmol/L" using the regex `-?\d+(\.\d+)?` with an optional trailing
// unit token, per spec.md §4.5 step 3.
func parseNumericValue(value string) (numeric float64, unit string, ok bool) {
	match := numericValuePattern.FindStringIndex(value)
	if match == nil {
		return 0, "", false
	}
	parsed, err := strconv.ParseFloat(value[match[0]:match[1]], 64)
	if err != nil {
		return 0, "", false
	}
	trailing := strings.TrimSpace(value[match[1]:])
	return parsed, trailing, true
}

func normalizedUnit(u string) string {
	return strings.ReplaceAll(u, " ", "")
}

// selectNumericCandidates filters to enabled NUMERIC thresholds matching
// monitoring_type and unit, with scoping facets matching or null, per
// spec.md §4.5 step 4.
func selectNumericCandidates(thresholds []domain.ReferenceThreshold, patient domain.Patient, event domain.MonitoringEvent, unit string) []domain.ReferenceThreshold {
	var out []domain.ReferenceThreshold
	for _, t := range thresholds {
		if t.ComparatorType != domain.ComparatorNumeric || !t.Enabled {
			continue
		}
		if !strings.EqualFold(t.MonitoringType, event.TestType) {
			continue
		}
		if normalizedUnit(t.Unit) != normalizedUnit(unit) {
			continue
		}
		if t.Sex != "" && !strings.EqualFold(t.Sex, patient.Sex) {
			continue
		}
		if t.AgeBand != "" && !strings.EqualFold(t.AgeBand, patient.AgeBand) {
			continue
		}
		if t.SourceSystemScope != "" && !strings.EqualFold(t.SourceSystemScope, event.SourceSystem) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// bestBySpecificity implements spec.md §4.5 step 5's tie-break: highest
// specificity score wins, stable on ties (first candidate in input order).
func bestBySpecificity(candidates []domain.ReferenceThreshold) domain.ReferenceThreshold {
	best := candidates[0]
	bestScore := best.SpecificityScore()
	for _, c := range candidates[1:] {
		if score := c.SpecificityScore(); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

// compareBounds implements spec.md §4.5 step 6's strict 4-bound comparison
// order: low_critical, low_warning, high_critical, high_warning, else
// NORMAL; no bound defined at all → UNKNOWN/NO_LIMITS.
func compareBounds(value float64, t domain.ReferenceThreshold) (domain.AbnormalFlag, string) {
	if !t.HasAnyBound() {
		return domain.FlagUnknown, "NO_LIMITS"
	}
	if t.LowCritical != nil && value < *t.LowCritical {
		return domain.FlagOutsideCritical, "LOW_CRITICAL"
	}
	if t.LowWarning != nil && value < *t.LowWarning {
		return domain.FlagOutsideWarning, "LOW_WARNING"
	}
	if t.HighCritical != nil && value > *t.HighCritical {
		return domain.FlagOutsideCritical, "HIGH_CRITICAL"
	}
	if t.HighWarning != nil && value > *t.HighWarning {
		return domain.FlagOutsideWarning, "HIGH_WARNING"
	}
	return domain.FlagNormal, ""
}

// Apply writes an evaluation Result onto an event, per spec.md §4.5
// "Application": sets abnormal_flag/reason, fills unit when previously
// empty, and sets reviewed_status iff the flag is abnormal.
func Apply(event *domain.MonitoringEvent, result Result) {
	event.AbnormalFlag = result.Flag
	event.AbnormalReasonCode = result.ReasonCode
	if result.Unit != "" && event.Unit == "" {
		event.Unit = result.Unit
	}
	if result.Flag.IsAbnormal() {
		event.ReviewedStatus = domain.ReviewPending
	} else {
		event.ReviewedStatus = ""
	}
}

package domain

import "testing"

func TestMatchesTestType(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"FBC", "FBC", true},
		{"FBC", "fbc", true},
		{"Fasting Glucose", "glucose", true},
		{"HbA1c", "hba1c level", true},
		{"FBC", "Lipids", false},
		{"Glucose", "HbA1c", true},
	}
	for _, c := range cases {
		if got := MatchesTestType(c.a, c.b); got != c.want {
			t.Errorf("MatchesTestType(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	if !TaskDone.IsTerminal() {
		t.Error("DONE should be terminal")
	}
	if !TaskWaived.IsTerminal() {
		t.Error("WAIVED should be terminal")
	}
	if TaskOverdue.IsTerminal() {
		t.Error("OVERDUE should not be terminal")
	}
	if TaskOngoing.IsTerminal() {
		t.Error("ONGOING should not be terminal")
	}
}

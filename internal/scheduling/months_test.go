package scheduling

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonths_SimpleAdvance(t *testing.T) {
	got := AddMonths(date(2025, 1, 15), 3)
	want := date(2025, 4, 15)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAddMonths_YearRollover(t *testing.T) {
	got := AddMonths(date(2025, 11, 1), 3)
	want := date(2026, 2, 1)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAddMonths_EndOfMonthClamped(t *testing.T) {
	got := AddMonths(date(2025, 1, 31), 1)
	want := date(2025, 2, 28)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAddMonths_LeapYearFebruary(t *testing.T) {
	got := AddMonths(date(2024, 1, 31), 1)
	want := date(2024, 2, 29)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAddMonths_NegativeMonths(t *testing.T) {
	got := AddMonths(date(2025, 1, 1), -2)
	want := date(2024, 11, 1)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

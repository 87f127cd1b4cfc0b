package observability

import (
	"reflect"
	"testing"
)

func TestRedactValue_RedactsSensitiveFields(t *testing.T) {
	input := map[string]any{
		"drug_name":  "clozapine",
		"nhs_number": "943 476 5919",
		"nested": map[string]any{
			"password": "secret",
		},
	}

	expected := map[string]any{
		"drug_name":  "clozapine",
		"nhs_number": redactedValue,
		"nested": map[string]any{
			"password": redactedValue,
		},
	}

	got := RedactValue(input)
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %#v, got %#v", expected, got)
	}
}

func TestRedactValue_RedactsSliceValues(t *testing.T) {
	input := []any{
		map[string]any{"token": "secret"},
		map[string]any{"ok": true},
	}

	expected := []any{
		map[string]any{"token": redactedValue},
		map[string]any{"ok": true},
	}

	got := RedactValue(input)
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %#v, got %#v", expected, got)
	}
}

type samplePayload struct {
	MonitoringType string `json:"monitoring_type"`
	APIKey         string `json:"api_key"`
	DOB            string `json:"date_of_birth"`
}

func TestRedactValue_DecodesStructs(t *testing.T) {
	input := samplePayload{
		MonitoringType: "glucose",
		APIKey:         "secret",
		DOB:            "1990-01-01",
	}

	got := RedactValue(input)
	asMap, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map output, got %#v", got)
	}
	if asMap["api_key"] != redactedValue {
		t.Fatalf("expected api_key to be redacted")
	}
	if asMap["date_of_birth"] != redactedValue {
		t.Fatalf("expected date_of_birth to be redacted")
	}
}

package threshold

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

type fakeUpserter struct {
	mu    sync.Mutex
	count int
}

func (f *fakeUpserter) UpsertBatch(ctx context.Context, batch []domain.ReferenceThreshold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count += len(batch)
	return nil
}

const header = "monitoring_type,unit,comparator_type,sex,age_band,source_system_scope,low_critical,low_warning,high_warning,high_critical,coded_abnormal_values,enabled,version\n"

func TestImportCSV_ValidRows(t *testing.T) {
	csvData := header +
		"HbA1c,%,NUMERIC,,,,,6.0,7.0,,,true,v1\n" +
		"ECG,,CODED,,,,,,,,Prolonged QTc;Torsades,true,v1\n"

	store := &fakeUpserter{}
	result, err := ImportCSV(context.Background(), strings.NewReader(csvData), store)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("expected 2 rows imported, got %d (errors=%v)", result.Imported, result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no row errors, got %v", result.Errors)
	}
}

func TestImportCSV_BadRowDoesNotAbortBatch(t *testing.T) {
	csvData := header +
		"HbA1c,%,NUMERIC,,,,,6.0,7.0,,,true,v1\n" +
		"Glucose,mmol/L,NOT_A_TYPE,,,,,,,,,true,v1\n" +
		"Lipids,mmol/L,NUMERIC,,,,,,5.0,,,true,v1\n"

	store := &fakeUpserter{}
	result, err := ImportCSV(context.Background(), strings.NewReader(csvData), store)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("expected 2 good rows imported despite one bad row, got %d", result.Imported)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected exactly 1 row error, got %d", len(result.Errors))
	}
}

func TestImportCSV_RejectsWrongHeader(t *testing.T) {
	csvData := "wrong,header\nfoo,bar\n"
	store := &fakeUpserter{}
	if _, err := ImportCSV(context.Background(), strings.NewReader(csvData), store); err == nil {
		t.Fatal("expected a validation error for a malformed header")
	}
}

func TestParseCodedValues_JSONArray(t *testing.T) {
	got, err := parseCodedValues(`["A","B"]`)
	if err != nil {
		t.Fatalf("parseCodedValues: %v", err)
	}
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected parse: %v", got)
	}
}

func TestParseCodedValues_Semicolon(t *testing.T) {
	got, err := parseCodedValues("A; B ;C")
	if err != nil {
		t.Fatalf("parseCodedValues: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %v", got)
	}
}

package threshold

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/ayushbalaji-dotcom/clozapine-antipsychotic-monitor/internal/domain"
)

// csvHeader is the exact header spec.md §6 names for ReferenceThreshold
// bulk import.
var csvHeader = []string{
	"monitoring_type", "unit", "comparator_type", "sex", "age_band",
	"source_system_scope", "low_critical", "low_warning", "high_warning",
	"high_critical", "coded_abnormal_values", "enabled", "version",
}

// RowError is one per-row parse/validation failure accumulated during
// CSV import rather than aborting the whole batch (spec.md §7 propagation
// rule for batch ingest).
type RowError struct {
	Row   int
	Err   error
}

// maxRowErrors bounds the per-row error collector, per spec.md §7
// "reporting up to a bounded number".
const maxRowErrors = 100

// Upserter is the narrow persistence contract the CSV importer batches
// writes through.
type Upserter interface {
	UpsertBatch(ctx context.Context, batch []domain.ReferenceThreshold) error
}

// ImportResult summarizes one CSV import run.
type ImportResult struct {
	Imported int
	Errors   []RowError
}

const workerCount = 4
const batchSize = 50

// ImportCSV streams rows from r through a bounded channel into a small
// worker pool that batches upserts, the "coroutine-like control" pattern
// spec.md §9 calls for. A bad row never aborts the import; it is recorded
// and skipped.
func ImportCSV(ctx context.Context, r io.Reader, store Upserter) (ImportResult, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, domain.Validation("read CSV header", "", err)
	}
	if err := validateHeader(header); err != nil {
		return ImportResult{}, err
	}

	rows := make(chan rowWithIndex, workerCount*2)
	var wg sync.WaitGroup
	var mu sync.Mutex
	result := ImportResult{}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, store, rows, &mu, &result)
		}()
	}

	index := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			mu.Lock()
			appendRowError(&result, index, err)
			mu.Unlock()
			index++
			continue
		}
		rows <- rowWithIndex{index: index, record: record}
		index++
	}
	close(rows)
	wg.Wait()

	return result, nil
}

type rowWithIndex struct {
	index  int
	record []string
}

func worker(ctx context.Context, store Upserter, rows <-chan rowWithIndex, mu *sync.Mutex, result *ImportResult) {
	batch := make([]domain.ReferenceThreshold, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := store.UpsertBatch(ctx, batch); err != nil {
			mu.Lock()
			for range batch {
				appendRowError(result, -1, err)
			}
			mu.Unlock()
		} else {
			mu.Lock()
			result.Imported += len(batch)
			mu.Unlock()
		}
		batch = batch[:0]
	}

	for row := range rows {
		parsed, err := parseRow(row.record)
		if err != nil {
			mu.Lock()
			appendRowError(result, row.index, err)
			mu.Unlock()
			continue
		}
		batch = append(batch, parsed)
		if len(batch) >= batchSize {
			flush()
		}
	}
	flush()
}

func appendRowError(result *ImportResult, row int, err error) {
	if len(result.Errors) >= maxRowErrors {
		return
	}
	result.Errors = append(result.Errors, RowError{Row: row, Err: err})
}

func validateHeader(got []string) error {
	if len(got) != len(csvHeader) {
		return domain.Validation("unexpected CSV header column count", "header", nil)
	}
	for i, col := range csvHeader {
		if strings.TrimSpace(got[i]) != col {
			return domain.Validation(fmt.Sprintf("expected column %d to be %q, got %q", i, col, got[i]), "header", nil)
		}
	}
	return nil
}

func parseRow(record []string) (domain.ReferenceThreshold, error) {
	if len(record) != len(csvHeader) {
		return domain.ReferenceThreshold{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(record))
	}

	get := func(i int) string { return strings.TrimSpace(record[i]) }

	comparator := domain.ComparatorType(strings.ToUpper(get(2)))
	if comparator != domain.ComparatorNumeric && comparator != domain.ComparatorCoded {
		return domain.ReferenceThreshold{}, fmt.Errorf("invalid comparator_type %q", get(2))
	}

	enabled, err := parseBool(get(11))
	if err != nil {
		return domain.ReferenceThreshold{}, fmt.Errorf("invalid enabled value %q: %w", get(11), err)
	}

	threshold := domain.ReferenceThreshold{
		MonitoringType:    get(0),
		Unit:              get(1),
		ComparatorType:    comparator,
		Sex:               get(3),
		AgeBand:           get(4),
		SourceSystemScope: get(5),
		Enabled:           enabled,
		Version:           get(12),
	}

	for i, target := range []**float64{&threshold.LowCritical, &threshold.LowWarning, &threshold.HighWarning, &threshold.HighCritical} {
		raw := get(6 + i)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.ReferenceThreshold{}, fmt.Errorf("invalid numeric bound %q: %w", raw, err)
		}
		*target = &v
	}

	coded, err := parseCodedValues(get(10))
	if err != nil {
		return domain.ReferenceThreshold{}, err
	}
	threshold.CodedAbnormalValues = coded

	if comparator == domain.ComparatorNumeric && !threshold.HasAnyBound() {
		return domain.ReferenceThreshold{}, fmt.Errorf("NUMERIC threshold for %s must carry at least one bound", threshold.MonitoringType)
	}
	if !threshold.BoundsOrdered() {
		return domain.ReferenceThreshold{}, fmt.Errorf("bounds out of order for %s", threshold.MonitoringType)
	}

	return threshold, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean")
	}
}

// parseCodedValues accepts coded_abnormal_values as either a semicolon-
// separated list or a JSON array in a single cell, per spec.md §6.
func parseCodedValues(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var values []string
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("invalid coded_abnormal_values JSON array: %w", err)
		}
		return values, nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

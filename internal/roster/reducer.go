// Package roster reads the personnel export and projects it down to the
// configured column subset.
package roster

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// DateLayout is the calendar-date key used for dated artifacts and
// history rows.
const DateLayout = "2006-01-02"

// Reducer projects the personnel export to the configured columns and
// manages the dated reduced files in the output directory.
type Reducer struct {
	columns   []string
	outputDir string
	logger    *slog.Logger
}

func NewReducer(columns []string, outputDir string, logger *slog.Logger) (*Reducer, error) {
	if len(columns) == 0 {
		return nil, domain.ErrValidation("column list must not be empty")
	}
	return &Reducer{columns: columns, outputDir: outputDir, logger: logger}, nil
}

// Reduce reads the export at inputPath, projects it to the configured
// columns, writes the reduced CSV to a dated path in the output
// directory (overwriting within the same day), and returns the reduced
// roster with its raw-text form. Rows missing a configured column pass
// through with an empty value.
func (r *Reducer) Reduce(inputPath string, now time.Time) (*domain.ReducedRoster, string, error) {
	f, err := os.Open(inputPath) //nolint:gosec // path comes from configuration
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", &domain.InputNotFoundError{Path: inputPath}
		}
		return nil, "", fmt.Errorf("open roster: %w", err)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged exports are tolerated

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, "", fmt.Errorf("parse roster %s: %w", inputPath, err)
	}
	if len(rows) == 0 {
		return nil, "", domain.ErrValidation("roster %s has no header row", inputPath)
	}

	header := rows[0]
	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}

	reduced := &domain.ReducedRoster{Columns: r.columns}
	for _, row := range rows[1:] {
		rec := domain.RosterRecord{Values: make(map[string]string, len(r.columns))}
		for _, col := range r.columns {
			idx, ok := colIdx[col]
			if ok && idx < len(row) {
				rec.Values[col] = row[idx]
			} else {
				rec.Values[col] = ""
			}
		}
		reduced.Records = append(reduced.Records, rec)
	}
	reduced.RawCSV = Serialize(reduced)

	path, err := r.writeDated(reduced.RawCSV, now)
	if err != nil {
		return nil, "", err
	}
	r.logger.Info("roster reduced",
		"input", inputPath, "output", path, "entries", reduced.Len())

	return reduced, path, nil
}

// Parse rebuilds a reduced roster from archived raw CSV text, for
// rollback runs. The archived header defines the columns.
func Parse(rawCSV string) (*domain.ReducedRoster, error) {
	rows, err := csv.NewReader(strings.NewReader(rawCSV)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse archived roster: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrValidation("archived roster has no header row")
	}

	columns := rows[0]
	reduced := &domain.ReducedRoster{Columns: columns, RawCSV: rawCSV}
	for _, row := range rows[1:] {
		rec := domain.RosterRecord{Values: make(map[string]string, len(columns))}
		for i, col := range columns {
			if i < len(row) {
				rec.Values[col] = row[i]
			}
		}
		reduced.Records = append(reduced.Records, rec)
	}
	return reduced, nil
}

// Serialize renders the reduced roster back to raw CSV text.
func Serialize(r *domain.ReducedRoster) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(r.Columns)
	for _, rec := range r.Records {
		row := make([]string, len(r.Columns))
		for i, col := range r.Columns {
			row[i] = rec.Get(col)
		}
		_ = w.Write(row)
	}
	w.Flush()
	return b.String()
}

// DatedPath returns the reduced-roster path for the given day.
func (r *Reducer) DatedPath(now time.Time) string {
	return filepath.Join(r.outputDir, fmt.Sprintf("roster-%s.csv", now.Format(DateLayout)))
}

func (r *Reducer) writeDated(rawCSV string, now time.Time) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := r.DatedPath(now)
	if err := os.WriteFile(path, []byte(rawCSV), 0o640); err != nil {
		return "", fmt.Errorf("write reduced roster: %w", err)
	}
	return path, nil
}

// Prune deletes dated roster files older than the retention window.
// Best-effort: failures are logged and never fail the run. A window of
// zero disables pruning.
func (r *Reducer) Prune(retentionDays int, now time.Time) {
	if retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(r.outputDir)
	if err != nil {
		r.logger.Warn("retention scan failed", "dir", r.outputDir, "error", err)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "roster-") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(name, "roster-"), ".csv")
		fileDate, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			path := filepath.Join(r.outputDir, name)
			if err := os.Remove(path); err != nil {
				r.logger.Warn("retention delete failed", "path", path, "error", err)
				continue
			}
			r.logger.Info("pruned old roster", "path", path)
		}
	}
}

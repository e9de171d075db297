package repository

import (
	"context"
	"database/sql"

	"github.com/chrisskurda/csv-to-dg/internal/domain"
)

// dateLayout matches the calendar-date key used for run_date and
// change_date columns.
const dateLayout = "2006-01-02"

// HistoryRepo persists run and change records in SQLite. It implements
// domain.HistoryStore.
type HistoryRepo struct {
	db *sql.DB
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) AppendRun(ctx context.Context, rec *domain.RunRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, run_date, started_at, input_path, entry_count, status, log_excerpt, roster_csv)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunDate, rec.StartedAt, rec.InputPath, rec.EntryCount,
		rec.Status, rec.LogExcerpt, rec.RosterCSV,
	)
	return mapDBError(err)
}

func (r *HistoryRepo) FinalizeRun(ctx context.Context, rec *domain.RunRecord) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE runs SET entry_count = ?, status = ?, log_excerpt = ?, roster_csv = ?
		WHERE id = ?`,
		rec.EntryCount, rec.Status, rec.LogExcerpt, rec.RosterCSV, rec.ID,
	)
	if err != nil {
		return mapDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound("run %s not found", rec.ID)
	}
	return nil
}

func (r *HistoryRepo) AppendChange(ctx context.Context, rec *domain.ChangeRecord) error {
	// change_date is precomputed from the timestamp's own zone; SQLite's
	// date() would convert offset-bearing timestamps to UTC and shift
	// changes near midnight onto the wrong calendar date.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO changes (id, run_id, ts, change_date, op, target, before_value, after_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Timestamp, rec.Timestamp.Format(dateLayout),
		rec.Op, rec.Target, rec.Before, rec.After,
	)
	return mapDBError(err)
}

func (r *HistoryRepo) ListRunDates(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT run_date FROM runs ORDER BY run_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (r *HistoryRepo) ListChanges(ctx context.Context, date string) ([]domain.ChangeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, ts, op, target, before_value, after_value
		FROM changes
		WHERE change_date = ?
		ORDER BY ts ASC`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	changes := []domain.ChangeRecord{}
	for rows.Next() {
		var c domain.ChangeRecord
		if err := rows.Scan(&c.ID, &c.RunID, &c.Timestamp, &c.Op, &c.Target, &c.Before, &c.After); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func (r *HistoryRepo) GetChange(ctx context.Context, id string) (*domain.ChangeRecord, error) {
	var c domain.ChangeRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, ts, op, target, before_value, after_value
		FROM changes WHERE id = ?`, id).
		Scan(&c.ID, &c.RunID, &c.Timestamp, &c.Op, &c.Target, &c.Before, &c.After)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &c, nil
}

func (r *HistoryRepo) RosterSnapshot(ctx context.Context, date string) (string, error) {
	var csv string
	err := r.db.QueryRowContext(ctx, `
		SELECT roster_csv FROM runs
		WHERE run_date = ? AND status = ? AND roster_csv != ''
		ORDER BY started_at DESC
		LIMIT 1`, date, domain.RunStatusSuccess).
		Scan(&csv)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", &domain.RollbackTargetError{Date: date}
		}
		return "", err
	}
	return csv, nil
}

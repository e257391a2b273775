package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/davidschlachter/lychnos/internal/model"
)

const budgetColumns = `id, start, "end", reporting_interval`

func scanBudget(row scanner) (model.Budget, error) {
	var (
		b          model.Budget
		start, end string
	)
	if err := row.Scan(&b.ID, &start, &end, &b.ReportingInterval); err != nil {
		return b, err
	}
	var err error
	if b.Start, err = parseTime(start); err != nil {
		return b, err
	}
	if b.End, err = parseTime(end); err != nil {
		return b, err
	}
	return b, nil
}

// CreateBudget stores a new budget period. It fails with ErrInvalidPeriod if
// start is not before end or the period overlaps an existing budget.
func (s *Store) CreateBudget(ctx context.Context, start, end time.Time, interval model.ReportingInterval) (model.Budget, error) {
	if !start.Before(end) {
		return model.Budget{}, fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidPeriod, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Budget{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var overlapping int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM budgets WHERE start < ? AND "end" > ?`,
		formatTime(end), formatTime(start),
	).Scan(&overlapping)
	if err != nil {
		return model.Budget{}, fmt.Errorf("checking overlap: %w", err)
	}
	if overlapping > 0 {
		return model.Budget{}, fmt.Errorf("%w: overlaps %d existing budget(s)", ErrInvalidPeriod, overlapping)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO budgets (start, "end", reporting_interval) VALUES (?, ?, ?)`,
		formatTime(start), formatTime(end), int(interval),
	)
	if err != nil {
		return model.Budget{}, fmt.Errorf("inserting budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Budget{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Budget{}, err
	}

	return model.Budget{
		ID:                id,
		Start:             start.UTC(),
		End:               end.UTC(),
		ReportingInterval: interval,
	}, nil
}

// ListBudgets returns every budget, oldest first.
func (s *Store) ListBudgets(ctx context.Context) ([]model.Budget, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets ORDER BY start`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// GetBudget returns the budget with the given id.
func (s *Store) GetBudget(ctx context.Context, id int64) (model.Budget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	return b, err
}

// CurrentBudget returns the budget whose period contains now.
func (s *Store) CurrentBudget(ctx context.Context, now time.Time) (model.Budget, error) {
	ts := formatTime(now)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE start < ? AND "end" > ? ORDER BY start DESC LIMIT 1`,
		ts, ts,
	)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("budget covering %s: %w", now.Format(time.DateOnly), ErrNotFound)
	}
	return b, err
}

// DeleteBudget removes a budget and all of its category targets.
func (s *Store) DeleteBudget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting budget %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	return nil
}

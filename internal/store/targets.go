package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/davidschlachter/lychnos/internal/model"
)

const targetColumns = `id, budget, category, amount`

func scanTarget(row scanner) (model.CategoryTarget, error) {
	var (
		t      model.CategoryTarget
		amount string
	)
	if err := row.Scan(&t.ID, &t.BudgetID, &t.CategoryID, &amount); err != nil {
		return t, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return t, fmt.Errorf("parsing amount %q for target %d: %w", amount, t.ID, err)
	}
	t.Amount = d
	return t, nil
}

// UpsertTarget sets the target for a category within a budget, replacing any
// previous amount.
func (s *Store) UpsertTarget(ctx context.Context, budgetID int64, categoryID int, amount decimal.Decimal) (model.CategoryTarget, error) {
	if _, err := s.GetBudget(ctx, budgetID); err != nil {
		return model.CategoryTarget{}, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO category_budgets (budget, category, amount) VALUES (?, ?, ?)
		 ON CONFLICT (budget, category) DO UPDATE SET amount = excluded.amount
		 RETURNING `+targetColumns,
		budgetID, categoryID, amount.String(),
	)
	t, err := scanTarget(row)
	if err != nil {
		return t, fmt.Errorf("saving target for category %d: %w", categoryID, err)
	}
	return t, nil
}

// ListTargets returns the targets of a budget ordered by category.
func (s *Store) ListTargets(ctx context.Context, budgetID int64) ([]model.CategoryTarget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+targetColumns+` FROM category_budgets WHERE budget = ? ORDER BY category`,
		budgetID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var targets []model.CategoryTarget
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}

// GetTarget returns a single category target.
func (s *Store) GetTarget(ctx context.Context, id int64) (model.CategoryTarget, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM category_budgets WHERE id = ?`, id)
	t, err := scanTarget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return t, fmt.Errorf("target %d: %w", id, ErrNotFound)
	}
	return t, err
}

// DeleteTarget removes a single category target.
func (s *Store) DeleteTarget(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM category_budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting target %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("target %d: %w", id, ErrNotFound)
	}
	return nil
}

package pipeline

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/davidschlachter/lychnos/internal/model"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Categories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Category), args.Error(1)
}

func (m *mockSource) ListCategoryTotals(ctx context.Context, start, end time.Time) ([]model.CategoryTotal, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).([]model.CategoryTotal), args.Error(1)
}

func (m *mockSource) FetchCategoryTotal(ctx context.Context, categoryID int, start, end time.Time) (model.CategoryTotal, error) {
	args := m.Called(ctx, categoryID, start, end)
	return args.Get(0).(model.CategoryTotal), args.Error(1)
}

func (m *mockSource) BigPicture(ctx context.Context, now time.Time) (model.FinancialSnapshot, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(model.FinancialSnapshot), args.Error(1)
}

type mockBudgets struct {
	mock.Mock
}

func (m *mockBudgets) GetBudget(ctx context.Context, id int64) (model.Budget, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *mockBudgets) CurrentBudget(ctx context.Context, now time.Time) (model.Budget, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(model.Budget), args.Error(1)
}

func (m *mockBudgets) ListTargets(ctx context.Context, budgetID int64) ([]model.CategoryTarget, error) {
	args := m.Called(ctx, budgetID)
	return args.Get(0).([]model.CategoryTarget), args.Error(1)
}

func (m *mockBudgets) GetTarget(ctx context.Context, id int64) (model.CategoryTarget, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.CategoryTarget), args.Error(1)
}

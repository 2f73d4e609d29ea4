package service

import (
	"context"
	"testing"

	"rewire/internal/models"
	"rewire/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository mocks repository.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) AssignTasks(ctx context.Context, userID uint, tasks []models.Task) ([]models.UserTask, error) {
	args := m.Called(ctx, userID, tasks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserTask), args.Error(1)
}

func (m *MockTaskRepository) ListByUser(ctx context.Context, userID uint, filter repository.AssignmentFilter) ([]models.UserTask, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserTask), args.Error(1)
}

func (m *MockTaskRepository) GetAssignment(ctx context.Context, userID, taskID uint) (*models.UserTask, error) {
	args := m.Called(ctx, userID, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserTask), args.Error(1)
}

func (m *MockTaskRepository) SaveAssignment(ctx context.Context, assignment *models.UserTask) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockTaskRepository) Stats(ctx context.Context, userID uint) (*models.TaskStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TaskStats), args.Error(1)
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, CompletionRate(0, 0))
	assert.Equal(t, 0.0, CompletionRate(0, 5))
	assert.Equal(t, 100.0, CompletionRate(5, 5))
	assert.Equal(t, 50.0, CompletionRate(1, 2))
	// 1/3 -> 33.333... -> 33.33
	assert.Equal(t, 33.33, CompletionRate(1, 3))
	// 2/3 -> 66.666... -> 66.67
	assert.Equal(t, 66.67, CompletionRate(2, 3))
	// 1/7 -> 14.2857... -> 14.29
	assert.Equal(t, 14.29, CompletionRate(1, 7))
}

func TestStatsService_GetStats(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("Stats", mock.Anything, uint(1)).Return(&models.TaskStats{
		TotalTasks:     3,
		CompletedTasks: 2,
		DifficultyBreakdown: models.DifficultyBreakdown{
			Easy: 1,
			Hard: 1,
		},
		TotalMarks: 20,
	}, nil)

	svc := NewStatsService(repo)
	stats, err := svc.GetStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 2, stats.CompletedTasks)
	assert.Equal(t, 66.67, stats.CompletionRate)
	assert.Equal(t, 20, stats.TotalMarks)
	repo.AssertExpectations(t)
}

func TestStatsService_GetStats_Empty(t *testing.T) {
	repo := new(MockTaskRepository)
	repo.On("Stats", mock.Anything, uint(2)).Return(&models.TaskStats{}, nil)

	svc := NewStatsService(repo)
	stats, err := svc.GetStats(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, stats.CompletionRate)
}

package service

import (
	"context"
	"math"

	"rewire/internal/models"
	"rewire/internal/repository"
)

// StatsService computes aggregate task progress for a user. The same snapshot
// backs the stats endpoint and the realtime stats channel.
type StatsService struct {
	tasks repository.TaskRepository
}

// NewStatsService returns a new StatsService.
func NewStatsService(tasks repository.TaskRepository) *StatsService {
	return &StatsService{tasks: tasks}
}

// GetStats returns the user's progress snapshot. The completion rate is a
// percentage rounded to two decimals, zero when the user has no tasks.
func (s *StatsService) GetStats(ctx context.Context, userID uint) (*models.TaskStats, error) {
	stats, err := s.tasks.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.CompletionRate = CompletionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats, nil
}

// CompletionRate computes completed/total as a percentage with two-decimal
// rounding. A zero total yields zero rather than dividing by zero.
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	rate := float64(completed) / float64(total) * 100
	return math.Round(rate*100) / 100
}

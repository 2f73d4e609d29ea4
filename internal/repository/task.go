package repository

import (
	"context"
	"errors"

	"rewire/internal/models"
	"rewire/internal/observability"

	"gorm.io/gorm"
)

// TaskRepository defines persistence operations for tasks and assignments.
type TaskRepository interface {
	// AssignTasks inserts fresh task rows and an assignment per task for the
	// user, all in one transaction.
	AssignTasks(ctx context.Context, userID uint, tasks []models.Task) ([]models.UserTask, error)
	ListByUser(ctx context.Context, userID uint, filter AssignmentFilter) ([]models.UserTask, error)
	GetAssignment(ctx context.Context, userID, taskID uint) (*models.UserTask, error)
	SaveAssignment(ctx context.Context, assignment *models.UserTask) error
	Stats(ctx context.Context, userID uint) (*models.TaskStats, error)
}

// AssignmentFilter narrows assignment listings.
type AssignmentFilter struct {
	Completed  *bool
	Difficulty string
}

type taskRepository struct {
	db      *gorm.DB
	metrics *observability.DatabaseMetrics
}

// NewTaskRepository returns a new TaskRepository implementation.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{
		db:      db,
		metrics: observability.NewDatabaseMetrics(db),
	}
}

func (r *taskRepository) AssignTasks(ctx context.Context, userID uint, tasks []models.Task) ([]models.UserTask, error) {
	defer r.metrics.TrackQuery("assign", "user_tasks")()

	assignments := make([]models.UserTask, 0, len(tasks))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range tasks {
			if err := tx.Create(&tasks[i]).Error; err != nil {
				return err
			}
			assignment := models.UserTask{
				UserID: userID,
				TaskID: tasks[i].ID,
				Task:   tasks[i],
			}
			if err := tx.Create(&assignment).Error; err != nil {
				return err
			}
			assignments = append(assignments, assignment)
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return assignments, nil
}

func (r *taskRepository) ListByUser(ctx context.Context, userID uint, filter AssignmentFilter) ([]models.UserTask, error) {
	defer r.metrics.TrackQuery("list", "user_tasks")()

	query := r.db.WithContext(ctx).
		Preload("Task").
		Where("user_id = ?", userID)

	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}
	if filter.Difficulty != "" {
		query = query.Joins("JOIN tasks ON tasks.id = user_tasks.task_id").
			Where("tasks.difficulty = ?", filter.Difficulty)
	}

	var assignments []models.UserTask
	if err := query.Order("assigned_at DESC").Find(&assignments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return assignments, nil
}

func (r *taskRepository) GetAssignment(ctx context.Context, userID, taskID uint) (*models.UserTask, error) {
	var assignment models.UserTask
	err := r.db.WithContext(ctx).
		Preload("Task").
		Where("user_id = ? AND task_id = ?", userID, taskID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Task", taskID)
		}
		return nil, models.NewInternalError(err)
	}
	return &assignment, nil
}

func (r *taskRepository) SaveAssignment(ctx context.Context, assignment *models.UserTask) error {
	if err := r.db.WithContext(ctx).Save(assignment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *taskRepository) Stats(ctx context.Context, userID uint) (*models.TaskStats, error) {
	defer r.metrics.TrackQuery("stats", "user_tasks")()

	stats := &models.TaskStats{}
	db := r.db.WithContext(ctx)

	var total, completed int64
	if err := db.Model(&models.UserTask{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.UserTask{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completed).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	stats.TotalTasks = int(total)
	stats.CompletedTasks = int(completed)

	type difficultyCount struct {
		Difficulty string
		Count      int
	}
	var counts []difficultyCount
	err := db.Model(&models.UserTask{}).
		Select("tasks.difficulty AS difficulty, COUNT(*) AS count").
		Joins("JOIN tasks ON tasks.id = user_tasks.task_id").
		Where("user_tasks.user_id = ? AND user_tasks.completed = ?", userID, true).
		Group("tasks.difficulty").
		Scan(&counts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, c := range counts {
		switch c.Difficulty {
		case models.DifficultyEasy:
			stats.DifficultyBreakdown.Easy = c.Count
		case models.DifficultyMedium:
			stats.DifficultyBreakdown.Medium = c.Count
		case models.DifficultyHard:
			stats.DifficultyBreakdown.Hard = c.Count
		}
	}

	var totalMarks *int
	err = db.Model(&models.UserTask{}).
		Select("SUM(marks_earned)").
		Where("user_id = ? AND completed = ?", userID, true).
		Scan(&totalMarks).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if totalMarks != nil {
		stats.TotalMarks = *totalMarks
	}

	return stats, nil
}

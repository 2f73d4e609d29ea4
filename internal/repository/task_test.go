package repository

import (
	"context"
	"testing"
	"time"

	"rewire/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedUserWithTasks(t *testing.T, db *gorm.DB) (uint, []models.UserTask) {
	t.Helper()
	ctx := context.Background()

	users := NewUserRepository(db)
	user := newUser("ada", "ada@example.com")
	require.NoError(t, users.Create(ctx, user))

	tasks := NewTaskRepository(db)
	assignments, err := tasks.AssignTasks(ctx, user.ID, []models.Task{
		{Title: "Journal", Description: "Write it down", Difficulty: models.DifficultyEasy, Marks: models.MarksEasy},
		{Title: "Exercise", Description: "30 minutes", Difficulty: models.DifficultyMedium, Marks: models.MarksMedium},
		{Title: "Hard talk", Description: "Have the conversation", Difficulty: models.DifficultyHard, Marks: models.MarksHard},
	})
	require.NoError(t, err)
	require.Len(t, assignments, 3)
	return user.ID, assignments
}

func TestTaskRepository_AssignTasksCreatesFreshRows(t *testing.T) {
	db := setupTestDB(t)
	userID, assignments := seedUserWithTasks(t, db)

	for _, a := range assignments {
		assert.Equal(t, userID, a.UserID)
		assert.NotZero(t, a.TaskID)
		assert.False(t, a.Completed)
		assert.Zero(t, a.MarksEarned)
	}

	// A second run inserts new task rows rather than reusing the catalog.
	tasks := NewTaskRepository(db)
	more, err := tasks.AssignTasks(context.Background(), userID, []models.Task{
		{Title: "Journal", Description: "Write it down", Difficulty: models.DifficultyEasy, Marks: models.MarksEasy},
	})
	require.NoError(t, err)

	var taskCount int64
	require.NoError(t, db.Model(&models.Task{}).Count(&taskCount).Error)
	assert.EqualValues(t, 4, taskCount)
	assert.NotEqual(t, assignments[0].TaskID, more[0].TaskID)
}

func TestTaskRepository_ListByUser_Filters(t *testing.T) {
	db := setupTestDB(t)
	userID, assignments := seedUserWithTasks(t, db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	// Complete the easy task.
	a := assignments[0]
	now := time.Now().UTC()
	a.Completed = true
	a.CompletedAt = &now
	a.MarksEarned = a.Task.Marks
	require.NoError(t, tasks.SaveAssignment(ctx, &a))

	all, err := tasks.ListByUser(ctx, userID, AssignmentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	completed := true
	done, err := tasks.ListByUser(ctx, userID, AssignmentFilter{Completed: &completed})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.TaskID, done[0].TaskID)

	hard, err := tasks.ListByUser(ctx, userID, AssignmentFilter{Difficulty: models.DifficultyHard})
	require.NoError(t, err)
	require.Len(t, hard, 1)
	assert.Equal(t, models.DifficultyHard, hard[0].Task.Difficulty)

	// Foreign user sees nothing.
	none, err := tasks.ListByUser(ctx, userID+1, AssignmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTaskRepository_GetAssignment_ScopedToUser(t *testing.T) {
	db := setupTestDB(t)
	userID, assignments := seedUserWithTasks(t, db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	got, err := tasks.GetAssignment(ctx, userID, assignments[0].TaskID)
	require.NoError(t, err)
	assert.Equal(t, assignments[0].ID, got.ID)
	assert.Equal(t, "Journal", got.Task.Title)

	// Another user cannot see this assignment.
	_, err = tasks.GetAssignment(ctx, userID+1, assignments[0].TaskID)
	require.Error(t, err)
	appErr, ok := err.(*models.AppError)
	require.True(t, ok)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestTaskRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	userID, assignments := seedUserWithTasks(t, db)
	tasks := NewTaskRepository(db)
	ctx := context.Background()

	// Complete easy and hard tasks.
	now := time.Now().UTC()
	for _, idx := range []int{0, 2} {
		a := assignments[idx]
		a.Completed = true
		a.CompletedAt = &now
		a.MarksEarned = a.Task.Marks
		require.NoError(t, tasks.SaveAssignment(ctx, &a))
	}

	stats, err := tasks.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 2, stats.CompletedTasks)
	assert.Equal(t, 1, stats.DifficultyBreakdown.Easy)
	assert.Equal(t, 0, stats.DifficultyBreakdown.Medium)
	assert.Equal(t, 1, stats.DifficultyBreakdown.Hard)
	assert.Equal(t, models.MarksEasy+models.MarksHard, stats.TotalMarks)
}

func TestTaskRepository_Stats_EmptyUser(t *testing.T) {
	db := setupTestDB(t)
	tasks := NewTaskRepository(db)

	stats, err := tasks.Stats(context.Background(), 12345)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalTasks)
	assert.Zero(t, stats.CompletedTasks)
	assert.Zero(t, stats.TotalMarks)
}

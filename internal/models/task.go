package models

import "time"

// Task difficulty levels and their fixed mark values.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	MarksEasy   = 5
	MarksMedium = 10
	MarksHard   = 15
)

// MarksForDifficulty returns the fixed mark value for a difficulty level.
func MarksForDifficulty(difficulty string) int {
	switch difficulty {
	case DifficultyEasy:
		return MarksEasy
	case DifficultyHard:
		return MarksHard
	default:
		return MarksMedium
	}
}

// ValidDifficulty reports whether d is one of the accepted difficulty levels.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Task is a recovery task descriptor. Rows are immutable once created; every
// generation run inserts fresh rows rather than reusing the catalog.
type Task struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Difficulty  string    `gorm:"not null" json:"difficulty"`
	Marks       int       `gorm:"not null" json:"marks"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserTask is a task assignment for one user. Completion is one-way; a rating
// can only be recorded after completion.
type UserTask struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;uniqueIndex:idx_user_task" json:"user_id"`
	TaskID       uint       `gorm:"not null;uniqueIndex:idx_user_task" json:"task_id"`
	Task         Task       `gorm:"foreignKey:TaskID" json:"task"`
	AssignedAt   time.Time  `gorm:"autoCreateTime" json:"assigned_at"`
	Completed    bool       `gorm:"default:false" json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	UserRating   *int       `json:"user_rating,omitempty"`
	UserFeedback string     `json:"user_feedback,omitempty"`
	MarksEarned  int        `gorm:"default:0" json:"marks_earned"`
}

// TaskStats is the aggregate progress snapshot for one user. It is shared by
// the stats endpoint and the realtime stats channel.
type TaskStats struct {
	TotalTasks          int                 `json:"total_tasks"`
	CompletedTasks      int                 `json:"completed_tasks"`
	CompletionRate      float64             `json:"completion_rate"`
	DifficultyBreakdown DifficultyBreakdown `json:"difficulty_breakdown"`
	TotalMarks          int                 `json:"total_marks"`
}

// DifficultyBreakdown counts completed tasks per difficulty level.
type DifficultyBreakdown struct {
	Easy   int `json:"easy"`
	Medium int `json:"medium"`
	Hard   int `json:"hard"`
}

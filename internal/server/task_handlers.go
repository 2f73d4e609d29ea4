package server

import (
	"fmt"
	"strconv"
	"time"

	"rewire/internal/cache"
	"rewire/internal/models"
	"rewire/internal/observability"
	"rewire/internal/repository"
	"rewire/internal/service"

	"github.com/gofiber/fiber/v2"
)

// defaultGeneratedTasks is the batch size when the client does not ask for
// one. Larger requests are honored on the model path; the fallback list holds
// nine entries and serves at most that many.
const defaultGeneratedTasks = 9

// statsCacheTTL bounds how stale a cached stats snapshot may get. Completions
// invalidate the key, so the TTL only covers writes from other instances.
const statsCacheTTL = 30 * time.Second

func statsCacheKey(userID uint) string {
	return fmt.Sprintf("stats:user:%d", userID)
}

// GetRecommendations handles GET /api/tasks/recommendations
// @Summary Generate personalized tasks
// @Description Generate and assign a fresh batch of recovery tasks from the user's profile
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param count query int false "Number of tasks to generate (default 9; the fallback list serves at most 9)"
// @Success 200 {object} object{tasks=[]models.UserTask,source=string,count=int}
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /tasks/recommendations [get]
func (s *Server) GetRecommendations(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	count := defaultGeneratedTasks
	if raw := c.Query("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Count must be a positive number"))
		}
		count = parsed
	}

	profile, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if profile == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundMessageError(profileNotFoundMessage))
	}

	// The model_generation flag ships enabled; turning it off (or ramping it)
	// forces the built-in list without touching the completion API.
	var result service.GenerationResult
	if s.flags.EnabledOrDefault("model_generation", userID, true) {
		result = s.taskGen.Generate(c.UserContext(), profile, count)
	} else {
		result = service.GenerationResult{
			Tasks:  service.FallbackTasks(count),
			Source: service.SourceFallback,
		}
	}

	assignments, err := s.taskRepo.AssignTasks(c.Context(), userID, result.Tasks)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"tasks":  assignments,
		"source": result.Source,
		"count":  len(assignments),
	})
}

// ListTasks handles GET /api/tasks/list
// @Summary List assigned tasks
// @Description List the user's task assignments, optionally filtered
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param completed query bool false "Filter by completion state"
// @Param difficulty query string false "Filter by difficulty (easy, medium, hard)"
// @Success 200 {object} object{tasks=[]models.UserTask,count=int}
// @Failure 400 {object} object{error=string}
// @Router /tasks/list [get]
func (s *Server) ListTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	filter := repository.AssignmentFilter{}
	if raw := c.Query("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Completed must be true or false"))
		}
		filter.Completed = &completed
	}
	if difficulty := c.Query("difficulty"); difficulty != "" {
		if !models.ValidDifficulty(difficulty) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Difficulty must be one of: easy, medium, hard"))
		}
		filter.Difficulty = difficulty
	}

	assignments, err := s.taskRepo.ListByUser(c.Context(), userID, filter)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"tasks": assignments,
		"count": len(assignments),
	})
}

// GetTask handles GET /api/tasks/:id
// @Summary Get one assigned task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} models.UserTask
// @Failure 404 {object} object{error=string}
// @Router /tasks/{id} [get]
func (s *Server) GetTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	taskID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	assignment, err := s.taskRepo.GetAssignment(c.Context(), userID, taskID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(assignment)
}

// CompleteTask handles POST /api/tasks/:id/complete
// @Summary Complete a task
// @Description Mark an assigned task complete and credit its marks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} object{message=string,marks_earned=int,total_marks=int}
// @Failure 404 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /tasks/{id}/complete [post]
func (s *Server) CompleteTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	taskID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	assignment, err := s.taskRepo.GetAssignment(c.Context(), userID, taskID)
	if err != nil {
		return respondError(c, err)
	}

	if assignment.Completed {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Task already completed"))
	}

	now := nowUTC()
	assignment.Completed = true
	assignment.CompletedAt = &now
	assignment.MarksEarned = assignment.Task.Marks

	if err := s.taskRepo.SaveAssignment(c.Context(), assignment); err != nil {
		return respondError(c, err)
	}

	observability.TasksCompleted.WithLabelValues(assignment.Task.Difficulty).Inc()

	_ = cache.Invalidate(c.Context(), s.redis, statsCacheKey(userID))

	stats, err := s.statsService.GetStats(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	s.publishUserEvent(c.UserContext(), userID, EventTaskUpdate, fiber.Map{
		"task_id":      taskID,
		"completed":    true,
		"marks_earned": assignment.MarksEarned,
		"stats":        stats,
	})

	return c.JSON(fiber.Map{
		"message":      "Task completed successfully",
		"marks_earned": assignment.MarksEarned,
		"total_marks":  stats.TotalMarks,
	})
}

// RateTask handles POST /api/tasks/:id/rate
// @Summary Rate a completed task
// @Description Record a 1-5 rating and optional feedback on a completed task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body object{rating=int,feedback=string} true "Rating data"
// @Success 200 {object} models.UserTask
// @Failure 400 {object} object{error=string}
// @Failure 404 {object} object{error=string}
// @Router /tasks/{id}/rate [post]
func (s *Server) RateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	taskID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Rating   *int   `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Rating == nil || *req.Rating < 1 || *req.Rating > 5 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Rating must be between 1 and 5"))
	}

	assignment, err := s.taskRepo.GetAssignment(c.Context(), userID, taskID)
	if err != nil {
		return respondError(c, err)
	}

	if !assignment.Completed {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Cannot rate an incomplete task"))
	}

	assignment.UserRating = req.Rating
	assignment.UserFeedback = req.Feedback

	if err := s.taskRepo.SaveAssignment(c.Context(), assignment); err != nil {
		return respondError(c, err)
	}

	return c.JSON(assignment)
}

// GetTaskStats handles GET /api/tasks/stats
// @Summary Get task statistics
// @Description Aggregate progress: totals, completion rate, per-difficulty counts, marks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.TaskStats
// @Router /tasks/stats [get]
func (s *Server) GetTaskStats(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var stats models.TaskStats
	err := cache.CacheAside(c.Context(), s.redis, statsCacheKey(userID), &stats, statsCacheTTL, func() error {
		computed, statsErr := s.statsService.GetStats(c.Context(), userID)
		if statsErr != nil {
			return statsErr
		}
		stats = *computed
		return nil
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(stats)
}

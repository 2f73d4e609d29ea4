package server

import (
	"fmt"

	"rewire/internal/models"

	"github.com/gofiber/fiber/v2"
)

// profileNotFoundMessage is returned whenever an endpoint requires a profile
// that the user has not created yet.
const profileNotFoundMessage = "Addiction profile not found. Please create one first."

// UpsertProfile handles POST /api/profile
// @Summary Create or replace addiction profile
// @Description Each user has one profile; posting again overwrites it
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{addiction_type=string,severity=string,triggers=string,recovery_goals=string} true "Profile data"
// @Success 201 {object} models.AddictionProfile
// @Failure 400 {object} object{error=string}
// @Router /profile [post]
func (s *Server) UpsertProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		AddictionType string `json:"addiction_type"`
		Severity      string `json:"severity"`
		Triggers      string `json:"triggers"`
		RecoveryGoals string `json:"recovery_goals"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if req.AddictionType == "" || req.Severity == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Addiction type and severity are required"))
	}
	if !models.ValidSeverity(req.Severity) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf(
				"Severity must be one of: %s, %s, %s",
				models.SeverityMild, models.SeverityModerate, models.SeveritySevere)))
	}

	profile := &models.AddictionProfile{
		UserID:        userID,
		AddictionType: req.AddictionType,
		Severity:      req.Severity,
		Triggers:      req.Triggers,
		RecoveryGoals: req.RecoveryGoals,
	}

	if err := s.profileRepo.Upsert(c.Context(), profile); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}

	// Re-read so the response carries the row's real ID and timestamps after
	// an overwrite.
	saved, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if saved == nil {
		saved = profile
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

// GetProfile handles GET /api/profile
// @Summary Get addiction profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AddictionProfile
// @Failure 404 {object} object{error=string}
// @Router /profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	profile, err := s.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	if profile == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundMessageError(profileNotFoundMessage))
	}

	return c.JSON(profile)
}

package repository

import (
	"context"
	"errors"

	"rewire/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository defines persistence operations for addiction profiles.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.AddictionProfile) error
	GetByUserID(ctx context.Context, userID uint) (*models.AddictionProfile, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Upsert writes the profile in a single atomic statement. Concurrent writes
// for the same user cannot produce duplicate rows; the last write wins.
func (r *profileRepository) Upsert(ctx context.Context, profile *models.AddictionProfile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"addiction_type", "severity", "triggers", "recovery_goals", "updated_at",
		}),
	}).Create(profile).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByUserID returns (nil, nil) when the user has no profile yet.
func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.AddictionProfile, error) {
	var profile models.AddictionProfile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

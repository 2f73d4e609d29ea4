package models

import "time"

// Severity levels accepted for an addiction profile.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// ValidSeverity reports whether s is one of the accepted severity levels.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// AddictionProfile describes a user's recovery context. Each user has at most
// one profile; writing again replaces the existing row.
type AddictionProfile struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	AddictionType string    `gorm:"not null" json:"addiction_type"`
	Severity      string    `gorm:"not null" json:"severity"`
	Triggers      string    `json:"triggers"`
	RecoveryGoals string    `json:"recovery_goals"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

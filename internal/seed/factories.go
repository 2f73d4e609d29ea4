// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"rewire/internal/models"
	"rewire/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var addictionTypes = []string{
	"nicotine", "alcohol", "gambling", "social media", "gaming", "shopping",
}

var severities = []string{
	models.SeverityMild, models.SeverityModerate, models.SeveritySevere,
}

var triggerPool = []string{
	"stress at work", "social gatherings", "boredom in the evening",
	"arguments at home", "payday", "late-night scrolling", "weekend downtime",
	"seeing old friends", "commuting",
}

var goalPool = []string{
	"stay clean for 90 days", "rebuild trust with family", "save money for a trip",
	"sleep before midnight", "replace the habit with exercise", "finish a course",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db  *gorm.DB
	rng *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:  db,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser persists a demo user. Every seeded user shares the password
// "password123" so seeded accounts are usable from the frontend.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	first := gofakeit.FirstName()
	last := gofakeit.LastName()
	user := &models.User{
		FirstName: first,
		LastName:  last,
		Username: strings.ToLower(fmt.Sprintf("%s_%s%d",
			first, last, f.rng.Intn(10000))),
		Email:    gofakeit.Email(),
		Password: string(hashed),
	}
	for _, o := range overrides {
		o(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateProfile persists an addiction profile for the user with plausible
// triggers and goals.
func (f *Factory) CreateProfile(user *models.User, overrides ...func(*models.AddictionProfile)) (*models.AddictionProfile, error) {
	profile := &models.AddictionProfile{
		UserID:        user.ID,
		AddictionType: addictionTypes[f.rng.Intn(len(addictionTypes))],
		Severity:      severities[f.rng.Intn(len(severities))],
		Triggers:      strings.Join(f.pick(triggerPool, 2+f.rng.Intn(2)), ", "),
		RecoveryGoals: strings.Join(f.pick(goalPool, 1+f.rng.Intn(2)), ", "),
	}
	for _, o := range overrides {
		o(profile)
	}

	if err := f.db.Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

// AssignTasks seeds count task assignments for the user from the built-in
// task list, marking roughly half of them complete with ratings.
func (f *Factory) AssignTasks(user *models.User, count int) ([]models.UserTask, error) {
	tasks := service.FallbackTasks(count)
	assignments := make([]models.UserTask, 0, len(tasks))

	for i := range tasks {
		if err := f.db.Create(&tasks[i]).Error; err != nil {
			return nil, err
		}
		assignment := models.UserTask{
			UserID: user.ID,
			TaskID: tasks[i].ID,
		}
		if f.rng.Intn(2) == 0 {
			completedAt := time.Now().Add(-time.Duration(f.rng.Intn(72)) * time.Hour)
			rating := 3 + f.rng.Intn(3)
			assignment.Completed = true
			assignment.CompletedAt = &completedAt
			assignment.MarksEarned = tasks[i].Marks
			assignment.UserRating = &rating
		}
		if err := f.db.Create(&assignment).Error; err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

// pick returns n distinct random entries from pool.
func (f *Factory) pick(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	idx := f.rng.Perm(len(pool))[:n]
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

package seed

import (
	"fmt"
	"log"

	"rewire/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers     int
	TasksPerUser int
	ShouldClean  bool
}

// Run seeds the database with demo users, profiles, and task assignments.
func Run(db *gorm.DB, opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 20
	}
	if opts.TasksPerUser <= 0 {
		opts.TasksPerUser = 6
	}

	if opts.ShouldClean {
		if err := Clean(db); err != nil {
			return fmt.Errorf("clean database: %w", err)
		}
	}

	factory := NewFactory(db)

	for i := 0; i < opts.NumUsers; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return fmt.Errorf("create user %d: %w", i, err)
		}
		if _, err := factory.CreateProfile(user); err != nil {
			return fmt.Errorf("create profile for user %d: %w", user.ID, err)
		}
		if _, err := factory.AssignTasks(user, opts.TasksPerUser); err != nil {
			return fmt.Errorf("assign tasks for user %d: %w", user.ID, err)
		}
	}

	log.Printf("Seeded %d users with profiles and %d tasks each", opts.NumUsers, opts.TasksPerUser)
	return nil
}

// Clean removes all seeded data. Order matters because of foreign keys.
func Clean(db *gorm.DB) error {
	for _, model := range []interface{}{
		&models.UserTask{},
		&models.Task{},
		&models.AddictionProfile{},
		&models.User{},
	} {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).
			Unscoped().Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

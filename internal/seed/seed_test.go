package seed

import (
	"testing"

	"rewire/internal/database"
	"rewire/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func TestRunSeedsUsersProfilesAndTasks(t *testing.T) {
	db := setupSeedDB(t)

	require.NoError(t, Run(db, Options{NumUsers: 3, TasksPerUser: 4}))

	var users, profiles, assignments int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.AddictionProfile{}).Count(&profiles).Error)
	require.NoError(t, db.Model(&models.UserTask{}).Count(&assignments).Error)

	assert.EqualValues(t, 3, users)
	assert.EqualValues(t, 3, profiles)
	assert.EqualValues(t, 12, assignments)

	// Completed assignments carry marks
	var completed []models.UserTask
	require.NoError(t, db.Where("completed = ?", true).Find(&completed).Error)
	for _, a := range completed {
		assert.Positive(t, a.MarksEarned)
		assert.NotNil(t, a.CompletedAt)
	}
}

func TestCleanRemovesEverything(t *testing.T) {
	db := setupSeedDB(t)
	require.NoError(t, Run(db, Options{NumUsers: 2, TasksPerUser: 3}))

	require.NoError(t, Clean(db))

	var users, tasks int64
	require.NoError(t, db.Model(&models.User{}).Unscoped().Count(&users).Error)
	require.NoError(t, db.Model(&models.Task{}).Count(&tasks).Error)
	assert.Zero(t, users)
	assert.Zero(t, tasks)
}

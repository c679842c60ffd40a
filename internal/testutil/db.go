// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"forum/internal/database"
	"forum/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a migrated in-memory SQLite database private to t.
// A single connection keeps every query on the same in-memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique username and email.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: "salt:hash",
		Role:     models.RoleUser,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post whose updatedAt is pinned to a fixed past instant,
// so tests can detect any write that moves it.
func CreatePost(t *testing.T, db *gorm.DB, authorID uint, title string) *models.Post {
	t.Helper()
	pinned := time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC)
	p := &models.Post{
		Title:     title,
		Content:   "content of " + title,
		Images:    []string{},
		AuthorID:  authorID,
		CreatedAt: pinned,
		UpdatedAt: pinned,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// PostUpdatedAt reads posts.updated_at straight from the table.
func PostUpdatedAt(t *testing.T, db *gorm.DB, postID uint) time.Time {
	t.Helper()
	var row struct{ UpdatedAt time.Time }
	require.NoError(t, db.Model(&models.Post{}).Select("updated_at").Where("id = ?", postID).Take(&row).Error)
	return row.UpdatedAt
}

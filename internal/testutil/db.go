// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"testing"

	"constructure/internal/auth"
	"constructure/internal/db"
	"constructure/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated in-memory sqlite database private to t
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// one connection keeps every query on the same in-memory database
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func CreateUser(t *testing.T, gdb *gorm.DB, email string) *domain.User {
	t.Helper()

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Username:     email,
		IsActive:     true,
	}
	require.NoError(t, gdb.Create(user).Error)
	return user
}

func CreateCourse(t *testing.T, gdb *gorm.DB, author *domain.User, title string, public bool) *domain.Course {
	t.Helper()

	course := &domain.Course{
		Title:    title,
		IsPublic: public,
		AuthorID: author.ID,
	}
	require.NoError(t, gdb.Create(course).Error)
	return course
}

func CreateNode(t *testing.T, gdb *gorm.DB, courseID, title string) *domain.CourseNode {
	t.Helper()

	node := &domain.CourseNode{
		CourseID:  courseID,
		Type:      domain.NodeLesson,
		Title:     title,
		Content:   datatypes.JSON(`{"body":"` + title + `"}`),
		Positions: datatypes.NewJSONType(domain.Positions{Tree: domain.Point{X: 1, Y: 2}}),
	}
	require.NoError(t, gdb.Create(node).Error)
	return node
}

func CreateEdge(t *testing.T, gdb *gorm.DB, courseID, sourceID, targetID string) *domain.CourseEdge {
	t.Helper()

	edge := &domain.CourseEdge{
		CourseID: courseID,
		SourceID: sourceID,
		TargetID: targetID,
		Type:     domain.EdgeSequence,
	}
	require.NoError(t, gdb.Create(edge).Error)
	return edge
}

func AddCollaborator(t *testing.T, gdb *gorm.DB, courseID, userID string, role domain.Role) {
	t.Helper()

	require.NoError(t, gdb.Create(&domain.CourseCollaborator{
		CourseID: courseID,
		UserID:   userID,
		Role:     role,
	}).Error)
}

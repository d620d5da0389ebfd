package db

import (
	"context"
	"errors"

	"constructure/internal/auth"
	"constructure/internal/domain"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.Course{},
		&domain.CourseNode{},
		&domain.CourseEdge{},
		&domain.CourseCollaborator{},
	)
}

const (
	seedEmail    = "demo@constructure.dev"
	seedPassword = "password123"
)

// Seed creates a demo user with a small public course (for development only).
// It does nothing when the demo user already exists.
func Seed(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	var existing domain.User
	err := db.WithContext(ctx).Where("email = ?", seedEmail).First(&existing).Error
	if err == nil {
		log.Info().Str("email", seedEmail).Msg("demo user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := domain.User{
			Email:        seedEmail,
			PasswordHash: hash,
			Username:     "demo",
			IsActive:     true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		description := "A three step introduction"
		course := domain.Course{
			Title:       "Getting Started",
			Description: &description,
			IsPublic:    true,
			AuthorID:    user.ID,
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}

		titles := []struct {
			kind  domain.NodeType
			title string
		}{
			{domain.NodeStart, "Welcome"},
			{domain.NodeLesson, "First lesson"},
			{domain.NodeEnd, "Finish"},
		}
		nodes := make([]domain.CourseNode, 0, len(titles))
		for i, t := range titles {
			x := float64(i * 200)
			nodes = append(nodes, domain.CourseNode{
				CourseID: course.ID,
				Type:     t.kind,
				Title:    t.title,
				Positions: datatypes.NewJSONType(domain.Positions{
					Tree:      domain.Point{X: 0, Y: x},
					Lego:      domain.Point{X: x, Y: 0},
					Mindmap:   domain.Point{X: x, Y: x},
					Flowchart: domain.Point{X: x, Y: 100},
				}),
			})
		}
		if err := tx.Create(&nodes).Error; err != nil {
			return err
		}

		edges := []domain.CourseEdge{
			{CourseID: course.ID, SourceID: nodes[0].ID, TargetID: nodes[1].ID, Type: domain.EdgeSequence},
			{CourseID: course.ID, SourceID: nodes[1].ID, TargetID: nodes[2].ID, Type: domain.EdgeSequence},
		}
		if err := tx.Create(&edges).Error; err != nil {
			return err
		}

		log.Info().Str("email", seedEmail).Str("course_id", course.ID).Msg("seeded demo data")
		return nil
	})
}

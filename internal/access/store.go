package access

import (
	"context"

	"constructure/internal/domain"

	"gorm.io/gorm"
)

// GormStore reads courses and collaborator roles straight from the database on
// every call; authorization state is never cached.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	var course domain.Course
	if err := s.db.WithContext(ctx).Where("id = ?", courseID).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (s *GormStore) FindRole(ctx context.Context, courseID, userID string) (domain.Role, error) {
	var roles []domain.Role
	err := s.db.WithContext(ctx).
		Model(&domain.CourseCollaborator{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Limit(1).
		Pluck("role", &roles).Error
	if err != nil || len(roles) == 0 {
		return domain.RoleNone, err
	}
	return roles[0], nil
}

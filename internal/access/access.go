// Package access decides what a user may do with a course.
package access

import (
	"context"
	defError "errors"

	"constructure/internal/domain"
	"constructure/internal/errors"

	"gorm.io/gorm"
)

type Level int

const (
	Read Level = iota
	Write
	ManageCollaborators
	Delete
)

func (l Level) String() string {
	switch l {
	case Read:
		return "read"
	case Write:
		return "write"
	case ManageCollaborators:
		return "manage collaborators"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Allowed reports whether a user holding role on course may act at level.
// The author is allowed everything. Collaborators of any role and anyone on a
// public course may read; OWNER and EDITOR may write; only OWNER may manage
// collaborators; only the author may delete.
func Allowed(course *domain.Course, userID string, role domain.Role, level Level) bool {
	if userID != "" && course.AuthorID == userID {
		return true
	}

	switch level {
	case Read:
		return course.IsPublic || role != domain.RoleNone
	case Write:
		return role == domain.RoleOwner || role == domain.RoleEditor
	case ManageCollaborators:
		return role == domain.RoleOwner
	}
	return false
}

// Store loads what a Guard needs. FindCourse returns gorm.ErrRecordNotFound
// for a missing course; FindRole returns domain.RoleNone for a non-collaborator.
type Store interface {
	FindCourse(ctx context.Context, courseID string) (*domain.Course, error)
	FindRole(ctx context.Context, courseID, userID string) (domain.Role, error)
}

type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Authorize loads the course and checks userID against level. A course the
// user cannot read is reported as not found so its existence does not leak.
// A readable course with insufficient rights is forbidden.
func (g *Guard) Authorize(ctx context.Context, courseID, userID string, level Level) (*domain.Course, error) {
	course, err := g.store.FindCourse(ctx, courseID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Course not found", err)
		}
		return nil, err
	}

	role := domain.RoleNone
	if userID != "" && course.AuthorID != userID {
		role, err = g.store.FindRole(ctx, courseID, userID)
		if err != nil {
			return nil, err
		}
	}

	if !Allowed(course, userID, role, Read) {
		return nil, errors.NotFound("Course not found", nil)
	}
	if !Allowed(course, userID, role, level) {
		return nil, errors.Forbidden("You do not have permission to "+level.String()+" this course", nil)
	}

	return course, nil
}

func CanRead(course *domain.Course, userID string, role domain.Role) bool {
	return Allowed(course, userID, role, Read)
}

func CanWrite(course *domain.Course, userID string, role domain.Role) bool {
	return Allowed(course, userID, role, Write)
}

func CanManageCollaborators(course *domain.Course, userID string, role domain.Role) bool {
	return Allowed(course, userID, role, ManageCollaborators)
}

func CanDelete(course *domain.Course, userID string) bool {
	return Allowed(course, userID, domain.RoleNone, Delete)
}

package access

import (
	"context"
	"net/http"
	"testing"

	"constructure/internal/domain"
	"constructure/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Course), args.Error(1)
}

func (m *MockStore) FindRole(ctx context.Context, courseID, userID string) (domain.Role, error) {
	args := m.Called(ctx, courseID, userID)
	return args.Get(0).(domain.Role), args.Error(1)
}

func TestAllowed_Matrix(t *testing.T) {
	private := &domain.Course{AuthorID: "author"}
	public := &domain.Course{AuthorID: "author", IsPublic: true}

	cases := []struct {
		name   string
		course *domain.Course
		user   string
		role   domain.Role
		want   [4]bool // read, write, manage, delete
	}{
		{"author", private, "author", domain.RoleNone, [4]bool{true, true, true, true}},
		{"owner", private, "u", domain.RoleOwner, [4]bool{true, true, true, false}},
		{"editor", private, "u", domain.RoleEditor, [4]bool{true, true, false, false}},
		{"commenter", private, "u", domain.RoleCommenter, [4]bool{true, false, false, false}},
		{"viewer", private, "u", domain.RoleViewer, [4]bool{true, false, false, false}},
		{"stranger private", private, "u", domain.RoleNone, [4]bool{false, false, false, false}},
		{"stranger public", public, "u", domain.RoleNone, [4]bool{true, false, false, false}},
		{"anonymous public", public, "", domain.RoleNone, [4]bool{true, false, false, false}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for i, level := range []Level{Read, Write, ManageCollaborators, Delete} {
				assert.Equal(t, tc.want[i], Allowed(tc.course, tc.user, tc.role, level), level.String())
			}
		})
	}
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Status
}

func TestAuthorize_MissingCourse(t *testing.T) {
	store := new(MockStore)
	store.On("FindCourse", mock.Anything, "c1").Return(nil, gorm.ErrRecordNotFound)

	_, err := NewGuard(store).Authorize(context.Background(), "c1", "u", Read)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestAuthorize_PrivateCourseHidden(t *testing.T) {
	store := new(MockStore)
	store.On("FindCourse", mock.Anything, "c1").Return(&domain.Course{ID: "c1", AuthorID: "author"}, nil)
	store.On("FindRole", mock.Anything, "c1", "u").Return(domain.RoleNone, nil)

	_, err := NewGuard(store).Authorize(context.Background(), "c1", "u", Write)
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
}

func TestAuthorize_ViewerCannotWrite(t *testing.T) {
	store := new(MockStore)
	store.On("FindCourse", mock.Anything, "c1").Return(&domain.Course{ID: "c1", AuthorID: "author"}, nil)
	store.On("FindRole", mock.Anything, "c1", "u").Return(domain.RoleViewer, nil)

	_, err := NewGuard(store).Authorize(context.Background(), "c1", "u", Write)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))
}

func TestAuthorize_EditorCanWrite(t *testing.T) {
	store := new(MockStore)
	store.On("FindCourse", mock.Anything, "c1").Return(&domain.Course{ID: "c1", AuthorID: "author"}, nil)
	store.On("FindRole", mock.Anything, "c1", "u").Return(domain.RoleEditor, nil)

	course, err := NewGuard(store).Authorize(context.Background(), "c1", "u", Write)
	require.NoError(t, err)
	assert.Equal(t, "c1", course.ID)
}

func TestAuthorize_AuthorSkipsRoleLookup(t *testing.T) {
	store := new(MockStore)
	store.On("FindCourse", mock.Anything, "c1").Return(&domain.Course{ID: "c1", AuthorID: "author"}, nil)

	_, err := NewGuard(store).Authorize(context.Background(), "c1", "author", Delete)
	require.NoError(t, err)
	store.AssertNotCalled(t, "FindRole", mock.Anything, mock.Anything, mock.Anything)
}

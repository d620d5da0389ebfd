package course

import (
	"context"
	"net/http"
	"testing"
	"time"

	"constructure/internal/access"
	"constructure/internal/cache"
	"constructure/internal/domain"
	"constructure/internal/errors"
	"constructure/internal/graph"
	"constructure/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type dbUsers struct {
	db *gorm.DB
}

func (u dbUsers) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type fixture struct {
	db      *gorm.DB
	service *DefaultService
	redis   *miniredis.Miniredis
	author  *domain.User
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewTestDB(t)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	// nil pool: cache writes happen synchronously
	svc := NewService(
		NewRepository(gdb),
		access.NewGuard(access.NewGormStore(gdb)),
		dbUsers{db: gdb},
		cache.New(client),
		nil,
		time.Minute,
		zerolog.Nop(),
	)
	return &fixture{
		db:      gdb,
		service: svc,
		redis:   mr,
		author:  testutil.CreateUser(t, gdb, "author@example.com"),
	}
}

func appStatus(t *testing.T, err error) int {
	t.Helper()
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	return appErr.Status
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, courseID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where("course_id = ?", courseID).Count(&n).Error)
	return n
}

func TestDuplicateCourse_CopiesGraph(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	source := testutil.CreateCourse(t, f.db, f.author, "Algebra", true)
	a := testutil.CreateNode(t, f.db, source.ID, "A")
	b := testutil.CreateNode(t, f.db, source.ID, "B")
	c := testutil.CreateNode(t, f.db, source.ID, "C")
	testutil.CreateEdge(t, f.db, source.ID, a.ID, b.ID)
	testutil.CreateEdge(t, f.db, source.ID, b.ID, c.ID)

	collaborator := testutil.CreateUser(t, f.db, "collab@example.com")
	testutil.AddCollaborator(t, f.db, source.ID, collaborator.ID, domain.RoleEditor)

	requester := testutil.CreateUser(t, f.db, "student@example.com")

	dup, err := f.service.DuplicateCourse(ctx, source.ID, requester.ID)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, dup.ID)
	assert.Equal(t, "Algebra (copy)", dup.Title)
	assert.False(t, dup.IsPublic)
	assert.Equal(t, requester.ID, dup.AuthorID)
	require.NotNil(t, dup.Author)
	assert.Equal(t, requester.Email, dup.Author.Email)

	assert.Equal(t, int64(3), countRows(t, f.db, &domain.CourseNode{}, dup.ID))
	assert.Equal(t, int64(2), countRows(t, f.db, &domain.CourseEdge{}, dup.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &domain.CourseCollaborator{}, dup.ID))

	// edges point at the copied nodes only
	var nodes []domain.CourseNode
	require.NoError(t, f.db.Where("course_id = ?", dup.ID).Find(&nodes).Error)
	copied := map[string]string{}
	for _, n := range nodes {
		copied[n.ID] = n.Title
		assert.JSONEq(t, `{"body":"`+n.Title+`"}`, string(n.Content))
		assert.Equal(t, domain.Point{X: 1, Y: 2}, n.Positions.Data().Tree)
	}
	var edges []domain.CourseEdge
	require.NoError(t, f.db.Where("course_id = ?", dup.ID).Find(&edges).Error)
	titles := map[string]bool{}
	for _, e := range edges {
		require.Contains(t, copied, e.SourceID)
		require.Contains(t, copied, e.TargetID)
		titles[copied[e.SourceID]+"->"+copied[e.TargetID]] = true
	}
	assert.Equal(t, map[string]bool{"A->B": true, "B->C": true}, titles)

	// the source is untouched
	assert.Equal(t, int64(3), countRows(t, f.db, &domain.CourseNode{}, source.ID))
	assert.Equal(t, int64(2), countRows(t, f.db, &domain.CourseEdge{}, source.ID))
	assert.Equal(t, int64(1), countRows(t, f.db, &domain.CourseCollaborator{}, source.ID))
}

func TestDuplicateCourse_DropsDanglingEdges(t *testing.T) {
	f := setupService(t)
	source := testutil.CreateCourse(t, f.db, f.author, "Legacy", false)
	a := testutil.CreateNode(t, f.db, source.ID, "A")
	b := testutil.CreateNode(t, f.db, source.ID, "B")
	testutil.CreateEdge(t, f.db, source.ID, a.ID, b.ID)
	testutil.CreateEdge(t, f.db, source.ID, a.ID, "9a0c1f7e-1d2b-4c3a-8e9f-0a1b2c3d4e5f")

	dup, err := f.service.DuplicateCourse(context.Background(), source.ID, f.author.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), countRows(t, f.db, &domain.CourseNode{}, dup.ID))
	assert.Equal(t, int64(1), countRows(t, f.db, &domain.CourseEdge{}, dup.ID))
}

func TestDuplicateCourse_EmptyCourse(t *testing.T) {
	f := setupService(t)
	source := testutil.CreateCourse(t, f.db, f.author, "Empty", false)

	dup, err := f.service.DuplicateCourse(context.Background(), source.ID, f.author.ID)
	require.NoError(t, err)
	assert.Equal(t, "Empty (copy)", dup.Title)
	assert.Equal(t, int64(0), countRows(t, f.db, &domain.CourseNode{}, dup.ID))
}

func TestDuplicateCourse_RollsBackOnFailure(t *testing.T) {
	f := setupService(t)
	source := testutil.CreateCourse(t, f.db, f.author, "Fragile", false)
	a := testutil.CreateNode(t, f.db, source.ID, "A")
	b := testutil.CreateNode(t, f.db, source.ID, "B")
	testutil.CreateEdge(t, f.db, source.ID, a.ID, b.ID)

	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:fail_edges", func(tx *gorm.DB) {
		if tx.Statement.Schema != nil && tx.Statement.Schema.Table == "course_edges" {
			tx.AddError(assert.AnError)
		}
	}))

	_, err := f.service.DuplicateCourse(context.Background(), source.ID, f.author.ID)
	assert.Equal(t, http.StatusInternalServerError, appStatus(t, err))

	var courses, nodes, edges int64
	require.NoError(t, f.db.Model(&domain.Course{}).Count(&courses).Error)
	require.NoError(t, f.db.Model(&domain.CourseNode{}).Count(&nodes).Error)
	require.NoError(t, f.db.Model(&domain.CourseEdge{}).Count(&edges).Error)
	assert.Equal(t, int64(1), courses)
	assert.Equal(t, int64(2), nodes)
	assert.Equal(t, int64(1), edges)
}

func TestDuplicateCourse_RequiresReadAccess(t *testing.T) {
	f := setupService(t)
	source := testutil.CreateCourse(t, f.db, f.author, "Private", false)
	stranger := testutil.CreateUser(t, f.db, "stranger@example.com")

	_, err := f.service.DuplicateCourse(context.Background(), source.ID, stranger.ID)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))

	public := testutil.CreateCourse(t, f.db, f.author, "Public", true)
	_, err = f.service.DuplicateCourse(context.Background(), public.ID, stranger.ID)
	assert.NoError(t, err)
}

func TestGetCourse_OrderedDetail(t *testing.T) {
	f := setupService(t)
	course := testutil.CreateCourse(t, f.db, f.author, "Ordered", false)
	end := testutil.CreateNode(t, f.db, course.ID, "End")
	start := testutil.CreateNode(t, f.db, course.ID, "Start")
	testutil.CreateEdge(t, f.db, course.ID, start.ID, end.ID)
	testutil.CreateEdge(t, f.db, course.ID, start.ID, "9a0c1f7e-1d2b-4c3a-8e9f-0a1b2c3d4e5f")

	detail, err := f.service.GetCourse(context.Background(), course.ID, f.author.ID)
	require.NoError(t, err)

	require.Len(t, detail.Nodes, 2)
	assert.Equal(t, start.ID, detail.Nodes[0].ID)
	assert.Equal(t, end.ID, detail.Nodes[1].ID)
	assert.Len(t, detail.Edges, 1)
	assert.False(t, detail.HadCycle)
	require.NotNil(t, detail.Author)
	assert.Equal(t, f.author.ID, detail.Author.ID)
}

func TestGetCourse_AccessRules(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.author, "Private", false)
	viewer := testutil.CreateUser(t, f.db, "viewer@example.com")
	editor := testutil.CreateUser(t, f.db, "editor@example.com")
	stranger := testutil.CreateUser(t, f.db, "stranger@example.com")
	testutil.AddCollaborator(t, f.db, course.ID, viewer.ID, domain.RoleViewer)
	testutil.AddCollaborator(t, f.db, course.ID, editor.ID, domain.RoleEditor)

	_, err := f.service.GetCourse(ctx, course.ID, stranger.ID)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))

	detail, err := f.service.GetCourse(ctx, course.ID, viewer.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Collaborators, 2)

	title := "Renamed"
	_, err = f.service.UpdateCourse(ctx, course.ID, viewer.ID, UpdateCourseRequest{Title: &title})
	assert.Equal(t, http.StatusForbidden, appStatus(t, err))

	updated, err := f.service.UpdateCourse(ctx, course.ID, editor.ID, UpdateCourseRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	err = f.service.DeleteCourse(ctx, course.ID, editor.ID)
	assert.Equal(t, http.StatusForbidden, appStatus(t, err))
}

func TestDeleteCourse_RemovesChildren(t *testing.T) {
	f := setupService(t)
	course := testutil.CreateCourse(t, f.db, f.author, "Doomed", false)
	a := testutil.CreateNode(t, f.db, course.ID, "A")
	b := testutil.CreateNode(t, f.db, course.ID, "B")
	testutil.CreateEdge(t, f.db, course.ID, a.ID, b.ID)
	viewer := testutil.CreateUser(t, f.db, "viewer@example.com")
	testutil.AddCollaborator(t, f.db, course.ID, viewer.ID, domain.RoleViewer)

	require.NoError(t, f.service.DeleteCourse(context.Background(), course.ID, f.author.ID))

	assert.Equal(t, int64(0), countRows(t, f.db, &domain.CourseNode{}, course.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &domain.CourseEdge{}, course.ID))
	assert.Equal(t, int64(0), countRows(t, f.db, &domain.CourseCollaborator{}, course.ID))

	_, err := f.service.GetCourse(context.Background(), course.ID, f.author.ID)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestListCourses_FiltersAndPagination(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	other := testutil.CreateUser(t, f.db, "other@example.com")

	algebra := testutil.CreateCourse(t, f.db, f.author, "Algebra Basics", true)
	testutil.CreateNode(t, f.db, algebra.ID, "A")
	testutil.CreateCourse(t, f.db, f.author, "Geometry", false)
	shared := testutil.CreateCourse(t, f.db, other, "Shared algebra", false)
	testutil.AddCollaborator(t, f.db, shared.ID, f.author.ID, domain.RoleViewer)
	testutil.CreateCourse(t, f.db, other, "Not mine", true)

	all, err := f.service.ListCourses(ctx, f.author.ID, ListFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Pagination.TotalCount)

	searched, err := f.service.ListCourses(ctx, f.author.ID, ListFilter{Search: "ALGEBRA", Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), searched.Pagination.TotalCount)

	public := true
	filtered, err := f.service.ListCourses(ctx, f.author.ID, ListFilter{IsPublic: &public, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, filtered.Courses, 1)
	assert.Equal(t, algebra.ID, filtered.Courses[0].ID)
	assert.Equal(t, int64(1), filtered.Courses[0].Count.Nodes)
	require.NotNil(t, filtered.Courses[0].Author)

	paged, err := f.service.ListCourses(ctx, f.author.ID, ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, paged.Courses, 1)
	assert.Equal(t, Pagination{
		Page: 2, Limit: 2, TotalCount: 3, TotalPages: 2, HasNextPage: false, HasPrevPage: true,
	}, paged.Pagination)
}

func TestListCourses_CacheInvalidatedOnCreateAndDelete(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	filter := ListFilter{Page: 1, Limit: 20}

	first, err := f.service.ListCourses(ctx, f.author.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Pagination.TotalCount)
	assert.NotEmpty(t, f.redis.Keys())

	created, err := f.service.CreateCourse(ctx, f.author.ID, CreateCourseRequest{Title: "Fresh"})
	require.NoError(t, err)

	second, err := f.service.ListCourses(ctx, f.author.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Pagination.TotalCount)

	require.NoError(t, f.service.DeleteCourse(ctx, created.ID, f.author.ID))

	third, err := f.service.ListCourses(ctx, f.author.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(0), third.Pagination.TotalCount)
}

func TestListCourses_ServesFromCache(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	filter := ListFilter{Page: 1, Limit: 20}

	_, err := f.service.ListCourses(ctx, f.author.ID, filter)
	require.NoError(t, err)

	// a row written behind the service's back is invisible until invalidation
	testutil.CreateCourse(t, f.db, f.author, "Sneaky", false)
	cached, err := f.service.ListCourses(ctx, f.author.ID, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cached.Pagination.TotalCount)
}

func TestCollaborators_Lifecycle(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.author, "Team", false)
	editor := testutil.CreateUser(t, f.db, "editor@example.com")
	viewer := testutil.CreateUser(t, f.db, "viewer@example.com")

	added, err := f.service.AddCollaborator(ctx, course.ID, f.author.ID, AddCollaboratorRequest{UserID: editor.ID, Role: domain.RoleEditor})
	require.NoError(t, err)
	require.NotNil(t, added.User)
	assert.Equal(t, editor.Email, added.User.Email)

	_, err = f.service.AddCollaborator(ctx, course.ID, f.author.ID, AddCollaboratorRequest{UserID: editor.ID, Role: domain.RoleViewer})
	assert.Equal(t, http.StatusConflict, appStatus(t, err))

	_, err = f.service.AddCollaborator(ctx, course.ID, f.author.ID, AddCollaboratorRequest{UserID: f.author.ID, Role: domain.RoleViewer})
	assert.Equal(t, http.StatusBadRequest, appStatus(t, err))

	_, err = f.service.AddCollaborator(ctx, course.ID, f.author.ID, AddCollaboratorRequest{UserID: "0b3a1c2d-0000-4000-8000-000000000000", Role: domain.RoleViewer})
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))

	// editors cannot manage collaborators
	_, err = f.service.AddCollaborator(ctx, course.ID, editor.ID, AddCollaboratorRequest{UserID: viewer.ID, Role: domain.RoleViewer})
	assert.Equal(t, http.StatusForbidden, appStatus(t, err))

	changed, err := f.service.ChangeCollaboratorRole(ctx, course.ID, f.author.ID, editor.ID, domain.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, changed.Role)

	// owners can
	_, err = f.service.AddCollaborator(ctx, course.ID, editor.ID, AddCollaboratorRequest{UserID: viewer.ID, Role: domain.RoleViewer})
	require.NoError(t, err)

	list, err := f.service.ListCollaborators(ctx, course.ID, viewer.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// anyone may leave
	require.NoError(t, f.service.RemoveCollaborator(ctx, course.ID, viewer.ID, viewer.ID))
	err = f.service.RemoveCollaborator(ctx, course.ID, f.author.ID, viewer.ID)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))

	_, err = f.service.ChangeCollaboratorRole(ctx, course.ID, f.author.ID, viewer.ID, domain.RoleEditor)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestUpdateCourse_ReturnsAuthor(t *testing.T) {
	f := setupService(t)
	course := testutil.CreateCourse(t, f.db, f.author, "Draft", false)
	title := "Published"
	public := true

	updated, err := f.service.UpdateCourse(context.Background(), course.ID, f.author.ID, UpdateCourseRequest{
		Title:    &title,
		IsPublic: &public,
	})
	require.NoError(t, err)

	assert.Equal(t, "Published", updated.Title)
	assert.True(t, updated.IsPublic)
	require.NotNil(t, updated.Author)
	assert.Equal(t, f.author.Email, updated.Author.Email)
}

func TestCollaboratorRoleGatesGraphWrites(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	course := testutil.CreateCourse(t, f.db, f.author, "Private", false)
	member := testutil.CreateUser(t, f.db, "member@example.com")

	graphService := graph.NewService(graph.NewRepository(f.db), access.NewGuard(access.NewGormStore(f.db)), f.service, zerolog.Nop())
	req := graph.CreateNodeRequest{Type: domain.NodeLesson, Title: "Intro"}

	_, err := f.service.GetCourse(ctx, course.ID, member.ID)
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))

	_, err = f.service.AddCollaborator(ctx, course.ID, f.author.ID, AddCollaboratorRequest{UserID: member.ID, Role: domain.RoleViewer})
	require.NoError(t, err)

	detail, err := f.service.GetCourse(ctx, course.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", detail.Title)

	_, err = graphService.CreateNode(ctx, course.ID, member.ID, req)
	assert.Equal(t, http.StatusForbidden, appStatus(t, err))

	_, err = f.service.ChangeCollaboratorRole(ctx, course.ID, f.author.ID, member.ID, domain.RoleEditor)
	require.NoError(t, err)

	node, err := graphService.CreateNode(ctx, course.ID, member.ID, req)
	require.NoError(t, err)
	assert.Equal(t, course.ID, node.CourseID)
}

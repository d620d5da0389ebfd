package course

import (
	"context"
	defError "errors"
	"fmt"
	"strings"
	"time"

	"constructure/internal/access"
	"constructure/internal/cache"
	"constructure/internal/domain"
	"constructure/internal/errors"
	"constructure/internal/graph"
	"constructure/internal/utils"
	"constructure/internal/worker"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Service interface {
	ListCourses(ctx context.Context, userID string, filter ListFilter) (*CourseList, error)
	GetCourse(ctx context.Context, courseID, userID string) (*CourseDetail, error)
	CreateCourse(ctx context.Context, userID string, req CreateCourseRequest) (*domain.Course, error)
	UpdateCourse(ctx context.Context, courseID, userID string, req UpdateCourseRequest) (*domain.Course, error)
	DeleteCourse(ctx context.Context, courseID, userID string) error
	DuplicateCourse(ctx context.Context, courseID, userID string) (*domain.Course, error)

	ListCollaborators(ctx context.Context, courseID, userID string) ([]domain.CourseCollaborator, error)
	AddCollaborator(ctx context.Context, courseID, requesterID string, req AddCollaboratorRequest) (*domain.CourseCollaborator, error)
	ChangeCollaboratorRole(ctx context.Context, courseID, requesterID, targetUserID string, role domain.Role) (*domain.CourseCollaborator, error)
	RemoveCollaborator(ctx context.Context, courseID, requesterID, targetUserID string) error
}

type UserProvider interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, courseID, userID string, level access.Level) (*domain.Course, error)
}

type Pagination struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalCount  int64 `json:"totalCount"`
	TotalPages  int   `json:"totalPages"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

type CourseList struct {
	Courses    []CourseSummary `json:"courses"`
	Pagination Pagination      `json:"pagination"`
}

// CourseDetail is the full course with nodes in display order
type CourseDetail struct {
	domain.Course
	Nodes         []domain.CourseNode         `json:"nodes"`
	Edges         []domain.CourseEdge         `json:"edges"`
	Collaborators []domain.CourseCollaborator `json:"collaborators"`
	HadCycle      bool                        `json:"hadCycle"`
}

type DefaultService struct {
	repository   Repository
	guard        Authorizer
	userProvider UserProvider
	cache        *cache.Cache
	pool         *worker.WorkerPool
	cacheTTL     time.Duration
	log          zerolog.Logger
}

func NewService(
	repository Repository,
	guard Authorizer,
	userProvider UserProvider,
	cache *cache.Cache,
	pool *worker.WorkerPool,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *DefaultService {
	return &DefaultService{
		repository:   repository,
		guard:        guard,
		userProvider: userProvider,
		cache:        cache,
		pool:         pool,
		cacheTTL:     cacheTTL,
		log:          log.With().Str("component", "course").Logger(),
	}
}

func versionKey(userID string) string {
	return fmt.Sprintf("user:%s:courses:version", userID)
}

func listKey(userID string, version int64, filter ListFilter) string {
	return fmt.Sprintf("courses:u:%s:v:%d:p:%d:l:%d:q:%s:pub:%s:tpl:%s",
		userID, version, filter.Page, filter.Limit,
		strings.ToLower(strings.TrimSpace(filter.Search)),
		optionalBool(filter.IsPublic), optionalBool(filter.IsTemplate))
}

func optionalBool(v *bool) string {
	if v == nil {
		return "-"
	}
	if *v {
		return "1"
	}
	return "0"
}

// bumpUsers invalidates every cached list page of the given users
func (s *DefaultService) bumpUsers(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		if err := s.cache.IncrementVersion(ctx, versionKey(id)); err != nil {
			s.log.Warn().Err(err).Str("user_id", id).Msg("failed to bump course list version")
		}
	}
}

// InvalidateCourseLists drops cached lists of the course's author and collaborators
func (s *DefaultService) InvalidateCourseLists(ctx context.Context, courseID string) {
	if !s.cache.Enabled() {
		return
	}
	members, err := s.repository.MemberIDs(ctx, courseID)
	if err != nil {
		s.log.Warn().Err(err).Str("course_id", courseID).Msg("failed to load course members for invalidation")
		return
	}
	s.bumpUsers(ctx, members...)
}

func (s *DefaultService) ListCourses(ctx context.Context, userID string, filter ListFilter) (*CourseList, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = utils.DefaultPageSize
	}

	// Get the current data version for this user's courses
	version := s.cache.GetVersion(ctx, versionKey(userID))
	key := listKey(userID, version, filter)

	var result CourseList
	found, err := s.cache.Get(ctx, key, &result)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("course list cache read failed")
	}
	if found {
		return &result, nil
	}

	courses, total, err := s.repository.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	totalPages := utils.TotalPages(total, filter.Limit)
	result = CourseList{
		Courses: courses,
		Pagination: Pagination{
			Page:        filter.Page,
			Limit:       filter.Limit,
			TotalCount:  total,
			TotalPages:  totalPages,
			HasNextPage: filter.Page < totalPages,
			HasPrevPage: filter.Page > 1,
		},
	}

	s.storeList(key, result)
	return &result, nil
}

func (s *DefaultService) storeList(key string, result CourseList) {
	if !s.cache.Enabled() {
		return
	}
	write := func(ctx context.Context) error {
		return s.cache.Set(ctx, key, result, s.cacheTTL)
	}
	if s.pool == nil {
		if err := write(context.Background()); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("course list cache write failed")
		}
		return
	}
	s.pool.Submit(write)
}

func (s *DefaultService) GetCourse(ctx context.Context, courseID, userID string) (*CourseDetail, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Read); err != nil {
		return nil, err
	}

	course, err := s.repository.FindDetail(ctx, courseID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Course not found", err)
		}
		return nil, err
	}

	edges := graph.FilterEdges(course.Nodes, course.Edges)
	ordered := graph.Arrange(course.Nodes, edges)

	detail := &CourseDetail{
		Course:        *course,
		Nodes:         ordered.Nodes,
		Edges:         edges,
		Collaborators: course.Collaborators,
		HadCycle:      ordered.HadCycle,
	}
	if detail.Collaborators == nil {
		detail.Collaborators = []domain.CourseCollaborator{}
	}
	return detail, nil
}

func (s *DefaultService) CreateCourse(ctx context.Context, userID string, req CreateCourseRequest) (*domain.Course, error) {
	course := &domain.Course{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		IsPublic:    req.IsPublic,
		IsTemplate:  req.IsTemplate,
		AuthorID:    userID,
	}
	if course.Title == "" {
		return nil, errors.BadRequest("Title cannot be empty", nil)
	}

	if err := s.repository.Create(ctx, course); err != nil {
		return nil, err
	}

	// increase cache key, so any new fetch will get new version
	s.bumpUsers(ctx, userID)
	return course, nil
}

func (s *DefaultService) UpdateCourse(ctx context.Context, courseID, userID string, req UpdateCourseRequest) (*domain.Course, error) {
	course, err := s.guard.Authorize(ctx, courseID, userID, access.Write)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, errors.BadRequest("Title cannot be empty", nil)
		}
		course.Title = title
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.Thumbnail != nil {
		course.Thumbnail = req.Thumbnail
	}
	if req.IsPublic != nil {
		course.IsPublic = *req.IsPublic
	}
	if req.IsTemplate != nil {
		course.IsTemplate = *req.IsTemplate
	}

	if err := s.repository.Save(ctx, course); err != nil {
		return nil, err
	}

	s.InvalidateCourseLists(ctx, courseID)
	return course, nil
}

func (s *DefaultService) DeleteCourse(ctx context.Context, courseID, userID string) error {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Delete); err != nil {
		return err
	}

	// members must be read before their rows are gone
	members, err := s.repository.MemberIDs(ctx, courseID)
	if err != nil {
		return err
	}

	if err := s.repository.Delete(ctx, courseID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Course not found", err)
		}
		return err
	}

	s.bumpUsers(ctx, members...)
	return nil
}

func (s *DefaultService) DuplicateCourse(ctx context.Context, courseID, userID string) (*domain.Course, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Read); err != nil {
		return nil, err
	}

	duplicate, err := s.repository.Duplicate(ctx, courseID, userID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Course not found", err)
		}
		s.log.Error().Err(err).Str("course_id", courseID).Msg("course duplication rolled back")
		return nil, errors.Internal(err)
	}

	s.bumpUsers(ctx, userID)
	return duplicate, nil
}

func (s *DefaultService) ListCollaborators(ctx context.Context, courseID, userID string) ([]domain.CourseCollaborator, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Read); err != nil {
		return nil, err
	}
	return s.repository.ListCollaborators(ctx, courseID)
}

func (s *DefaultService) AddCollaborator(ctx context.Context, courseID, requesterID string, req AddCollaboratorRequest) (*domain.CourseCollaborator, error) {
	course, err := s.guard.Authorize(ctx, courseID, requesterID, access.ManageCollaborators)
	if err != nil {
		return nil, err
	}

	if req.UserID == course.AuthorID {
		return nil, errors.BadRequest("The author cannot be added as a collaborator", nil)
	}

	// Ensure target user exists
	user, err := s.userProvider.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, errors.NotFound("User not found", err)
	}

	if _, err := s.repository.FindCollaborator(ctx, courseID, user.ID); err == nil {
		return nil, errors.Conflict("User is already a collaborator", nil)
	} else if !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	collaborator := &domain.CourseCollaborator{
		CourseID: courseID,
		UserID:   user.ID,
		Role:     req.Role,
	}
	if err := s.repository.AddCollaborator(ctx, collaborator); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("User is already a collaborator", err)
		}
		return nil, err
	}
	collaborator.User = user

	s.bumpUsers(ctx, user.ID)
	return collaborator, nil
}

func (s *DefaultService) ChangeCollaboratorRole(ctx context.Context, courseID, requesterID, targetUserID string, role domain.Role) (*domain.CourseCollaborator, error) {
	if _, err := s.guard.Authorize(ctx, courseID, requesterID, access.ManageCollaborators); err != nil {
		return nil, err
	}

	if err := s.repository.UpdateCollaboratorRole(ctx, courseID, targetUserID, role); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Collaborator not found", err)
		}
		return nil, err
	}

	return s.repository.FindCollaborator(ctx, courseID, targetUserID)
}

// RemoveCollaborator needs collaborator management rights, except that any
// collaborator may remove themselves.
func (s *DefaultService) RemoveCollaborator(ctx context.Context, courseID, requesterID, targetUserID string) error {
	level := access.ManageCollaborators
	if requesterID == targetUserID {
		level = access.Read
	}
	if _, err := s.guard.Authorize(ctx, courseID, requesterID, level); err != nil {
		return err
	}

	if err := s.repository.RemoveCollaborator(ctx, courseID, targetUserID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Collaborator not found", err)
		}
		return err
	}

	s.bumpUsers(ctx, targetUserID)
	return nil
}

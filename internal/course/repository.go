package course

import (
	"context"
	"strings"

	"constructure/internal/domain"

	"gorm.io/gorm"
)

// ListFilter narrows a user's course list
type ListFilter struct {
	Search     string
	IsPublic   *bool
	IsTemplate *bool
	Page       int
	Limit      int
}

type CourseCounts struct {
	Nodes         int64 `json:"nodes"`
	Collaborators int64 `json:"collaborators"`
}

// CourseSummary is a list entry: the course, its author and child counts
type CourseSummary struct {
	domain.Course
	Count CourseCounts `json:"_count"`
}

type Repository interface {
	FindDetail(ctx context.Context, courseID string) (*domain.Course, error)
	List(ctx context.Context, userID string, filter ListFilter) ([]CourseSummary, int64, error)
	Create(ctx context.Context, course *domain.Course) error
	Save(ctx context.Context, course *domain.Course) error
	Delete(ctx context.Context, courseID string) error
	Duplicate(ctx context.Context, courseID, requesterID string) (*domain.Course, error)
	MemberIDs(ctx context.Context, courseID string) ([]string, error)

	ListCollaborators(ctx context.Context, courseID string) ([]domain.CourseCollaborator, error)
	FindCollaborator(ctx context.Context, courseID, userID string) (*domain.CourseCollaborator, error)
	AddCollaborator(ctx context.Context, collaborator *domain.CourseCollaborator) error
	UpdateCollaboratorRole(ctx context.Context, courseID, userID string, role domain.Role) error
	RemoveCollaborator(ctx context.Context, courseID, userID string) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new course repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func creationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

func withUser(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Order("created_at ASC, id ASC")
}

// FindDetail loads a course with author, nodes, edges and collaborators
func (r *RepositoryImpl) FindDetail(ctx context.Context, courseID string) (*domain.Course, error) {
	var course domain.Course
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Nodes", creationOrder).
		Preload("Edges", creationOrder).
		Preload("Collaborators", withUser).
		Where("id = ?", courseID).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

type countRow struct {
	CourseID string
	Count    int64
}

func (r *RepositoryImpl) List(ctx context.Context, userID string, filter ListFilter) ([]CourseSummary, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Course{}).
		Where("(courses.author_id = ? OR EXISTS (SELECT 1 FROM course_collaborators cc WHERE cc.course_id = courses.id AND cc.user_id = ?))", userID, userID)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(courses.title) LIKE ? OR LOWER(COALESCE(courses.description, '')) LIKE ?)", like, like)
	}
	if filter.IsPublic != nil {
		query = query.Where("courses.is_public = ?", *filter.IsPublic)
	}
	if filter.IsTemplate != nil {
		query = query.Where("courses.is_template = ?", *filter.IsTemplate)
	}
	query = query.Session(&gorm.Session{})

	// Count total records
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []domain.Course
	offset := (filter.Page - 1) * filter.Limit
	err := query.
		Preload("Author").
		Order("courses.updated_at DESC, courses.id ASC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&courses).Error
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]CourseSummary, 0, len(courses))
	if len(courses) == 0 {
		return summaries, total, nil
	}

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}

	nodeCounts, err := r.countBy(ctx, &domain.CourseNode{}, ids)
	if err != nil {
		return nil, 0, err
	}
	collaboratorCounts, err := r.countBy(ctx, &domain.CourseCollaborator{}, ids)
	if err != nil {
		return nil, 0, err
	}

	for _, c := range courses {
		summaries = append(summaries, CourseSummary{
			Course: c,
			Count: CourseCounts{
				Nodes:         nodeCounts[c.ID],
				Collaborators: collaboratorCounts[c.ID],
			},
		})
	}
	return summaries, total, nil
}

func (r *RepositoryImpl) countBy(ctx context.Context, model interface{}, courseIDs []string) (map[string]int64, error) {
	var rows []countRow
	err := r.db.WithContext(ctx).
		Model(model).
		Select("course_id, COUNT(*) AS count").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.CourseID] = row.Count
	}
	return counts, nil
}

func (r *RepositoryImpl) Create(ctx context.Context, course *domain.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(course).Error; err != nil {
			return err
		}
		return tx.Preload("Author").Where("id = ?", course.ID).First(course).Error
	})
}

// Save writes the course row and reloads it with its author
func (r *RepositoryImpl) Save(ctx context.Context, course *domain.Course) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Nodes", "Edges", "Collaborators").Save(course).Error; err != nil {
			return err
		}
		return tx.Preload("Author").Where("id = ?", course.ID).First(course).Error
	})
}

// Delete removes the course together with its edges, nodes and collaborators
func (r *RepositoryImpl) Delete(ctx context.Context, courseID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&domain.CourseEdge{}, &domain.CourseNode{}, &domain.CourseCollaborator{}} {
			if err := tx.Where("course_id = ?", courseID).Delete(child).Error; err != nil {
				return err
			}
		}

		res := tx.Where("id = ?", courseID).Delete(&domain.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Duplicate copies a course with its nodes and remapped edges into a new
// private course owned by requesterID. Edges with an endpoint outside the
// source's nodes are dropped. Collaborators are not copied. Everything runs in
// one transaction; on any error nothing is written.
func (r *RepositoryImpl) Duplicate(ctx context.Context, courseID, requesterID string) (*domain.Course, error) {
	var result domain.Course

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. re-read the source inside the transaction
		var source domain.Course
		if err := tx.
			Preload("Nodes", creationOrder).
			Preload("Edges", creationOrder).
			Where("id = ?", courseID).
			First(&source).Error; err != nil {
			return err
		}

		// 2. the copy itself
		duplicate := domain.Course{
			Title:       source.Title + " (copy)",
			Description: source.Description,
			Thumbnail:   source.Thumbnail,
			IsPublic:    false,
			IsTemplate:  source.IsTemplate,
			AuthorID:    requesterID,
		}
		if err := tx.Create(&duplicate).Error; err != nil {
			return err
		}

		// 3. nodes, remembering old id -> new id
		idMap := make(map[string]string, len(source.Nodes))
		nodes := make([]domain.CourseNode, 0, len(source.Nodes))
		for _, n := range source.Nodes {
			nodes = append(nodes, domain.CourseNode{
				CourseID:  duplicate.ID,
				Type:      n.Type,
				Title:     n.Title,
				Content:   n.Content,
				Positions: n.Positions,
				Config:    n.Config,
			})
		}
		if len(nodes) > 0 {
			if err := tx.Create(&nodes).Error; err != nil {
				return err
			}
		}
		for i, n := range source.Nodes {
			idMap[n.ID] = nodes[i].ID
		}

		// 4. edges whose endpoints both survived the remap
		edges := make([]domain.CourseEdge, 0, len(source.Edges))
		for _, e := range source.Edges {
			sourceID, okSource := idMap[e.SourceID]
			targetID, okTarget := idMap[e.TargetID]
			if !okSource || !okTarget {
				continue
			}
			edges = append(edges, domain.CourseEdge{
				CourseID:  duplicate.ID,
				SourceID:  sourceID,
				TargetID:  targetID,
				Type:      e.Type,
				Label:     e.Label,
				Condition: e.Condition,
				Style:     e.Style,
			})
		}
		if len(edges) > 0 {
			if err := tx.Create(&edges).Error; err != nil {
				return err
			}
		}

		// 5. reload with the author populated
		return tx.Preload("Author").Where("id = ?", duplicate.ID).First(&result).Error
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// MemberIDs returns the author and every collaborator of a course
func (r *RepositoryImpl) MemberIDs(ctx context.Context, courseID string) ([]string, error) {
	var course domain.Course
	if err := r.db.WithContext(ctx).Select("id", "author_id").Where("id = ?", courseID).First(&course).Error; err != nil {
		return nil, err
	}

	var collaborators []string
	if err := r.db.WithContext(ctx).
		Model(&domain.CourseCollaborator{}).
		Where("course_id = ?", courseID).
		Pluck("user_id", &collaborators).Error; err != nil {
		return nil, err
	}

	return append([]string{course.AuthorID}, collaborators...), nil
}

func (r *RepositoryImpl) ListCollaborators(ctx context.Context, courseID string) ([]domain.CourseCollaborator, error) {
	var collaborators []domain.CourseCollaborator
	err := withUser(r.db.WithContext(ctx)).
		Where("course_id = ?", courseID).
		Find(&collaborators).Error
	return collaborators, err
}

func (r *RepositoryImpl) FindCollaborator(ctx context.Context, courseID, userID string) (*domain.CourseCollaborator, error) {
	var collaborator domain.CourseCollaborator
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("course_id = ? AND user_id = ?", courseID, userID).
		First(&collaborator).Error
	if err != nil {
		return nil, err
	}
	return &collaborator, nil
}

func (r *RepositoryImpl) AddCollaborator(ctx context.Context, collaborator *domain.CourseCollaborator) error {
	return r.db.WithContext(ctx).Omit("User").Create(collaborator).Error
}

func (r *RepositoryImpl) UpdateCollaboratorRole(ctx context.Context, courseID, userID string, role domain.Role) error {
	res := r.db.WithContext(ctx).
		Model(&domain.CourseCollaborator{}).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RepositoryImpl) RemoveCollaborator(ctx context.Context, courseID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("course_id = ? AND user_id = ?", courseID, userID).
		Delete(&domain.CourseCollaborator{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

package graph

import (
	"context"
	defError "errors"
	"fmt"

	"constructure/internal/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrUnknownNode is returned when a position update names a node outside the course
var ErrUnknownNode = defError.New("node does not belong to course")

// PositionUpdate moves one node in one layout mode
type PositionUpdate struct {
	NodeID string
	Layout domain.LayoutMode
	Point  domain.Point
}

type Repository interface {
	ListNodes(ctx context.Context, courseID string) ([]domain.CourseNode, error)
	FindNode(ctx context.Context, courseID, nodeID string) (*domain.CourseNode, error)
	CountNodes(ctx context.Context, courseID string, nodeIDs []string) (int64, error)
	CreateNode(ctx context.Context, node *domain.CourseNode) error
	SaveNode(ctx context.Context, node *domain.CourseNode) error
	DeleteNode(ctx context.Context, courseID, nodeID string) error
	SavePositions(ctx context.Context, courseID string, updates []PositionUpdate) (int, error)

	ListEdges(ctx context.Context, courseID string) ([]domain.CourseEdge, error)
	FindEdge(ctx context.Context, courseID, edgeID string) (*domain.CourseEdge, error)
	EdgeExists(ctx context.Context, courseID, sourceID, targetID string) (bool, error)
	CreateEdge(ctx context.Context, edge *domain.CourseEdge) error
	SaveEdge(ctx context.Context, edge *domain.CourseEdge) error
	DeleteEdge(ctx context.Context, courseID, edgeID string) error
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new course graph repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) ListNodes(ctx context.Context, courseID string) ([]domain.CourseNode, error) {
	var nodes []domain.CourseNode
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC, id ASC").
		Find(&nodes).Error
	return nodes, err
}

func (r *RepositoryImpl) FindNode(ctx context.Context, courseID, nodeID string) (*domain.CourseNode, error) {
	var node domain.CourseNode
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND id = ?", courseID, nodeID).
		First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// CountNodes counts how many of nodeIDs are nodes of the course
func (r *RepositoryImpl) CountNodes(ctx context.Context, courseID string, nodeIDs []string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.CourseNode{}).
		Where("course_id = ? AND id IN ?", courseID, nodeIDs).
		Count(&count).Error
	return count, err
}

func (r *RepositoryImpl) CreateNode(ctx context.Context, node *domain.CourseNode) error {
	return r.db.WithContext(ctx).Create(node).Error
}

func (r *RepositoryImpl) SaveNode(ctx context.Context, node *domain.CourseNode) error {
	return r.db.WithContext(ctx).Save(node).Error
}

// DeleteNode removes the node and every edge touching it in one transaction
func (r *RepositoryImpl) DeleteNode(ctx context.Context, courseID, nodeID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("course_id = ? AND (source_id = ? OR target_id = ?)", courseID, nodeID, nodeID).
			Delete(&domain.CourseEdge{}).Error; err != nil {
			return err
		}

		res := tx.Where("course_id = ? AND id = ?", courseID, nodeID).Delete(&domain.CourseNode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// SavePositions merges every update into its node's positions. Updates for the
// same node are folded into one write. Any unknown node rolls back the batch.
func (r *RepositoryImpl) SavePositions(ctx context.Context, courseID string, updates []PositionUpdate) (int, error) {
	order := make([]string, 0, len(updates))
	changes := make(map[string]map[domain.LayoutMode]domain.Point, len(updates))
	for _, u := range updates {
		if _, ok := changes[u.NodeID]; !ok {
			order = append(order, u.NodeID)
			changes[u.NodeID] = map[domain.LayoutMode]domain.Point{}
		}
		changes[u.NodeID][u.Layout] = u.Point
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, nodeID := range order {
			var node domain.CourseNode
			err := tx.Where("course_id = ? AND id = ?", courseID, nodeID).First(&node).Error
			if defError.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
			}
			if err != nil {
				return err
			}

			positions := node.Positions.Data()
			if !positions.Merge(changes[nodeID]) {
				return fmt.Errorf("unknown layout mode for node %s", nodeID)
			}

			if err := tx.Model(&node).Update("positions", datatypes.NewJSONType(positions)).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(order), nil
}

// ListEdges returns the course's edges in creation order, skipping edges whose
// endpoints are no longer nodes of the course.
func (r *RepositoryImpl) ListEdges(ctx context.Context, courseID string) ([]domain.CourseEdge, error) {
	var edges []domain.CourseEdge
	nodeIDs := r.db.Model(&domain.CourseNode{}).Select("id").Where("course_id = ?", courseID)
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("source_id IN (?) AND target_id IN (?)", nodeIDs, nodeIDs).
		Order("created_at ASC, id ASC").
		Find(&edges).Error
	return edges, err
}

func (r *RepositoryImpl) FindEdge(ctx context.Context, courseID, edgeID string) (*domain.CourseEdge, error) {
	var edge domain.CourseEdge
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND id = ?", courseID, edgeID).
		First(&edge).Error
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

func (r *RepositoryImpl) EdgeExists(ctx context.Context, courseID, sourceID, targetID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.CourseEdge{}).
		Where("course_id = ? AND source_id = ? AND target_id = ?", courseID, sourceID, targetID).
		Count(&count).Error
	return count > 0, err
}

func (r *RepositoryImpl) CreateEdge(ctx context.Context, edge *domain.CourseEdge) error {
	return r.db.WithContext(ctx).Create(edge).Error
}

func (r *RepositoryImpl) SaveEdge(ctx context.Context, edge *domain.CourseEdge) error {
	return r.db.WithContext(ctx).Save(edge).Error
}

func (r *RepositoryImpl) DeleteEdge(ctx context.Context, courseID, edgeID string) error {
	res := r.db.WithContext(ctx).
		Where("course_id = ? AND id = ?", courseID, edgeID).
		Delete(&domain.CourseEdge{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

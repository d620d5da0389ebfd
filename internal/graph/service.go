package graph

import (
	"bytes"
	"context"
	"encoding/json"
	defError "errors"

	"constructure/internal/access"
	"constructure/internal/domain"
	"constructure/internal/errors"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service interface {
	ListNodes(ctx context.Context, courseID, userID string) (*NodeList, error)
	CreateNode(ctx context.Context, courseID, userID string, req CreateNodeRequest) (*domain.CourseNode, error)
	UpdateNode(ctx context.Context, courseID, nodeID, userID string, req UpdateNodeRequest) (*domain.CourseNode, error)
	DeleteNode(ctx context.Context, courseID, nodeID, userID string) error
	SavePositions(ctx context.Context, courseID, userID string, req SavePositionsRequest) (int, error)

	ListEdges(ctx context.Context, courseID, userID string) ([]domain.CourseEdge, error)
	CreateEdge(ctx context.Context, courseID, userID string, req CreateEdgeRequest) (*domain.CourseEdge, error)
	UpdateEdge(ctx context.Context, courseID, edgeID, userID string, req UpdateEdgeRequest) (*domain.CourseEdge, error)
	DeleteEdge(ctx context.Context, courseID, edgeID, userID string) error
}

type Authorizer interface {
	Authorize(ctx context.Context, courseID, userID string, level access.Level) (*domain.Course, error)
}

// Invalidator drops cached course lists that mention a course
type Invalidator interface {
	InvalidateCourseLists(ctx context.Context, courseID string)
}

type DefaultService struct {
	repository  Repository
	guard       Authorizer
	invalidator Invalidator
	log         zerolog.Logger
}

func NewService(repository Repository, guard Authorizer, invalidator Invalidator, log zerolog.Logger) Service {
	return &DefaultService{
		repository:  repository,
		guard:       guard,
		invalidator: invalidator,
		log:         log.With().Str("component", "graph").Logger(),
	}
}

func (s *DefaultService) invalidate(ctx context.Context, courseID string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateCourseLists(ctx, courseID)
	}
}

func (s *DefaultService) ListNodes(ctx context.Context, courseID, userID string) (*NodeList, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Read); err != nil {
		return nil, err
	}

	nodes, err := s.repository.ListNodes(ctx, courseID)
	if err != nil {
		return nil, err
	}
	edges, err := s.repository.ListEdges(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ordered := Arrange(nodes, edges)
	if ordered.HadCycle {
		s.log.Debug().Str("course_id", courseID).Msg("course graph has a cycle, partial order returned")
	}
	return &NodeList{Nodes: ordered.Nodes, HadCycle: ordered.HadCycle}, nil
}

func (s *DefaultService) CreateNode(ctx context.Context, courseID, userID string, req CreateNodeRequest) (*domain.CourseNode, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return nil, err
	}

	var positions domain.Positions
	if req.Positions != nil {
		positions = *req.Positions
	}

	node := &domain.CourseNode{
		CourseID:  courseID,
		Type:      req.Type,
		Title:     req.Title,
		Content:   jsonOrEmpty(req.Content),
		Config:    jsonOrEmpty(req.Config),
		Positions: datatypes.NewJSONType(positions),
	}
	if err := s.repository.CreateNode(ctx, node); err != nil {
		return nil, err
	}

	s.invalidate(ctx, courseID)
	return node, nil
}

func (s *DefaultService) UpdateNode(ctx context.Context, courseID, nodeID, userID string, req UpdateNodeRequest) (*domain.CourseNode, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return nil, err
	}

	node, err := s.repository.FindNode(ctx, courseID, nodeID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Node not found", err)
		}
		return nil, err
	}

	if req.Type != nil {
		node.Type = *req.Type
	}
	if req.Title != nil {
		node.Title = *req.Title
	}
	if len(req.Content) > 0 {
		node.Content = jsonOrEmpty(req.Content)
	}
	if len(req.Config) > 0 {
		node.Config = jsonOrEmpty(req.Config)
	}
	if len(req.Positions) > 0 {
		positions := node.Positions.Data()
		if !positions.Merge(req.Positions) {
			return nil, errors.BadRequest("Unknown layout mode", nil)
		}
		node.Positions = datatypes.NewJSONType(positions)
	}

	if err := s.repository.SaveNode(ctx, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (s *DefaultService) DeleteNode(ctx context.Context, courseID, nodeID, userID string) error {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return err
	}

	if err := s.repository.DeleteNode(ctx, courseID, nodeID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Node not found", err)
		}
		return err
	}

	s.invalidate(ctx, courseID)
	return nil
}

func (s *DefaultService) SavePositions(ctx context.Context, courseID, userID string, req SavePositionsRequest) (int, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return 0, err
	}

	updates := make([]PositionUpdate, 0, len(req.Positions))
	for _, entry := range req.Positions {
		layout := entry.Layout
		if layout == "" {
			layout = req.Layout
		}
		if !layout.Valid() {
			return 0, errors.BadRequest("Layout is required for node "+entry.NodeID, nil)
		}
		updates = append(updates, PositionUpdate{
			NodeID: entry.NodeID,
			Layout: layout,
			Point:  domain.Point{X: *entry.X, Y: *entry.Y},
		})
	}

	updated, err := s.repository.SavePositions(ctx, courseID, updates)
	if err != nil {
		if defError.Is(err, ErrUnknownNode) {
			return 0, errors.BadRequest("Unknown node in positions", err)
		}
		return 0, err
	}
	return updated, nil
}

func (s *DefaultService) ListEdges(ctx context.Context, courseID, userID string) ([]domain.CourseEdge, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Read); err != nil {
		return nil, err
	}
	return s.repository.ListEdges(ctx, courseID)
}

func (s *DefaultService) CreateEdge(ctx context.Context, courseID, userID string, req CreateEdgeRequest) (*domain.CourseEdge, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return nil, err
	}

	endpoints := []string{req.SourceID}
	if req.TargetID != req.SourceID {
		endpoints = append(endpoints, req.TargetID)
	}
	count, err := s.repository.CountNodes(ctx, courseID, endpoints)
	if err != nil {
		return nil, err
	}
	if count != int64(len(endpoints)) {
		return nil, errors.BadRequest("Source and target must be nodes of this course", nil)
	}

	exists, err := s.repository.EdgeExists(ctx, courseID, req.SourceID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.Conflict("Edge already exists", nil)
	}

	edgeType := req.Type
	if edgeType == "" {
		edgeType = domain.EdgeSequence
	}
	edge := &domain.CourseEdge{
		CourseID:  courseID,
		SourceID:  req.SourceID,
		TargetID:  req.TargetID,
		Type:      edgeType,
		Label:     req.Label,
		Condition: jsonOrNull(req.Condition),
		Style:     jsonOrNull(req.Style),
	}
	if err := s.repository.CreateEdge(ctx, edge); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("Edge already exists", err)
		}
		return nil, err
	}
	return edge, nil
}

func (s *DefaultService) UpdateEdge(ctx context.Context, courseID, edgeID, userID string, req UpdateEdgeRequest) (*domain.CourseEdge, error) {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return nil, err
	}

	edge, err := s.repository.FindEdge(ctx, courseID, edgeID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Edge not found", err)
		}
		return nil, err
	}

	if req.Type != nil {
		edge.Type = *req.Type
	}
	if req.Label != nil {
		edge.Label = req.Label
	}
	if len(req.Condition) > 0 {
		edge.Condition = jsonOrNull(req.Condition)
	}
	if len(req.Style) > 0 {
		edge.Style = jsonOrNull(req.Style)
	}

	if err := s.repository.SaveEdge(ctx, edge); err != nil {
		return nil, err
	}
	return edge, nil
}

func (s *DefaultService) DeleteEdge(ctx context.Context, courseID, edgeID, userID string) error {
	if _, err := s.guard.Authorize(ctx, courseID, userID, access.Write); err != nil {
		return err
	}

	if err := s.repository.DeleteEdge(ctx, courseID, edgeID); err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Edge not found", err)
		}
		return err
	}
	return nil
}

var jsonNull = []byte("null")

// jsonOrEmpty stores absent or null payloads as an empty object
func jsonOrEmpty(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

// jsonOrNull stores absent or null payloads as SQL NULL
func jsonOrNull(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return nil
	}
	return datatypes.JSON(raw)
}

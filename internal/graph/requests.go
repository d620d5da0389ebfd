package graph

import (
	"encoding/json"

	"constructure/internal/domain"
)

type CreateNodeRequest struct {
	Type      domain.NodeType   `json:"type" binding:"required,oneof=LESSON TEST ASSIGNMENT VIDEO DOCUMENT INTERACTIVE CONDITION START END"`
	Title     string            `json:"title" binding:"required,min=1,max=255"`
	Content   json.RawMessage   `json:"content"`
	Config    json.RawMessage   `json:"config"`
	Positions *domain.Positions `json:"positions"`
}

// UpdateNodeRequest is a partial update. Positions are merged per layout mode.
type UpdateNodeRequest struct {
	Type      *domain.NodeType                   `json:"type" binding:"omitempty,oneof=LESSON TEST ASSIGNMENT VIDEO DOCUMENT INTERACTIVE CONDITION START END"`
	Title     *string                            `json:"title" binding:"omitempty,min=1,max=255"`
	Content   json.RawMessage                    `json:"content"`
	Config    json.RawMessage                    `json:"config"`
	Positions map[domain.LayoutMode]domain.Point `json:"positions"`
}

type PositionEntry struct {
	NodeID string            `json:"nodeId" binding:"required,uuid"`
	Layout domain.LayoutMode `json:"layout" binding:"omitempty,oneof=tree lego mindmap flowchart"`
	X      *float64          `json:"x" binding:"required"`
	Y      *float64          `json:"y" binding:"required"`
}

// SavePositionsRequest accepts a per-entry layout or one layout for the whole batch
type SavePositionsRequest struct {
	Layout    domain.LayoutMode `json:"layout" binding:"omitempty,oneof=tree lego mindmap flowchart"`
	Positions []PositionEntry   `json:"positions" binding:"required,min=1,max=1000,dive"`
}

type CreateEdgeRequest struct {
	SourceID  string          `json:"sourceId" binding:"required,uuid"`
	TargetID  string          `json:"targetId" binding:"required,uuid"`
	Type      domain.EdgeType `json:"type" binding:"omitempty,oneof=SEQUENCE CONDITION REFERENCE"`
	Label     *string         `json:"label" binding:"omitempty,max=255"`
	Condition json.RawMessage `json:"condition"`
	Style     json.RawMessage `json:"style"`
}

type UpdateEdgeRequest struct {
	Type      *domain.EdgeType `json:"type" binding:"omitempty,oneof=SEQUENCE CONDITION REFERENCE"`
	Label     *string          `json:"label" binding:"omitempty,max=255"`
	Condition json.RawMessage  `json:"condition"`
	Style     json.RawMessage  `json:"style"`
}

type NodeList struct {
	Nodes    []domain.CourseNode `json:"nodes"`
	HadCycle bool                `json:"hadCycle"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type NodeType string

const (
	NodeLesson      NodeType = "LESSON"
	NodeTest        NodeType = "TEST"
	NodeAssignment  NodeType = "ASSIGNMENT"
	NodeVideo       NodeType = "VIDEO"
	NodeDocument    NodeType = "DOCUMENT"
	NodeInteractive NodeType = "INTERACTIVE"
	NodeCondition   NodeType = "CONDITION"
	NodeStart       NodeType = "START"
	NodeEnd         NodeType = "END"
)

type EdgeType string

const (
	EdgeSequence  EdgeType = "SEQUENCE"
	EdgeCondition EdgeType = "CONDITION"
	EdgeReference EdgeType = "REFERENCE"
)

// Role is a collaborator's access level on a course. The empty role means
// the user is not a collaborator.
type Role string

const (
	RoleNone      Role = ""
	RoleOwner     Role = "OWNER"
	RoleEditor    Role = "EDITOR"
	RoleCommenter Role = "COMMENTER"
	RoleViewer    Role = "VIEWER"
)

// Course is a user-owned graph of nodes and edges
type Course struct {
	ID            string               `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string               `gorm:"not null" json:"title"`
	Description   *string              `json:"description"`
	Thumbnail     *string              `json:"thumbnail"`
	IsPublic      bool                 `gorm:"not null" json:"isPublic"`
	IsTemplate    bool                 `gorm:"not null" json:"isTemplate"`
	AuthorID      string               `gorm:"type:uuid;not null;index" json:"authorId"`
	Author        *User                `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Nodes         []CourseNode         `json:"nodes,omitempty"`
	Edges         []CourseEdge         `json:"edges,omitempty"`
	Collaborators []CourseCollaborator `json:"collaborators,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CourseNode is a single content unit of a course
type CourseNode struct {
	ID        string                        `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string                        `gorm:"type:uuid;not null;index" json:"courseId"`
	Type      NodeType                      `gorm:"type:varchar(32);not null" json:"type"`
	Title     string                        `gorm:"not null" json:"title"`
	Content   datatypes.JSON                `json:"content"`
	Positions datatypes.JSONType[Positions] `gorm:"not null" json:"positions"`
	Config    datatypes.JSON                `json:"config"`
	CreatedAt time.Time                     `json:"createdAt"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}

func (n *CourseNode) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// CourseEdge is a directed relationship between two nodes of the same course.
// A course holds at most one edge per (source, target) pair.
type CourseEdge struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string         `gorm:"type:uuid;not null;uniqueIndex:idx_course_edge_pair,priority:1" json:"courseId"`
	SourceID  string         `gorm:"type:uuid;not null;uniqueIndex:idx_course_edge_pair,priority:2" json:"sourceId"`
	TargetID  string         `gorm:"type:uuid;not null;uniqueIndex:idx_course_edge_pair,priority:3" json:"targetId"`
	Type      EdgeType       `gorm:"type:varchar(32);not null" json:"type"`
	Label     *string        `json:"label"`
	Condition datatypes.JSON `json:"condition"`
	Style     datatypes.JSON `json:"style"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (e *CourseEdge) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// CourseCollaborator grants a non-author user a role on a course
type CourseCollaborator struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_course_collaborator,priority:1" json:"courseId"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_course_collaborator,priority:2" json:"userId"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      Role      `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c *CourseCollaborator) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

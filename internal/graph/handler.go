package graph

import (
	"net/http"

	"constructure/internal/errors"
	"constructure/internal/middleware"
	"constructure/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListNodes(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	list, err := h.service.ListNodes(c.Request.Context(), courseID, middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, list)
}

func (h *Handler) CreateNode(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	var req CreateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	node, err := h.service.CreateNode(c.Request.Context(), courseID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"node": node})
}

func (h *Handler) UpdateNode(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}
	nodeID, err := utils.ParseID(c, "nodeId", "Node")
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	node, err := h.service.UpdateNode(c.Request.Context(), courseID, nodeID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"node": node})
}

func (h *Handler) DeleteNode(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}
	nodeID, err := utils.ParseID(c, "nodeId", "Node")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteNode(c.Request.Context(), courseID, nodeID, middleware.UserID(c)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) SavePositions(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	var req SavePositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	updated, err := h.service.SavePositions(c.Request.Context(), courseID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *Handler) ListEdges(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	edges, err := h.service.ListEdges(c.Request.Context(), courseID, middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"edges": edges})
}

func (h *Handler) CreateEdge(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	var req CreateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	edge, err := h.service.CreateEdge(c.Request.Context(), courseID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"edge": edge})
}

func (h *Handler) UpdateEdge(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}
	edgeID, err := utils.ParseID(c, "edgeId", "Edge")
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	edge, err := h.service.UpdateEdge(c.Request.Context(), courseID, edgeID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"edge": edge})
}

func (h *Handler) DeleteEdge(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}
	edgeID, err := utils.ParseID(c, "edgeId", "Edge")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteEdge(c.Request.Context(), courseID, edgeID, middleware.UserID(c)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes mounts the graph endpoints on a course group (/courses/:id)
func (h *Handler) RegisterRoutes(course *gin.RouterGroup) {
	course.GET("/nodes", h.ListNodes)
	course.POST("/nodes", h.CreateNode)
	course.PUT("/nodes/positions", h.SavePositions)
	course.PUT("/nodes/:nodeId", h.UpdateNode)
	course.DELETE("/nodes/:nodeId", h.DeleteNode)

	course.GET("/edges", h.ListEdges)
	course.POST("/edges", h.CreateEdge)
	course.PUT("/edges/:edgeId", h.UpdateEdge)
	course.DELETE("/edges/:edgeId", h.DeleteEdge)
}

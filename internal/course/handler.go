package course

import (
	"net/http"

	"constructure/internal/domain"
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

type CreateCourseRequest struct {
	Title       string  `json:"title" binding:"required,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Thumbnail   *string `json:"thumbnail" binding:"omitempty,url"`
	IsPublic    bool    `json:"isPublic"`
	IsTemplate  bool    `json:"isTemplate"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
	Thumbnail   *string `json:"thumbnail" binding:"omitempty,url"`
	IsPublic    *bool   `json:"isPublic"`
	IsTemplate  *bool   `json:"isTemplate"`
}

type AddCollaboratorRequest struct {
	UserID string      `json:"userId" binding:"required,uuid"`
	Role   domain.Role `json:"role" binding:"required,oneof=OWNER EDITOR COMMENTER VIEWER"`
}

type ChangeCollaboratorRoleRequest struct {
	Role domain.Role `json:"role" binding:"required,oneof=OWNER EDITOR COMMENTER VIEWER"`
}

func (h *Handler) List(c *gin.Context) {
	page, limit := utils.GetPaginationParams(c)
	filter := ListFilter{
		Search:     c.Query("search"),
		IsPublic:   utils.OptionalBool(c, "isPublic"),
		IsTemplate: utils.OptionalBool(c, "isTemplate"),
		Page:       page,
		Limit:      limit,
	}

	result, err := h.service.ListCourses(c.Request.Context(), middleware.UserID(c), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Show(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	course, err := h.service.GetCourse(c.Request.Context(), courseID, middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	course, err := h.service.CreateCourse(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *Handler) Update(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	var req UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	course, err := h.service.UpdateCourse(c.Request.Context(), courseID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *Handler) Delete(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.DeleteCourse(c.Request.Context(), courseID, middleware.UserID(c)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Duplicate(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	course, err := h.service.DuplicateCourse(c.Request.Context(), courseID, middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *Handler) ListCollaborators(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	collaborators, err := h.service.ListCollaborators(c.Request.Context(), courseID, middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"collaborators": collaborators})
}

func (h *Handler) AddCollaborator(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}

	var req AddCollaboratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	collaborator, err := h.service.AddCollaborator(c.Request.Context(), courseID, middleware.UserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"collaborator": collaborator})
}

func (h *Handler) ChangeCollaboratorRole(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}
	targetUserID, err := utils.ParseID(c, "userId", "Collaborator")
	if err != nil {
		c.Error(err)
		return
	}

	var req ChangeCollaboratorRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	collaborator, err := h.service.ChangeCollaboratorRole(c.Request.Context(), courseID, middleware.UserID(c), targetUserID, req.Role)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"collaborator": collaborator})
}

func (h *Handler) RemoveCollaborator(c *gin.Context) {
	courseID, err := utils.ParseID(c, "id", "Course")
	if err != nil {
		c.Error(err)
		return
	}
	targetUserID, err := utils.ParseID(c, "userId", "Collaborator")
	if err != nil {
		c.Error(err)
		return
	}

	if err := h.service.RemoveCollaborator(c.Request.Context(), courseID, middleware.UserID(c), targetUserID); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterRoutes mounts the course endpoints; the returned group is /courses/:id
func (h *Handler) RegisterRoutes(courses *gin.RouterGroup) *gin.RouterGroup {
	courses.GET("", h.List)
	courses.POST("", h.Create)

	course := courses.Group("/:id")
	course.GET("", h.Show)
	course.PUT("", h.Update)
	course.DELETE("", h.Delete)
	course.POST("/duplicate", h.Duplicate)

	course.GET("/collaborators", h.ListCollaborators)
	course.POST("/collaborators", h.AddCollaborator)
	course.PUT("/collaborators/:userId", h.ChangeCollaboratorRole)
	course.DELETE("/collaborators/:userId", h.RemoveCollaborator)
	return course
}

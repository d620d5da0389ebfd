package user

import (
	"net/http"
	"time"

	"constructure/internal/errors"
	"constructure/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const refreshCookie = "refresh_token"

// Handler handles HTTP requests for users
type Handler struct {
	service      Service
	secureCookie bool
	cookieMaxAge int
	log          zerolog.Logger
}

// NewHandler creates a new user handler. The refresh cookie lives as long as
// the refresh token and is marked Secure when secureCookie is set.
func NewHandler(service Service, refreshTTL time.Duration, secureCookie bool, log zerolog.Logger) *Handler {
	return &Handler{
		service:      service,
		secureCookie: secureCookie,
		cookieMaxAge: int(refreshTTL.Seconds()),
		log:          log,
	}
}

// LoginRequest represents login form data
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest represents registration form data
type RegisterRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	Username  string  `json:"username" binding:"required,min=3,max=50"`
	FirstName *string `json:"firstName" binding:"omitempty,max=100"`
	LastName  *string `json:"lastName" binding:"omitempty,max=100"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, token, maxAge, "/", "", h.secureCookie, true)
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.cookieMaxAge)
	c.JSON(http.StatusCreated, result)
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, h.cookieMaxAge)
	c.JSON(http.StatusOK, result)
}

// Refresh accepts the refresh token from the body, falling back to the cookie
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewValidationError(err))
			return
		}
	}
	if req.RefreshToken == "" {
		if cookie, err := c.Cookie(refreshCookie); err == nil {
			req.RefreshToken = cookie
		}
	}
	if req.RefreshToken == "" {
		c.Error(errors.Unauthorized("Refresh token required", nil))
		return
	}

	accessToken, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

// Logout revokes all of the caller's tokens
func (h *Handler) Logout(c *gin.Context) {
	userID := middleware.UserID(c)

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("token version bump failed")
	}

	// Clear refresh cookie
	h.setRefreshCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

// Me returns the current user's profile
func (h *Handler) Me(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(errors.NotFound("User not found", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user.ToSafeUser()})
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.service.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": users})
}

// RegisterRoutes mounts the public auth endpoints on auth and the
// authenticated ones behind requireAuth.
func (h *Handler) RegisterRoutes(authGroup, users *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/refresh", h.Refresh)
	authGroup.POST("/logout", requireAuth, h.Logout)
	authGroup.GET("/me", requireAuth, h.Me)

	users.Use(requireAuth)
	users.GET("", h.SearchUsers)
}

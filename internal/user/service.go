package user

import (
	"context"
	defError "errors"
	"net/url"
	"strings"

	"constructure/internal/auth"
	"constructure/internal/domain"
	"constructure/internal/errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Service defines the interface for user business logic
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID string) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error)
}

// AuthResult is returned by register and login
type AuthResult struct {
	User         domain.SafeUser `json:"user"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
}

// DefaultService implements Service
type DefaultService struct {
	repository UserRepository
	tokens     *auth.TokenManager
	log        zerolog.Logger
}

// NewService creates a new user service
func NewService(repository UserRepository, tokens *auth.TokenManager, log zerolog.Logger) *DefaultService {
	return &DefaultService{
		repository: repository,
		tokens:     tokens,
		log:        log.With().Str("component", "user").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func defaultAvatar(firstName, lastName *string) string {
	first, last := "U", "ser"
	if firstName != nil && *firstName != "" {
		first = *firstName
	}
	if lastName != nil && *lastName != "" {
		last = *lastName
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(first) + "+" + url.QueryEscape(last) +
		"&background=6366f1&color=fff"
}

func (s *DefaultService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := normalizeEmail(req.Email)

	// Check if user with email already exists
	_, err := s.repository.FindByEmail(ctx, email)
	if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		return nil, errors.Conflict("User with this email already exists", nil)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	avatar := defaultAvatar(req.FirstName, req.LastName)
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Avatar:       &avatar,
		IsActive:     true,
	}
	if err := s.repository.Create(ctx, user); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.Conflict("User with this email already exists", err)
		}
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.issue(user)
}

func (s *DefaultService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.repository.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Unauthorized("Invalid credentials", err)
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, errors.Unauthorized("Account is disabled", nil)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, errors.Unauthorized("Invalid credentials", nil)
	}

	return s.issue(user)
}

func (s *DefaultService) issue(user *domain.User) (*AuthResult, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.TokenVersion)
	if err != nil {
		return nil, errors.Internal(err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, user.TokenVersion)
	if err != nil {
		return nil, errors.Internal(err)
	}

	return &AuthResult{
		User:         user.ToSafeUser(),
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token
func (s *DefaultService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired refresh token", err)
	}

	user, err := s.repository.FindByID(ctx, claims.UserID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.Unauthorized("User not found", err)
		}
		return "", err
	}

	if !user.IsActive {
		return "", errors.Unauthorized("Account is disabled", nil)
	}

	// Check token version
	if user.TokenVersion != claims.TokenVersion {
		return "", errors.Unauthorized("Refresh token has been revoked", nil)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.TokenVersion)
	if err != nil {
		return "", errors.Internal(err)
	}
	return accessToken, nil
}

func (s *DefaultService) Logout(ctx context.Context, userID string) error {
	return s.repository.IncreaseTokenVersion(ctx, userID)
}

func (s *DefaultService) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *DefaultService) SearchUsers(ctx context.Context, query string) ([]domain.SafeUser, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SafeUser{}, nil
	}

	users, err := s.repository.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	result := make([]domain.SafeUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToSafeUser())
	}
	return result, nil
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("token invalid")
	ErrWrongKind    = errors.New("token kind mismatch")
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// Claims is the payload carried by both access and refresh tokens
type Claims struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email,omitempty"`
	TokenVersion int    `json:"token_version"`
	Kind         string `json:"kind"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens. Access and refresh tokens use
// separate secrets so one can never be replayed as the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (m *TokenManager) GenerateAccessToken(userID, email string, tokenVersion int) (string, error) {
	return m.sign(m.accessSecret, m.accessTTL, Claims{
		UserID:       userID,
		Email:        email,
		TokenVersion: tokenVersion,
		Kind:         kindAccess,
	})
}

func (m *TokenManager) GenerateRefreshToken(userID string, tokenVersion int) (string, error) {
	return m.sign(m.refreshSecret, m.refreshTTL, Claims{
		UserID:       userID,
		TokenVersion: tokenVersion,
		Kind:         kindRefresh,
	})
}

func (m *TokenManager) VerifyAccessToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.accessSecret, kindAccess)
}

func (m *TokenManager) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.refreshSecret, kindRefresh)
}

func (m *TokenManager) sign(secret []byte, ttl time.Duration, claims Claims) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *TokenManager) verify(tokenString string, secret []byte, kind string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, ErrWrongKind
	}

	return claims, nil
}

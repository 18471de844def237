package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/docuvault-io/docuvault-api/internal/models"
	"github.com/docuvault-io/docuvault-api/pkg/config"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
)

// TokenService signs and verifies access and refresh tokens. The two kinds
// use independent secrets so an access-token compromise cannot forge refresh
// tokens. The service is stateless; revocation lives in the session store.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewTokenService validates the signing configuration and returns a codec.
// A missing secret is a startup-fatal configuration error, never a
// per-request condition.
func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" {
		return nil, fmt.Errorf("access token secret is not configured")
	}
	if cfg.RefreshSecret == "" {
		return nil, fmt.Errorf("refresh token secret is not configured")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
	}, nil
}

// AccessTTL exposes the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL exposes the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// IssueAccess signs a short-lived stateless access token.
func (s *TokenService) IssueAccess(userID string, role models.UserRole) (string, error) {
	return s.sign(s.accessSecret, s.accessTTL, userID, role, "")
}

// IssueRefresh signs a long-lived refresh token bound to a session id.
func (s *TokenService) IssueRefresh(userID string, role models.UserRole, sessionID string) (string, error) {
	return s.sign(s.refreshSecret, s.refreshTTL, userID, role, sessionID)
}

// VerifyAccess validates an access token and returns its claims.
func (s *TokenService) VerifyAccess(token string) (*models.TokenClaims, error) {
	return s.verify(s.accessSecret, token)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (s *TokenService) VerifyRefresh(token string) (*models.TokenClaims, error) {
	return s.verify(s.refreshSecret, token)
}

func (s *TokenService) sign(secret []byte, ttl time.Duration, userID string, role models.UserRole, sessionID string) (string, error) {
	now := time.Now().UTC()
	claims := &models.TokenClaims{
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *TokenService) verify(secret []byte, tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidToken.Code, appErrors.ErrInvalidToken.Status, appErrors.ErrInvalidToken.Message)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}
	if claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidToken, "")
	}

	return claims, nil
}

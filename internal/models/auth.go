package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// RegisterRequest holds the payload for creating an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is an issued access/refresh credential pair. The refresh token
// is bound to exactly one server-side session; using it rotates that session.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"-"`
}

// AuthResult returns the account and its freshly issued tokens.
type AuthResult struct {
	User   UserInfo  `json:"user"`
	Tokens TokenPair `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  *string  `json:"name"`
	Role  UserRole `json:"role"`
}

// Info projects the public view of a user.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// TokenClaims is the signed payload carried by both token kinds. SessionID
// is only set on refresh tokens; access tokens are stateless.
type TokenClaims struct {
	Role      UserRole `json:"role"`
	SessionID string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

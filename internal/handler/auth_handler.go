package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuvault-io/docuvault-api/internal/middleware"
	"github.com/docuvault-io/docuvault-api/internal/models"
	"github.com/docuvault-io/docuvault-api/internal/service"
	appErrors "github.com/docuvault-io/docuvault-api/pkg/errors"
	"github.com/docuvault-io/docuvault-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service. Tokens travel in
// httpOnly cookies; response bodies carry only the user projection.
type AuthHandler struct {
	service *service.AuthService
	cookies CookieWriter
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, cookies CookieWriter) *AuthHandler {
	return &AuthHandler{service: svc, cookies: cookies}
}

// Register godoc
// @Summary Create account
// @Description Register a new account and sign in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	// Registration signs the account in immediately.
	res, err := h.service.Login(c.Request.Context(), models.LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		// The account exists; report creation and let the client log in.
		response.Created(c, gin.H{"user": user.Info()})
		return
	}

	h.cookies.SetAuthCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate
// @Description Authenticate by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.cookies.SetAuthCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	response.JSON(c, http.StatusOK, res, nil)
}

// Refresh godoc
// @Summary Refresh tokens
// @Description Rotate the refresh session and issue a fresh token pair
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := h.refreshToken(c)
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing refresh token"))
		return
	}

	res, err := h.service.Refresh(c.Request.Context(), token)
	if err != nil {
		// A rejected refresh means the cookies are useless; drop them.
		h.cookies.ClearAuthCookies(c)
		response.Error(c, err)
		return
	}

	h.cookies.SetAuthCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	response.JSON(c, http.StatusOK, res, nil)
}

// Logout godoc
// @Summary Logout
// @Description Revoke the current session and clear cookies
// @Tags Authentication
// @Produce json
// @Success 204 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if token := h.refreshToken(c); token != "" {
		h.service.Logout(c.Request.Context(), token)
	}
	h.cookies.ClearAuthCookies(c)
	response.NoContent(c)
}

// Me godoc
// @Summary Get current user
// @Description Returns the authenticated user's profile
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"user": user.Info()}, nil)
}

// refreshToken reads the refresh credential from its cookie, falling back
// to a JSON body for non-browser clients.
func (h *AuthHandler) refreshToken(c *gin.Context) string {
	if cookie, err := c.Cookie(RefreshCookieName); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}
	var payload struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.RefreshToken)
}

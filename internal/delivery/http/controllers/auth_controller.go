package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"townhall/internal/delivery/http/helpers"
	"townhall/internal/delivery/http/middleware"
	"townhall/internal/domain"
)

// CaptchaVerifier checks a bot challenge response. turnstile.Verifier implements it.
type CaptchaVerifier interface {
	Verify(ctx context.Context, response, remoteIP string) error
}

// RequestLoginRequest is the request body for POST /login.
type RequestLoginRequest struct {
	Email    string `json:"email" validate:"required,mailbox"`
	Response string `json:"cf-turnstile-response"`
}

// RegisterRequest is the request body for POST /register.
type RegisterRequest struct {
	Token     string `json:"token" validate:"required"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// RegistrationInfo is returned by GET /register.
type RegistrationInfo struct {
	Email string `json:"email"`
}

// AuthController handles passwordless login, registration and logout.
type AuthController struct {
	Logger   *slog.Logger
	Service  domain.AuthService
	Sessions *middleware.SessionManager
	Captcha  CaptchaVerifier
}

// NewAuthController creates an AuthController. captcha may be nil.
func NewAuthController(logger *slog.Logger, svc domain.AuthService, sessions *middleware.SessionManager, captcha CaptchaVerifier) *AuthController {
	return &AuthController{
		Logger:   logger,
		Service:  svc,
		Sessions: sessions,
		Captcha:  captcha,
	}
}

// RequestLogin godoc
// @Summary Request a login link
// @Description Mails a one-time link to the address. Existing members get a login link, new addresses a registration link.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RequestLoginRequest true "Email address and optional Turnstile response"
// @Success 200 {object} helpers.APIResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 429 {object} helpers.APIResponse "error.code: too_many_requests"
// @Router /login [post]
func (c *AuthController) RequestLogin(w http.ResponseWriter, r *http.Request) {
	var req RequestLoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if c.Captcha != nil {
		if err := c.Captcha.Verify(r.Context(), req.Response, remoteIP(r)); err != nil {
			helpers.WriteServiceError(w, r, c.Logger, err)
			return
		}
	}
	if err := c.Service.RequestLogin(r.Context(), req.Email); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "sent"})
}

// Login godoc
// @Summary Exchange a login link for a session
// @Description Sets the session cookie and redirects home. Unknown addresses are redirected to registration.
// @Tags auth
// @Param token query string true "Login token"
// @Success 302
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /login [get]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	sessionToken, _, err := c.Service.Login(r.Context(), token)
	if errors.Is(err, domain.ErrUserNotFound) {
		helpers.Redirect(w, r, "/register?token="+url.QueryEscape(token))
		return
	}
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	c.startSession(w, r, sessionToken)
}

// RegistrationInfo godoc
// @Summary Show the address a registration link was sent to
// @Tags auth
// @Produce json
// @Param token query string true "Login token"
// @Success 200 {object} helpers.APIResponse "data contains email"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /register [get]
func (c *AuthController) RegistrationInfo(w http.ResponseWriter, r *http.Request) {
	email, err := c.Service.RegistrationEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RegistrationInfo{Email: email})
}

// Register godoc
// @Summary Create an account from a registration link
// @Tags auth
// @Accept json
// @Param body body RegisterRequest true "Token and name"
// @Success 302
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	sessionToken, _, err := c.Service.Register(r.Context(), req.Token, req.FirstName, req.LastName)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	c.startSession(w, r, sessionToken)
}

// Logout godoc
// @Summary Log out
// @Tags auth
// @Success 302
// @Router /logout [post]
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if token := c.Sessions.Token(r); token != "" {
		if err := c.Service.Logout(r.Context(), token); err != nil {
			helpers.InternalError(w, r, c.Logger, err)
			return
		}
	}
	if err := c.Sessions.Clear(w, r); err != nil {
		helpers.InternalError(w, r, c.Logger, err)
		return
	}
	helpers.Redirect(w, r, "/")
}

func (c *AuthController) startSession(w http.ResponseWriter, r *http.Request, sessionToken string) {
	if err := c.Sessions.Save(w, r, sessionToken); err != nil {
		helpers.InternalError(w, r, c.Logger, err)
		return
	}
	helpers.Redirect(w, r, "/")
}

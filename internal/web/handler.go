// Package web serves the portal's HTML views: login, register and the
// session-gated home page.
package web

import (
	"context"
	"errors"
	"net/http"

	"auth_portal/internal/auth"
	"auth_portal/internal/common"
	"auth_portal/internal/config"
	"auth_portal/internal/jobs"
	"auth_portal/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// SessionService is the session store as seen by the views.
type SessionService interface {
	IsLoggedIn() bool
	Subject() string
	Login(ctx context.Context, username, password string) error
	Register(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
}

// UserFetcher loads the authenticated user's claims from the backend.
type UserFetcher interface {
	CurrentUser(ctx context.Context) (*auth.CurrentUser, error)
}

// BackendStatus exposes the last backend health check.
type BackendStatus interface {
	Last() (jobs.ProbeResult, bool)
}

// Handler struct holds dependencies for the view handlers.
type Handler struct {
	sessions SessionService
	users    UserFetcher
	status   BackendStatus
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandler creates a new view handler.
func NewHandler(sessions SessionService, users UserFetcher, status BackendStatus, cfg *config.Config, logger *zap.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		users:    users,
		status:   status,
		cfg:      cfg,
		logger:   logger.Named("WebHandler"),
	}
}

// page is the data every template renders from.
type page struct {
	Title          string
	Backend        *jobs.ProbeResult
	RedirectAfter  int
	RedirectTo     string
	ErrorMessage   string
	SuccessMessage string
	Username       string
	RedirectURL    string
	FieldErrors    map[string]string
	UserName       string
	Roles          []string
}

// Throttle wraps a route with a rate limit; reject renders the refusal.
type Throttle func(reject gin.HandlerFunc) gin.HandlerFunc

// RegisterRoutes sets up the view routes. guard protects the session-gated views;
// throttle limits credential submissions.
func (h *Handler) RegisterRoutes(router gin.IRouter, guard gin.HandlerFunc, throttle Throttle) {
	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, h.cfg.LoginRoute)
	})
	router.GET("/login", h.showLogin)
	router.POST("/login", throttle(h.throttled("Login", "login.html")), h.login)
	router.GET("/register", h.showRegister)
	router.POST("/register", throttle(h.throttled("Register", "register.html")), h.register)
	router.GET("/home", guard, h.home)
	router.POST("/logout", guard, h.logout)
}

// RegisterAPIRoutes sets up the JSON session endpoints.
func (h *Handler) RegisterAPIRoutes(router *gin.RouterGroup) {
	router.GET("/session", h.sessionStatus)
	router.GET("/session/user", h.sessionUser)
}

func (h *Handler) newPage(title string) page {
	p := page{Title: title, FieldErrors: map[string]string{}}
	if h.status != nil {
		if last, ok := h.status.Last(); ok {
			p.Backend = &last
		}
	}
	return p
}

func (h *Handler) showLogin(c *gin.Context) {
	p := h.newPage("Login")
	p.RedirectURL = c.Query(common.RedirectURLParam)
	c.HTML(http.StatusOK, "login.html", p)
}

func (h *Handler) login(c *gin.Context) {
	var form LoginForm
	p := h.newPage("Login")
	if err := c.ShouldBind(&form); err != nil {
		p.Username, p.RedirectURL = form.Username, form.RedirectURL
		h.renderBindError(c, "login.html", p, err)
		return
	}
	p.Username, p.RedirectURL = form.Username, form.RedirectURL

	if err := h.sessions.Login(c.Request.Context(), form.Username, form.Password); err != nil {
		p.ErrorMessage = auth.LoginErrorMessage(err)
		c.HTML(statusFor(err, http.StatusUnauthorized), "login.html", p)
		return
	}
	// redirectUrl is carried but not honoured: login always lands on home.
	c.Redirect(http.StatusSeeOther, h.cfg.HomeRoute)
}

func (h *Handler) showRegister(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", h.newPage("Register"))
}

func (h *Handler) register(c *gin.Context) {
	var form RegisterForm
	p := h.newPage("Register")
	if err := c.ShouldBind(&form); err != nil {
		p.Username = form.Username
		h.renderBindError(c, "register.html", p, err)
		return
	}
	p.Username = form.Username

	if err := h.sessions.Register(c.Request.Context(), form.Username, form.Password); err != nil {
		p.ErrorMessage = auth.RegisterErrorMessage(err)
		c.HTML(statusFor(err, http.StatusBadGateway), "register.html", p)
		return
	}

	p.SuccessMessage = "Registration successful! Redirecting to login..."
	p.RedirectAfter = int(h.cfg.RegisterRedirectDelay.Seconds())
	p.RedirectTo = h.cfg.LoginRoute
	c.HTML(http.StatusOK, "register.html", p)
}

func (h *Handler) home(c *gin.Context) {
	p := h.newPage("Home")
	p.UserName = "User"
	if sub := h.sessions.Subject(); sub != "" {
		p.UserName = sub
	}

	me, err := h.users.CurrentUser(c.Request.Context())
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		h.redirectToLogin(c)
		return
	case err != nil:
		h.logger.Warn("Could not load current user", zap.Error(err))
	default:
		if me.Subject != "" {
			p.UserName = me.Subject
		}
		p.Roles = me.Roles
	}
	c.HTML(http.StatusOK, "home.html", p)
}

func (h *Handler) logout(c *gin.Context) {
	err := h.sessions.Logout(c.Request.Context())
	if err == nil || errors.Is(err, auth.ErrSessionExpired) {
		c.Redirect(http.StatusSeeOther, h.cfg.LoginRoute)
		return
	}
	h.logger.Error("Logout failed", zap.Error(err))
	p := h.newPage("Home")
	p.UserName = "User"
	if sub := h.sessions.Subject(); sub != "" {
		p.UserName = sub
	}
	p.ErrorMessage = "Logout failed. Please try again."
	c.HTML(statusFor(err, http.StatusBadGateway), "home.html", p)
}

func (h *Handler) sessionStatus(c *gin.Context) {
	common.RespondOK(c, "", gin.H{
		"logged_in": h.sessions.IsLoggedIn(),
		"subject":   h.sessions.Subject(),
	})
}

// sessionUser returns the backend's view of the current user as JSON.
func (h *Handler) sessionUser(c *gin.Context) {
	if !h.sessions.IsLoggedIn() {
		c.Error(common.ErrUnauthorized)
		return
	}
	me, err := h.users.CurrentUser(c.Request.Context())
	switch {
	case errors.Is(err, auth.ErrSessionExpired):
		c.Error(common.ErrUnauthorized.WithDetails("The session expired. Please log in again."))
		return
	case auth.StatusCode(err) == http.StatusUnauthorized:
		c.Error(common.ErrUnauthorized)
		return
	case err != nil:
		h.logger.Warn("Could not load current user", zap.Error(err))
		c.Error(common.ErrBadGateway.WithDetails(err.Error()))
		return
	}
	common.RespondOK(c, "", me)
}

// throttled renders view with the rate-limit message, keeping what the user typed.
func (h *Handler) throttled(title, view string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := h.newPage(title)
		p.Username = c.PostForm("username")
		p.RedirectURL = c.PostForm(common.RedirectURLParam)
		p.ErrorMessage = common.ErrTooManyRequests.Message
		c.HTML(http.StatusTooManyRequests, view, p)
	}
}

// redirectToLogin sends the user to login after the session was cleared.
func (h *Handler) redirectToLogin(c *gin.Context) {
	_, target := middleware.CheckNavigation(false, c.Request.URL.RequestURI(), h.cfg.LoginRoute)
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) renderBindError(c *gin.Context, name string, p page, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		p.FieldErrors = common.FormatValidationErrors(ve)
	} else {
		p.ErrorMessage = "The form could not be read."
	}
	c.HTML(http.StatusUnprocessableEntity, name, p)
}

// statusFor propagates a backend 4xx to the rendered page and maps anything
// else to fallback.
func statusFor(err error, fallback int) int {
	if code := auth.StatusCode(err); code >= 400 && code < 500 {
		return code
	}
	return fallback
}

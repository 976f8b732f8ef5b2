// Package httpapi exposes projects, invitations, events and calendar feeds
// over HTTP using gin.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pwcal/internal/calendar"
	"pwcal/internal/collab"
	"pwcal/internal/event"
	"pwcal/internal/invitation"
	"pwcal/internal/store"
)

// DefaultRedirectBase is where invitation links land when none is configured.
const DefaultRedirectBase = "/#/projects"

// Handler serves the JSON API. Every JSON response uses the envelope
// {"success": bool, "message": string, "data": any}.
type Handler struct {
	Collab   *collab.Coordinator
	Events   *event.Engine
	Calendar *calendar.Exporter

	// RedirectBase receives ?invitation=accepted|rejected|failed|error.
	RedirectBase string
	// Location is the local zone used to normalize all-day input.
	Location *time.Location
	Logger   *slog.Logger
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, envelope{Success: false, Message: msg})
}

// failErr maps domain errors to HTTP statuses. Unexpected errors are logged
// and reported with msg only.
func (h *Handler) failErr(c *gin.Context, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger().ErrorContext(c.Request.Context(), msg, "path", c.FullPath(), "error", err)
		fail(c, status, msg)
		return
	}
	fail(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, invitation.ErrAlreadyCollaborator),
		errors.Is(err, invitation.ErrAlreadyInvited),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, invitation.ErrInvalidEmail),
		errors.Is(err, event.ErrInvalidEvent),
		errors.Is(err, event.ErrInvalidTimeRange),
		errors.Is(err, collab.ErrInvalidProject):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) location() *time.Location {
	if h.Location == nil {
		return time.UTC
	}
	return h.Location
}

// NewRouter builds the gin engine with every route registered under /api.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger()), cors())
	h.Register(r.Group("/api"))
	r.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "route not found")
	})
	return r
}

// Register adds the API routes to api.
func (h *Handler) Register(api gin.IRouter) {
	api.POST("/projects", h.CreateProject)
	api.GET("/projects/:id", h.GetProject)
	api.PUT("/projects/:id", h.UpdateProject)
	api.DELETE("/projects/:id", h.DeleteProject)
	api.GET("/user/projects", h.ListUserProjects)

	api.POST("/projects/:id/invite", h.Invite)
	api.PUT("/projects/:id/editors", h.ReconcileEditors)
	api.GET("/projects/:id/invitations", h.ProjectInvitations)
	api.POST("/invitations/:id/handle", h.HandleInvitation)
	api.GET("/projects/invitations/:id/accept", h.AcceptLink)
	api.GET("/projects/invitations/:id/reject", h.RejectLink)
	api.GET("/user/invitations", h.UserInvitations)

	api.POST("/events", h.CreateEvent)
	api.GET("/events/:id", h.GetEvent)
	api.PUT("/events/:id", h.UpdateEvent)
	api.DELETE("/events/:id", h.DeleteEvent)
	api.GET("/projects/:id/events", h.ListProjectEvents)
	api.GET("/projects/:id/calendar.ics", h.CalendarFeed)
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.DebugContext(c.Request.Context(), "Handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

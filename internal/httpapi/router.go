// Package httpapi is the wire surface the dashboard front end consumes:
// meetings CRUD through the booking workflow, derived room states, the room
// filter, the password gate, light control, and a websocket event stream.
package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/roomboard/internal/application"
)

// NewRouter builds the gin engine over a wired core.
func NewRouter(app *application.App, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "httpapi")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	meetings := &meetingHandler{app: app}
	rooms := &roomHandler{app: app}
	stream := &streamHandler{app: app, logger: logger}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "no such route"})
	})

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.GET("/meetings", meetings.list)
		api.GET("/meetings/:id", meetings.get)

		api.GET("/rooms", rooms.list)
		api.GET("/rooms/status", rooms.statuses)
		api.GET("/rooms/:key/status", rooms.status)

		api.GET("/filter", rooms.getFilter)
		api.PUT("/filter", rooms.setFilter)

		api.POST("/gate/unlock", rooms.unlock)
		api.POST("/gate/lock", rooms.lock)

		api.GET("/events", stream.serve)

		guarded := api.Group("/", gateMiddleware(app))
		{
			guarded.POST("/meetings", meetings.create)
			guarded.PUT("/meetings/:id", meetings.update)
			guarded.DELETE("/meetings/:id", meetings.remove)
			guarded.POST("/meetings/:id/force-end", meetings.forceEnd)
			guarded.POST("/refresh", meetings.refresh)
			guarded.POST("/rooms/:key/light", rooms.light)
		}
	}

	return r
}

// gateMiddleware enforces the password gate on mutating routes when a gate
// password is configured.
func gateMiddleware(app *application.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !app.Gate.Enabled() {
			c.Next()
			return
		}
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if err := app.Gate.Verify(token); err != nil {
			status := http.StatusUnauthorized
			kind := "unauthorized"
			if errors.Is(err, application.ErrSessionExpired) {
				kind = "session_expired"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": kind, "message": "unlock required"})
			return
		}
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

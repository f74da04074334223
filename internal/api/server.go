package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ceseminars/internal/app"
	"ceseminars/internal/config"
	"ceseminars/internal/handlers"
	"ceseminars/internal/logger"
	"ceseminars/internal/metrics"
	"ceseminars/internal/middleware"
	"ceseminars/internal/validation"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports the state of one dependency
type HealthChecker func(ctx context.Context) error

// RouterConfig is everything the HTTP surface needs
type RouterConfig struct {
	Handlers       *handlers.Handlers
	Users          middleware.UserLookup
	AuthCache      middleware.AuthCache
	RequestTimeout time.Duration
	Checks         map[string]HealthChecker
}

// Server is the HTTP API on top of an app.App
type Server struct {
	router *gin.Engine
}

func NewServer(cfg *config.Config, a *app.App) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	rc := RouterConfig{
		Handlers:       handlers.NewHandlers(a.Services, a.Repos.Users, cfg.Webhook.Secret),
		Users:          a.Repos.Users,
		RequestTimeout: cfg.RequestTimeout,
		Checks: map[string]HealthChecker{
			"database": func(ctx context.Context) error {
				return a.DB.HealthCheck(ctx).Err()
			},
		},
	}
	if a.Valkey != nil {
		rc.AuthCache = a.Valkey
		rc.Checks["valkey"] = a.Valkey.Ping
	}
	if a.Search != nil {
		rc.Checks["elasticsearch"] = a.Search.HealthCheck
	}

	router, err := NewRouter(rc)
	if err != nil {
		return nil, err
	}

	return &Server{router: router}, nil
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(rc RouterConfig) (*gin.Engine, error) {
	if err := validation.Register(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(metrics.Middleware())
	router.Use(middleware.Timeout(rc.RequestTimeout))

	setupRoutes(router, rc)
	return router, nil
}

func setupRoutes(router *gin.Engine, rc RouterConfig) {
	h := rc.Handlers

	api := router.Group("/api")
	api.Use(middleware.BasicAuth(rc.Users, rc.AuthCache))
	{
		seminars := api.Group("/seminars")
		{
			seminars.GET("", h.ListSeminars)
			seminars.GET("/search", h.SearchSeminars)
			seminars.GET("/:id", h.GetSeminar)
			seminars.GET("/:id/sessions", h.ListSessions)
		}

		registrations := api.Group("/registrations")
		{
			registrations.POST("", h.Register)
			registrations.GET("", h.ListMyRegistrations)
			registrations.GET("/:id", h.GetRegistration)
			registrations.POST("/:id/cancel", h.CancelRegistration)
			registrations.GET("/:id/attendance", h.ListAttendance)
			registrations.GET("/:id/makeup-requests", h.ListRegistrationMakeups)
		}

		api.POST("/attendance", h.RecordAttendance)

		makeups := api.Group("/makeup-requests")
		{
			makeups.POST("", h.SubmitMakeup)
			makeups.GET("/:id", h.GetMakeup)
			makeups.PATCH("/:id", h.ActOnMakeup)
		}

		api.GET("/credits", h.MyCredits)

		certificates := api.Group("/certificates")
		{
			certificates.GET("", h.ListMyCertificates)
			certificates.GET("/:id/pdf", h.CertificatePDF)
		}

		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin(rc.Users))
		{
			admin.POST("/seminars", h.CreateSeminar)
			admin.POST("/seminars/:id/activate", h.ActivateSeminar)
			admin.PATCH("/seminars/:id/status", h.UpdateSeminarStatus)
			admin.POST("/seminars/:id/sessions", h.CreateSession)
			admin.GET("/seminars/:id/registrations", h.ListSeminarRegistrations)
			admin.GET("/seminars/:id/roster", h.GetRoster)
			admin.GET("/seminars/:id/roster.xlsx", h.ExportRoster)
			admin.GET("/seminars/:id/eligible", h.GetEligible)
			admin.GET("/seminars/:id/eligible.xlsx", h.ExportEligible)

			admin.PUT("/sessions/:id", h.UpdateSession)
			admin.DELETE("/sessions/:id", h.DeleteSession)

			admin.POST("/registrations/:id/hold", h.HoldRegistration)
			admin.POST("/registrations/:id/resume", h.ResumeRegistration)

			admin.DELETE("/attendance/:id", h.DeleteAttendance)
			admin.POST("/attendance/import", h.ImportAttendance)

			admin.GET("/makeup-requests", h.ListMakeupsByStatus)
			admin.POST("/makeup-requests/expire", h.ExpireMakeups)

			admin.POST("/certificates/bi-annual", h.IssueCertificates)
			admin.POST("/certificates/event", h.IssueEventCertificate)

			admin.POST("/events", h.CreateEvent)

			admin.GET("/users/:id/credits", h.UserCredits)
			admin.POST("/users/:id/credits", h.AdjustCredits)
		}
	}

	router.POST("/webhooks/orders/paid", h.OrderPaid)
	router.GET("/certificates/verify/:code", h.VerifyCertificate)

	router.GET("/health", healthCheck(rc.Checks))
	router.GET("/metrics", metrics.Handler())
}

// healthCheck answers 503 when any dependency check fails
func healthCheck(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WithContext(ctx).Error("Health check failed", "component", name, "error", err)
				components[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     overall,
			"service":    "ceseminars-api",
			"version":    "1.0.0",
			"components": components,
		})
	}
}

// Handler returns the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sessionbook/internal/auth"
	"sessionbook/internal/booking"
	"sessionbook/internal/calendarsync"
	"sessionbook/internal/config"
	"sessionbook/internal/credit"
	"sessionbook/internal/logger"
	"sessionbook/internal/payment"
	"sessionbook/internal/schedule"
	"sessionbook/internal/sessiontype"
	"sessionbook/internal/subscription"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers of every feature package.
type Handlers struct {
	Bookings      *booking.Handler
	SessionTypes  *sessiontype.Handler
	Schedule      *schedule.Handler
	Subscriptions *subscription.Handler
	Credits       *credit.Handler
	Payments      *payment.Handler
	Calendar      *calendarsync.Handler
}

type Server struct {
	router *gin.Engine
	http   *http.Server
}

func New(cfg *config.Config, h Handlers, checks ...HealthCheck) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	ConfigureValidator()

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), RequestLoggingMiddleware(), MetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", Health(checks...))
	router.GET("/metrics", Metrics())

	// Reached by Stripe and by the browser returning from Google consent;
	// both authenticate by other means than a bearer token.
	router.POST("/webhooks/stripe", h.Payments.Webhook)
	router.GET("/admin/calendar/callback", h.Calendar.Callback)

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 3*time.Minute)
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(cfg.JWTSecret), limiter.Middleware())
	{
		protected.GET("/session-types", h.SessionTypes.List)
		protected.GET("/availability", h.Bookings.Availability)

		protected.POST("/bookings", h.Bookings.Create)
		protected.GET("/bookings", h.Bookings.List)
		protected.GET("/bookings/:id", h.Bookings.Get)
		protected.POST("/bookings/:id/cancel", h.Bookings.Cancel)

		protected.GET("/subscriptions/me", h.Subscriptions.Me)
		protected.GET("/subscriptions/plans", h.Subscriptions.ListPlans)
		protected.GET("/credits/me", h.Credits.Me)
		protected.GET("/credits/packs", h.Credits.ListPacks)

		protected.POST("/checkout/subscription", h.Payments.CheckoutSubscription)
		protected.POST("/checkout/credits", h.Payments.CheckoutCredits)
	}

	admin := router.Group("/admin")
	admin.Use(auth.AuthMiddleware(cfg.JWTSecret), auth.RequireRole(auth.RoleStaff), limiter.Middleware())
	{
		admin.POST("/bookings/:id/complete", h.Bookings.Complete)
		admin.POST("/bookings/:id/no-show", h.Bookings.NoShow)
		admin.PUT("/bookings/:id/reschedule", h.Bookings.Reschedule)
		admin.POST("/bookings/:id/resync", h.Calendar.ResyncBooking)

		admin.POST("/session-types", h.SessionTypes.Create)
		admin.PATCH("/session-types/:id", h.SessionTypes.Update)

		admin.GET("/availability/templates", h.Schedule.ListTemplates)
		admin.POST("/availability/templates", h.Schedule.CreateTemplate)
		admin.DELETE("/availability/templates/:id", h.Schedule.DeleteTemplate)
		admin.GET("/availability/exceptions", h.Schedule.ListExceptions)
		admin.POST("/availability/exceptions", h.Schedule.UpsertException)
		admin.DELETE("/availability/exceptions/:id", h.Schedule.DeleteException)
		admin.GET("/policy", h.Schedule.GetPolicy)
		admin.PUT("/policy", h.Schedule.UpdatePolicy)

		admin.POST("/credits", h.Credits.Grant)

		admin.GET("/calendar", h.Calendar.Status)
		admin.GET("/calendar/connect", h.Calendar.Connect)
		admin.DELETE("/calendar", h.Calendar.Disconnect)
		admin.POST("/calendar/resync", h.Calendar.ResyncAll)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

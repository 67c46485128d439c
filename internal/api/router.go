package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/wastewise/backend/internal/auth"
	"github.com/wastewise/backend/internal/domain"
	"github.com/wastewise/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	authHandler         *AuthHandler
	notificationHandler *NotificationHandler
	requestHandler      *RequestHandler
	announcementHandler *AnnouncementHandler
	feedbackHandler     *FeedbackHandler
	guidelineHandler    *GuidelineHandler
	inventoryHandler    *InventoryHandler
	healthHandler       *HealthHandler
	realtime            *RealtimeManager
	jwtManager          *auth.JWTManager
	logger              *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	authHandler *AuthHandler,
	notificationHandler *NotificationHandler,
	requestHandler *RequestHandler,
	announcementHandler *AnnouncementHandler,
	feedbackHandler *FeedbackHandler,
	guidelineHandler *GuidelineHandler,
	inventoryHandler *InventoryHandler,
	healthHandler *HealthHandler,
	realtime *RealtimeManager,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		notificationHandler: notificationHandler,
		requestHandler:      requestHandler,
		announcementHandler: announcementHandler,
		feedbackHandler:     feedbackHandler,
		guidelineHandler:    guidelineHandler,
		inventoryHandler:    inventoryHandler,
		healthHandler:       healthHandler,
		realtime:            realtime,
		jwtManager:          jwtManager,
		logger:              logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(chimiddleware.Compress(5))

	adminOnly := middleware.RequireCategory(domain.CategoryAdmin)

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	// Auth routes (no auth required)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", rt.authHandler.Register)
		r.Post("/login", rt.authHandler.Login)
		r.Post("/refresh", rt.authHandler.Refresh)
		r.Post("/logout", rt.authHandler.Logout)
		r.Post("/google", rt.authHandler.GoogleLogin)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(rt.jwtManager))

		r.Get("/me", rt.authHandler.Me)
		r.Post("/auth/logout-all", rt.authHandler.LogoutAll)

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/", rt.notificationHandler.Dispatch)
			r.Get("/user-notifications", rt.notificationHandler.UserNotifications)
			r.Get("/driver-notifications", rt.notificationHandler.DriverNotifications)
			r.With(adminOnly).Get("/admin-notifications", rt.notificationHandler.AdminNotifications)
			r.Get("/unread-count", rt.notificationHandler.UnreadCount)
			r.Put("/mark-all-read", rt.notificationHandler.MarkAllRead)
			r.Put("/{id}/read", rt.notificationHandler.MarkRead)
			r.Post("/{id}/respond", rt.notificationHandler.Respond)
			r.Delete("/{id}/delete", rt.notificationHandler.Delete)
			r.Post("/register-device", rt.notificationHandler.RegisterDevice)
			r.Post("/test-notification", rt.notificationHandler.SendTest)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", rt.requestHandler.Create)
			r.Get("/", rt.requestHandler.List)
			r.Get("/{id}", rt.requestHandler.Get)
			r.With(adminOnly).Put("/{id}/assign", rt.requestHandler.AssignDriver)
			r.With(middleware.RequireCategory(domain.CategoryDriver)).Put("/{id}/status", rt.requestHandler.UpdateStatus)
			r.With(middleware.RequireCategory(domain.CategoryUser)).Put("/{id}/cancel", rt.requestHandler.Cancel)
		})

		r.Route("/announcements", func(r chi.Router) {
			r.Get("/", rt.announcementHandler.List)
			r.Get("/{id}", rt.announcementHandler.Get)
			r.With(adminOnly).Post("/", rt.announcementHandler.Create)
			r.With(adminOnly).Put("/{id}", rt.announcementHandler.Update)
			r.With(adminOnly).Delete("/{id}", rt.announcementHandler.Delete)
		})

		r.Route("/feedback", func(r chi.Router) {
			r.With(middleware.RequireCategory(domain.CategoryUser)).Post("/", rt.feedbackHandler.Create)
			r.Get("/", rt.feedbackHandler.List)
			r.With(adminOnly).Put("/{id}/respond", rt.feedbackHandler.Respond)
		})

		r.Route("/guidelines", func(r chi.Router) {
			r.Get("/", rt.guidelineHandler.List)
			r.Get("/{id}", rt.guidelineHandler.Get)
			r.With(adminOnly).Post("/", rt.guidelineHandler.Create)
			r.With(adminOnly).Put("/{id}", rt.guidelineHandler.Update)
			r.With(adminOnly).Delete("/{id}", rt.guidelineHandler.Delete)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", rt.inventoryHandler.Create)
			r.Get("/", rt.inventoryHandler.List)
			r.Get("/{id}", rt.inventoryHandler.Get)
			r.Put("/{id}", rt.inventoryHandler.Update)
			r.Delete("/{id}", rt.inventoryHandler.Delete)
		})

		r.Get("/ws", rt.realtime.HandleWS)
	})

	return r
}

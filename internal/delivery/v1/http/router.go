package http

import (
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/domain"
	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(
	catalogUC usecase.CatalogUC,
	orderUC usecase.OrderUC,
	admins domain.AdminSet,
	apiToken string,
	stuckAge time.Duration,
	checks ...ReadinessCheck,
) {
	r.router.Use(middleware.RequestID, middleware.Recoverer)

	health := NewHealthHandler(r.logger, checks...)
	r.router.Get("/health", health.live)
	r.router.Get("/ready", health.ready)

	r.router.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(adminAuth(apiToken, admins, r.logger))

		adminHandler := NewAdminHandler(catalogUC, orderUC, stuckAge, r.logger)
		registerAdminRoutes(v1, adminHandler)
	})
}

func registerAdminRoutes(router chi.Router, h *AdminHandler) {
	router.Get("/products", h.listProducts)

	router.Route("/orders", func(or chi.Router) {
		or.Get("/pending", h.listPendingOrders)
		or.Get("/stuck", h.listStuckOrders)
	})
}

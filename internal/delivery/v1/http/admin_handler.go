package http

import (
	"context"
	"net/http"
	"time"

	"github.com/DRSN-tech/cryptoshop-bot/internal/usecase"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/e"
	"github.com/DRSN-tech/cryptoshop-bot/pkg/logger"
)

// AdminHandler — read-only API для админки: каталог, очередь pending и зависшие доставки.
type AdminHandler struct {
	catalog  usecase.CatalogUC
	orders   usecase.OrderUC
	stuckAge time.Duration
	logger   logger.Logger
}

func NewAdminHandler(catalog usecase.CatalogUC, orders usecase.OrderUC, stuckAge time.Duration, logger logger.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, orders: orders, stuckAge: stuckAge, logger: logger}
}

func (a *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.ListAvailable(r.Context())
	if err != nil {
		a.logger.Errorf(err, "list products")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"products": toArrProductResponse(products),
	})
}

func (a *AdminHandler) listPendingOrders(w http.ResponseWriter, r *http.Request) {
	admin, ok := adminFromCtx(r.Context())
	if !ok {
		WriteError(w, e.ErrNotAdmin)
		return
	}

	orders, err := a.orders.ListPending(r.Context(), admin)
	if err != nil {
		a.logger.Errorf(err, "list pending orders")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"orders": toArrOrderResponse(orders),
	})
}

func (a *AdminHandler) listStuckOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orders.ListStuckDeliveries(r.Context(), a.stuckAge)
	if err != nil {
		a.logger.Errorf(err, "list stuck orders")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"orders": toArrOrderResponse(orders),
	})
}

// ReadinessCheck — проверка одной зависимости для /ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks []ReadinessCheck
	logger logger.Logger
}

func NewHealthHandler(logger logger.Logger, checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

func (h *HealthHandler) live(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) ready(w http.ResponseWriter, r *http.Request) {
	const checkTimeout = 3 * time.Second

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	res := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Warnf("readiness check %s failed: %v", c.Name, err)
			res[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		res[c.Name] = "ok"
	}

	WriteSuccess(w, status, res)
}

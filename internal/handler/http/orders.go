package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastly/marketplace/internal/service"
	"github.com/feastly/marketplace/pkg/httputil"
	"github.com/feastly/marketplace/pkg/middleware"
)

// OrderHandler handles HTTP requests for order search. Every route is
// mounted behind RequireRole(customer), so the identity is always present.
type OrderHandler struct {
	search *service.SearchService
	logger *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(search *service.SearchService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		search: search,
		logger: logger,
	}
}

// Search handles GET /orders/search. Results are always scoped to the
// authenticated caller; there is no way to search another user's orders.
func (h *OrderHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	userID := middleware.UserIDFromContext(r.Context())

	orders, err := h.search.SearchOrders(r.Context(), userID, query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: orders})
}

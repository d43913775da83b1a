package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastly/marketplace/internal/service"
	"github.com/feastly/marketplace/pkg/httputil"
)

// ProductHandler handles HTTP requests for product search.
type ProductHandler struct {
	search *service.SearchService
	logger *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(search *service.SearchService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		search: search,
		logger: logger,
	}
}

// Search handles GET /products/search. An empty query matches everything.
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))

	products, err := h.search.SearchProducts(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastly/marketplace/internal/domain"
	"github.com/feastly/marketplace/internal/service"
	apperrors "github.com/feastly/marketplace/pkg/errors"
	"github.com/feastly/marketplace/pkg/httputil"
)

// RestaurantHandler handles HTTP requests for restaurant search and
// rankings.
type RestaurantHandler struct {
	search   *service.SearchService
	rankings *service.RankingService
	logger   *slog.Logger
}

// NewRestaurantHandler creates a new restaurant HTTP handler.
func NewRestaurantHandler(search *service.SearchService, rankings *service.RankingService, logger *slog.Logger) *RestaurantHandler {
	return &RestaurantHandler{
		search:   search,
		rankings: rankings,
		logger:   logger,
	}
}

// parseBoolParam interprets an optional boolean query parameter; absence is
// nil, anything other than true/false is an error.
func parseBoolParam(raw string) (*bool, error) {
	switch strings.ToLower(raw) {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, apperrors.InvalidQuery("expensive must be true or false")
	}
}

// Search handles GET /restaurants/search.
func (h *RestaurantHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.RestaurantFilter{}
	if pc := strings.TrimSpace(q.Get("postalCode")); pc != "" {
		filter.PostalCode = &pc
	}
	if cat := strings.TrimSpace(q.Get("categoryId")); cat != "" {
		filter.CategoryID = &cat
	}

	expensive, err := parseBoolParam(q.Get("expensive"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	filter.Expensive = expensive

	sortBy, err := domain.ParseRestaurantSort(q.Get("sortBy"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	filter.SortBy = sortBy

	restaurants, err := h.search.SearchRestaurants(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: restaurants})
}

// Top handles GET /restaurants/top.
func (h *RestaurantHandler) Top(w http.ResponseWriter, r *http.Request) {
	top, err := h.rankings.TopRestaurants(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: top})
}

// TopDeliverers handles GET /restaurants/topDeliverers.
func (h *RestaurantHandler) TopDeliverers(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.rankings.TopDeliverers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ranks})
}

// BottomDeliverers handles GET /restaurants/bottomDeliverers.
func (h *RestaurantHandler) BottomDeliverers(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.rankings.BottomDeliverers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: ranks})
}

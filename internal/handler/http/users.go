package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/feastly/marketplace/internal/service"
	"github.com/feastly/marketplace/pkg/httputil"
)

// UserHandler handles HTTP requests for user search and the customer
// leaderboard. Responses only ever carry the public user fields.
type UserHandler struct {
	search   *service.SearchService
	rankings *service.RankingService
	logger   *slog.Logger
}

// NewUserHandler creates a new user HTTP handler.
func NewUserHandler(search *service.SearchService, rankings *service.RankingService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		search:   search,
		rankings: rankings,
		logger:   logger,
	}
}

// Search handles GET /users/search.
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	postalCode := strings.TrimSpace(r.URL.Query().Get("postalCode"))

	users, err := h.search.SearchUsers(r.Context(), postalCode)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: users})
}

// Top handles GET /users/top.
func (h *UserHandler) Top(w http.ResponseWriter, r *http.Request) {
	customers, err := h.rankings.TopCustomers(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: customers})
}

package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/feastly/marketplace/internal/service"
	apperrors "github.com/feastly/marketplace/pkg/errors"
	"github.com/feastly/marketplace/pkg/httputil"
	"github.com/feastly/marketplace/pkg/middleware"
	"github.com/feastly/marketplace/pkg/validator"
)

// ReviewHandler handles HTTP requests for review writes. Routes are mounted
// behind RequireRole(customer).
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger,
	}
}

func (h *ReviewHandler) decodeInput(w http.ResponseWriter, r *http.Request) (service.ReviewInput, bool) {
	var input service.ReviewInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid JSON body"), h.logger)
		return input, false
	}
	if err := validator.Validate(input); err != nil {
		httputil.WriteValidationError(w, err)
		return input, false
	}
	return input, true
}

// Create handles POST /products/{productID}/reviews.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")
	userID := middleware.UserIDFromContext(r.Context())

	review, err := h.reviews.CreateReview(r.Context(), userID, productID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// Update handles PUT /products/{productID}/reviews/{reviewID}.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")
	reviewID := chi.URLParam(r, "reviewID")
	userID := middleware.UserIDFromContext(r.Context())

	review, err := h.reviews.UpdateReview(r.Context(), userID, productID, reviewID, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Delete handles DELETE /products/{productID}/reviews/{reviewID}.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	reviewID := chi.URLParam(r, "reviewID")
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.reviews.DeleteReview(r.Context(), userID, productID, reviewID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

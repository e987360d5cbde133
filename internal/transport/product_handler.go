package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pricewatch/internal/domain"
	"pricewatch/internal/middleware"
	"pricewatch/internal/service"
	"pricewatch/internal/store"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TrackRequest is the payload for tracking a new product. Name and price are
// optional manual overrides; when omitted the extractor supplies them.
type TrackRequest struct {
	URL        string  `json:"url" validate:"required,url"`
	Name       string  `json:"name"`
	Price      float64 `json:"price" validate:"gte=0"`
	AlertPrice float64 `json:"alert_price" validate:"gte=0"`
}

// RefreshRequest asks for a fresh extraction of a tracked URL.
type RefreshRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ProductResponse is the wire shape of one catalog row.
type ProductResponse struct {
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	CurrentPrice float64 `json:"current_price"`
	AlertPrice   float64 `json:"alert_price"`
	LastUpdated  string  `json:"last_updated"`
}

// ObservationResponse is the wire shape of one history entry.
type ObservationResponse struct {
	URL       string  `json:"url"`
	Price     float64 `json:"price"`
	Timestamp string  `json:"timestamp"`
}

// ProductHandler handles HTTP requests for product tracking operations
type ProductHandler struct {
	tracker service.TrackerService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(tracker service.TrackerService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		tracker: tracker,
		logger:  logger,
	}
}

// RegisterRoutes registers all product routes. The scrapeLimiter guards the
// endpoints that trigger outbound page fetches; pass nil to disable.
func (h *ProductHandler) RegisterRoutes(r chi.Router, scrapeLimiter func(http.Handler) http.Handler) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Delete("/products", h.DeleteProduct)
		r.Get("/products/history", h.PriceHistory)
		r.Get("/products/alerts", h.TriggeredAlerts)

		r.Group(func(r chi.Router) {
			if scrapeLimiter != nil {
				r.Use(scrapeLimiter)
			}
			r.Post("/products", h.TrackProduct)
			r.Post("/products/refresh", h.RefreshPrice)
			r.Get("/extract", h.PreviewExtraction)
		})
	})
}

// TrackProduct handles POST /api/products
func (h *ProductHandler) TrackProduct(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Track request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.tracker.TrackProduct(r.Context(), req.URL, req.Name, req.Price, req.AlertPrice)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateProduct):
			middleware.RespondWithError(w, http.StatusConflict, "product with this url is already tracked")
		case errors.Is(err, service.ErrExtractionFailed):
			middleware.RespondWithError(w, http.StatusBadGateway, "could not extract a price from the page")
		default:
			h.logger.Error("Failed to track product", zap.String("url", req.URL), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to track product")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(*product))
}

// ListProducts handles GET /api/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.tracker.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// DeleteProduct handles DELETE /api/products?url=
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	if err := h.tracker.UntrackProduct(r.Context(), url); err != nil {
		h.logger.Error("Failed to delete product", zap.String("url", url), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PriceHistory handles GET /api/products/history?url=
func (h *ProductHandler) PriceHistory(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	history, err := h.tracker.PriceHistory(r.Context(), url)
	if err != nil {
		h.logger.Error("Failed to get price history", zap.String("url", url), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get price history")
		return
	}

	responses := make([]ObservationResponse, 0, len(history))
	for _, o := range history {
		responses = append(responses, ObservationResponse{
			URL:       o.URL,
			Price:     o.Price,
			Timestamp: o.Timestamp.Format(domain.TimestampLayout),
		})
	}

	middleware.RespondWithJSON(w, http.StatusOK, responses)
}

// TriggeredAlerts handles GET /api/products/alerts
func (h *ProductHandler) TriggeredAlerts(w http.ResponseWriter, r *http.Request) {
	products, err := h.tracker.TriggeredAlerts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list triggered alerts", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// RefreshPrice handles POST /api/products/refresh
func (h *ProductHandler) RefreshPrice(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.tracker.RefreshPrice(r.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "product is not tracked")
		case errors.Is(err, service.ErrExtractionFailed):
			middleware.RespondWithError(w, http.StatusBadGateway, "could not extract a price from the page")
		default:
			h.logger.Error("Failed to refresh price", zap.String("url", req.URL), zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to refresh price")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(*product))
}

// PreviewExtraction handles GET /api/extract?url=
func (h *ProductHandler) PreviewExtraction(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	// Bound the outbound fetches even when the client never disconnects.
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	result, err := h.tracker.Preview(ctx, url)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadGateway, "could not extract a price from the page")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func toProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		Name:         p.Name,
		URL:          p.URL,
		CurrentPrice: p.CurrentPrice,
		AlertPrice:   p.AlertPrice,
		LastUpdated:  p.LastUpdated.Format(domain.TimestampLayout),
	}
}

func toProductResponses(products []domain.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		responses = append(responses, toProductResponse(p))
	}
	return responses
}

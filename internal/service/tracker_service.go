package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricewatch/internal/domain"
	"pricewatch/internal/store"

	"go.uber.org/zap"
)

var (
	ErrExtractionFailed = errors.New("could not extract product information from page")
	ErrProductNotFound  = errors.New("product is not tracked")
)

// PriceExtractor is the extraction pipeline the service depends on.
type PriceExtractor interface {
	FetchProductInfo(ctx context.Context, url string) (*domain.ExtractionResult, error)
	CurrentPrice(ctx context.Context, url string) (float64, error)
}

// TrackerService defines the business operations over tracked products.
type TrackerService interface {
	// TrackProduct starts tracking a URL. Name and price act as manual
	// overrides; when either is missing the extractor fills it in.
	TrackProduct(ctx context.Context, url, name string, price, alertPrice float64) (*domain.Product, error)

	// UntrackProduct removes the product and its whole history. Removing an
	// unknown URL succeeds.
	UntrackProduct(ctx context.Context, url string) error

	// RefreshPrice re-extracts the current price for a tracked URL and
	// records a new observation.
	RefreshPrice(ctx context.Context, url string) (*domain.Product, error)

	ListProducts(ctx context.Context) ([]domain.Product, error)
	PriceHistory(ctx context.Context, url string) ([]domain.PriceObservation, error)

	// TriggeredAlerts lists products whose current price is at or below
	// their nonzero alert threshold.
	TriggeredAlerts(ctx context.Context) ([]domain.Product, error)

	// Preview runs the extraction pipeline without persisting anything.
	Preview(ctx context.Context, url string) (*domain.ExtractionResult, error)
}

type trackerService struct {
	store     store.ProductStore
	extractor PriceExtractor
	logger    *zap.Logger
	now       func() time.Time
}

// NewTrackerService creates a new instance of TrackerService.
func NewTrackerService(productStore store.ProductStore, extractor PriceExtractor, logger *zap.Logger) TrackerService {
	return &trackerService{
		store:     productStore,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *trackerService) TrackProduct(ctx context.Context, url, name string, price, alertPrice float64) (*domain.Product, error) {
	if price <= 0 || name == "" {
		result, err := s.extractor.FetchProductInfo(ctx, url)
		if err != nil {
			if price <= 0 {
				s.logger.Warn("Extraction failed for new product", zap.String("url", url), zap.Error(err))
				return nil, ErrExtractionFailed
			}
			// Caller supplied the price; only the name is missing.
			if name == "" {
				name = "Product from " + url
			}
		} else {
			if price <= 0 {
				price = result.Price
			}
			if name == "" {
				name = result.Name
			}
		}
	}

	if err := s.store.AddProduct(ctx, name, url, price, alertPrice); err != nil {
		return nil, fmt.Errorf("failed to add product: %w", err)
	}

	return &domain.Product{
		Name:         name,
		URL:          url,
		CurrentPrice: price,
		AlertPrice:   alertPrice,
		LastUpdated:  s.now(),
	}, nil
}

func (s *trackerService) UntrackProduct(ctx context.Context, url string) error {
	if err := s.store.DeleteProduct(ctx, url); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *trackerService) RefreshPrice(ctx context.Context, url string) (*domain.Product, error) {
	product, err := s.findProduct(ctx, url)
	if err != nil {
		return nil, err
	}

	price, err := s.extractor.CurrentPrice(ctx, url)
	if err != nil {
		s.logger.Warn("Price refresh extraction failed", zap.String("url", url), zap.Error(err))
		return nil, ErrExtractionFailed
	}

	now := s.now()
	if err := s.store.UpdatePrice(ctx, url, price, now); err != nil {
		return nil, fmt.Errorf("failed to update price: %w", err)
	}

	product.CurrentPrice = price
	product.LastUpdated = now
	return product, nil
}

func (s *trackerService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.store.GetAllProducts(ctx)
}

func (s *trackerService) PriceHistory(ctx context.Context, url string) ([]domain.PriceObservation, error) {
	return s.store.GetPriceHistory(ctx, url)
}

func (s *trackerService) TriggeredAlerts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.store.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}

	triggered := []domain.Product{}
	for _, p := range products {
		if p.AlertTriggered() {
			triggered = append(triggered, p)
		}
	}

	return triggered, nil
}

func (s *trackerService) Preview(ctx context.Context, url string) (*domain.ExtractionResult, error) {
	result, err := s.extractor.FetchProductInfo(ctx, url)
	if err != nil {
		return nil, ErrExtractionFailed
	}
	return result, nil
}

// findProduct scans the catalog snapshot for the URL. The store does not
// enforce existence on price updates, so the service checks before updating.
func (s *trackerService) findProduct(ctx context.Context, url string) (*domain.Product, error) {
	products, err := s.store.GetAllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	for _, p := range products {
		if p.URL == url {
			return &p, nil
		}
	}

	return nil, ErrProductNotFound
}

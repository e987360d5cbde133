package store

import (
	"context"
	"errors"
	"time"

	"pricewatch/internal/domain"
)

var (
	// ErrDuplicateProduct is returned by AddProduct when the URL is already
	// tracked. The catalog holds exactly one row per URL.
	ErrDuplicateProduct = errors.New("product with this url already exists")
)

// ProductStore owns the durable product catalog and its append-only price
// observation history. Implementations serialize their own read-modify-write
// cycles; cross-process writers are not coordinated.
type ProductStore interface {
	// AddProduct appends a catalog row and records one initial observation
	// at the given price. Fails with ErrDuplicateProduct if the URL exists.
	AddProduct(ctx context.Context, name, url string, price, alertPrice float64) error

	// DeleteProduct removes the catalog row and every observation for the
	// URL. Deleting an absent URL is a successful no-op.
	DeleteProduct(ctx context.Context, url string) error

	// UpdatePrice sets the catalog row's current price and last-updated
	// time, then appends one observation. When the URL is absent from the
	// catalog the row update matches nothing but the observation is still
	// appended; callers must add before updating.
	UpdatePrice(ctx context.Context, url string, price float64, ts time.Time) error

	// GetAllProducts returns the catalog snapshot in insertion order.
	GetAllProducts(ctx context.Context) ([]domain.Product, error)

	// GetPriceHistory returns all observations for the URL ascending by
	// timestamp, empty when there are none.
	GetPriceHistory(ctx context.Context, url string) ([]domain.PriceObservation, error)

	// Close releases backend resources.
	Close() error
}

package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"pricewatch/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	productColumns = []string{"name", "url", "current_price", "alert_price", "last_updated"}
	historyColumns = []string{"url", "price", "timestamp"}
)

// FlatFileStore persists the catalog and history as two CSV files. Every
// operation reads the full current state, applies its change in memory and
// rewrites the whole file, so a per-store mutex serializes writers within
// this process. Writers in other processes are not coordinated; the files
// assume a single operator.
type FlatFileStore struct {
	productsPath string
	historyPath  string
	logger       *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

// NewFlatFileStore opens (and if absent, creates empty-with-header) CSV
// storage at the given paths. Initialization is idempotent.
func NewFlatFileStore(productsPath, historyPath string, logger *zap.Logger) (*FlatFileStore, error) {
	s := &FlatFileStore{
		productsPath: productsPath,
		historyPath:  historyPath,
		logger:       logger,
		now:          time.Now,
	}

	if err := s.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize flat file storage: %w", err)
	}

	return s, nil
}

func (s *FlatFileStore) initialize() error {
	if _, err := os.Stat(s.productsPath); os.IsNotExist(err) {
		if err := writeCSV(s.productsPath, productColumns, nil); err != nil {
			return err
		}
	}

	if _, err := os.Stat(s.historyPath); os.IsNotExist(err) {
		if err := writeCSV(s.historyPath, historyColumns, nil); err != nil {
			return err
		}
	}

	return nil
}

// AddProduct rejects URLs already present in the catalog and otherwise
// appends the catalog row plus the first observation at the initial price.
func (s *FlatFileStore) AddProduct(ctx context.Context, name, url string, price, alertPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.readProducts()
	if err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}

	for _, p := range products {
		if p.URL == url {
			return ErrDuplicateProduct
		}
	}

	now := s.now()
	products = append(products, domain.Product{
		Name:         name,
		URL:          url,
		CurrentPrice: price,
		AlertPrice:   alertPrice,
		LastUpdated:  now,
	})

	if err := s.writeProducts(products); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}

	return s.appendObservation(url, price, now)
}

// DeleteProduct removes the catalog row and cascades to the observation
// history. Absent URLs delete successfully as a no-op.
func (s *FlatFileStore) DeleteProduct(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.readProducts()
	if err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}

	kept := products[:0]
	for _, p := range products {
		if p.URL != url {
			kept = append(kept, p)
		}
	}

	if err := s.writeProducts(kept); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}

	history, err := s.readHistory()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	keptHistory := history[:0]
	for _, o := range history {
		if o.URL != url {
			keptHistory = append(keptHistory, o)
		}
	}

	if err := s.writeHistory(keptHistory); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	return nil
}

// UpdatePrice rewrites the matching catalog row and appends one observation.
// When the URL is not in the catalog the row update matches nothing but the
// observation is still recorded, preserving compatibility with existing data
// files produced under that behavior.
func (s *FlatFileStore) UpdatePrice(ctx context.Context, url string, price float64, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.readProducts()
	if err != nil {
		return fmt.Errorf("failed to read products: %w", err)
	}

	for i := range products {
		if products[i].URL == url {
			products[i].CurrentPrice = price
			products[i].LastUpdated = ts
		}
	}

	if err := s.writeProducts(products); err != nil {
		return fmt.Errorf("failed to write products: %w", err)
	}

	return s.appendObservation(url, price, ts)
}

// GetAllProducts returns the catalog snapshot in insertion order. Missing or
// unreadable storage yields an empty slice, not an error.
func (s *FlatFileStore) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	products, err := s.readProducts()
	if err != nil {
		s.logger.Warn("Failed to read product catalog", zap.Error(err))
		return []domain.Product{}, nil
	}

	return products, nil
}

// GetPriceHistory returns all observations for the URL sorted ascending by
// timestamp, empty when there are none or storage is unreadable.
func (s *FlatFileStore) GetPriceHistory(ctx context.Context, url string) ([]domain.PriceObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.readHistory()
	if err != nil {
		s.logger.Warn("Failed to read price history", zap.Error(err))
		return []domain.PriceObservation{}, nil
	}

	matched := []domain.PriceObservation{}
	for _, o := range history {
		if o.URL == url {
			matched = append(matched, o)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	return matched, nil
}

// Close is a no-op; the files are not held open between operations.
func (s *FlatFileStore) Close() error {
	return nil
}

func (s *FlatFileStore) appendObservation(url string, price float64, ts time.Time) error {
	history, err := s.readHistory()
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	history = append(history, domain.PriceObservation{
		URL:       url,
		Price:     price,
		Timestamp: ts,
	})

	if err := s.writeHistory(history); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	return nil
}

func (s *FlatFileStore) readProducts() ([]domain.Product, error) {
	rows, err := readCSV(s.productsPath, len(productColumns))
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		currentPrice, err := parsePrice(row[2])
		if err != nil {
			return nil, fmt.Errorf("bad current_price %q: %w", row[2], err)
		}
		alertPrice, err := parsePrice(row[3])
		if err != nil {
			return nil, fmt.Errorf("bad alert_price %q: %w", row[3], err)
		}
		lastUpdated, err := time.ParseInLocation(domain.TimestampLayout, row[4], time.Local)
		if err != nil {
			return nil, fmt.Errorf("bad last_updated %q: %w", row[4], err)
		}

		products = append(products, domain.Product{
			Name:         row[0],
			URL:          row[1],
			CurrentPrice: currentPrice,
			AlertPrice:   alertPrice,
			LastUpdated:  lastUpdated,
		})
	}

	return products, nil
}

func (s *FlatFileStore) writeProducts(products []domain.Product) error {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.Name,
			p.URL,
			formatPrice(p.CurrentPrice),
			formatPrice(p.AlertPrice),
			p.LastUpdated.Format(domain.TimestampLayout),
		})
	}

	return writeCSV(s.productsPath, productColumns, rows)
}

func (s *FlatFileStore) readHistory() ([]domain.PriceObservation, error) {
	rows, err := readCSV(s.historyPath, len(historyColumns))
	if err != nil {
		return nil, err
	}

	history := make([]domain.PriceObservation, 0, len(rows))
	for _, row := range rows {
		price, err := parsePrice(row[1])
		if err != nil {
			return nil, fmt.Errorf("bad price %q: %w", row[1], err)
		}
		ts, err := time.ParseInLocation(domain.TimestampLayout, row[2], time.Local)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", row[2], err)
		}

		history = append(history, domain.PriceObservation{
			URL:       row[0],
			Price:     price,
			Timestamp: ts,
		})
	}

	return history, nil
}

func (s *FlatFileStore) writeHistory(history []domain.PriceObservation) error {
	rows := make([][]string, 0, len(history))
	for _, o := range history {
		rows = append(rows, []string{
			o.URL,
			formatPrice(o.Price),
			o.Timestamp.Format(domain.TimestampLayout),
		})
	}

	return writeCSV(s.historyPath, historyColumns, rows)
}

// readCSV returns the data rows of the file, header excluded.
func readCSV(path string, wantColumns int) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = wantColumns

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, nil
	}

	return records[1:], nil
}

// writeCSV rewrites the whole file from the in-memory state. The buffer is
// fully built before the file is touched, so a failed operation never leaves
// a half-written table behind within this process.
func writeCSV(path string, header []string, rows [][]string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// formatPrice renders a currency amount without binary float artifacts, so
// 19.99 round-trips as "19.99".
func formatPrice(price float64) string {
	return decimal.NewFromFloat(price).String()
}

func parsePrice(raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}

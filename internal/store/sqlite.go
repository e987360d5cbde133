package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"pricewatch/internal/domain"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore is the embedded transactional backend. It keeps the same
// column semantics as the flat files (timestamps stored as formatted TEXT)
// so data can be moved between backends.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSQLiteStore opens the database at path and runs all pending migrations.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		logger.Warn("Failed to set WAL mode", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		logger.Warn("Failed to enable foreign keys", zap.Error(err))
	}

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// runMigrations executes all pending schema migrations from the embedded
// filesystem. Safe to call repeatedly.
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}

func (s *SQLiteStore) AddProduct(ctx context.Context, name, url string, price, alertPrice float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE url = ?`, url).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check for existing product: %w", err)
	}
	if exists > 0 {
		return ErrDuplicateProduct
	}

	now := s.now()
	stamp := now.Format(domain.TimestampLayout)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO products (name, url, current_price, alert_price, last_updated) VALUES (?, ?, ?, ?, ?)`,
		name, url, price, alertPrice, stamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO price_history (url, price, timestamp) VALUES (?, ?, ?)`,
		url, price, stamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteProduct(ctx context.Context, url string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// No rows-affected check: deleting an absent URL is a valid no-op.
	if _, err := tx.ExecContext(ctx, `DELETE FROM products WHERE url = ?`, url); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_history WHERE url = ?`, url); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) UpdatePrice(ctx context.Context, url string, price float64, ts time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stamp := ts.Format(domain.TimestampLayout)

	// The observation is appended even when no catalog row matches, to stay
	// behavior-compatible with the flat file backend.
	_, err = tx.ExecContext(ctx,
		`UPDATE products SET current_price = ?, last_updated = ? WHERE url = ?`,
		price, stamp, url,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO price_history (url, price, timestamp) VALUES (?, ?, ?)`,
		url, price, stamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert observation: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetAllProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, url, current_price, alert_price, last_updated FROM products ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		var stamp string
		if err := rows.Scan(&p.Name, &p.URL, &p.CurrentPrice, &p.AlertPrice, &stamp); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		p.LastUpdated, err = time.ParseInLocation(domain.TimestampLayout, stamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("bad last_updated %q: %w", stamp, err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

func (s *SQLiteStore) GetPriceHistory(ctx context.Context, url string) ([]domain.PriceObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, price, timestamp FROM price_history WHERE url = ? ORDER BY timestamp, rowid`,
		url,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := []domain.PriceObservation{}
	for rows.Next() {
		var o domain.PriceObservation
		var stamp string
		if err := rows.Scan(&o.URL, &o.Price, &stamp); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Timestamp, err = time.ParseInLocation(domain.TimestampLayout, stamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", stamp, err)
		}
		history = append(history, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return history, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

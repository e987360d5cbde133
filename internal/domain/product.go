package domain

import "time"

// TimestampLayout is the format used for persisted timestamps. Column values
// written in any other layout break compatibility with existing data files.
const TimestampLayout = "2006-01-02 15:04:05"

// Product is one tracked catalog entry. The URL is the identity and is
// immutable after creation.
type Product struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	CurrentPrice float64   `json:"current_price"`
	AlertPrice   float64   `json:"alert_price"` // 0 means no alert configured
	LastUpdated  time.Time `json:"last_updated"`
}

// AlertTriggered reports whether the latest known price is at or below the
// configured threshold.
func (p Product) AlertTriggered() bool {
	return p.AlertPrice > 0 && p.CurrentPrice <= p.AlertPrice
}

// PriceObservation is one timestamped price reading for a URL. Observations
// are append-only and ordered ascending by timestamp within a URL.
type PriceObservation struct {
	URL       string    `json:"url"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// ExtractionResult is the transient outcome of one extraction attempt. Name
// is never empty; when the page offers nothing usable a placeholder derived
// from the URL is used.
type ExtractionResult struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	URL   string  `json:"url"`
}

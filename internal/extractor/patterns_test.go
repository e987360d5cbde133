package extractor

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPriceFromText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantPrice float64
		wantOK    bool
	}{
		{
			name:      "plain dollar amount",
			text:      "Buy now for only $19.99 while stocks last",
			wantPrice: 19.99,
			wantOK:    true,
		},
		{
			name:      "dollar sign with space",
			text:      "Total: $ 42.50",
			wantPrice: 42.50,
			wantOK:    true,
		},
		{
			name:      "comma grouped thousands",
			text:      "Price: $1,299.00 with free shipping",
			wantPrice: 1299.00,
			wantOK:    true,
		},
		{
			name:      "usd suffix",
			text:      "This item costs 25.00 USD at checkout",
			wantPrice: 25.00,
			wantOK:    true,
		},
		{
			name:      "dollar amount without cents",
			text:      "Now just $45",
			wantPrice: 45,
			wantOK:    true,
		},
		{
			name:   "no price present",
			text:   "Out of stock, check back later",
			wantOK: false,
		},
		{
			name:   "zero amount is not a price",
			text:   "Pay $0.00 today with our installment plan",
			wantOK: false,
		},
		{
			name:      "zero match falls through to a later pattern",
			text:      "Down payment $0.00, full price 25.00 USD",
			wantPrice: 25.00,
			wantOK:    true,
		},
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
		{
			name:   "currency symbol without numerals",
			text:   "All prices in $ unless stated otherwise",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := priceFromText(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("priceFromText(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if ok && !almostEqual(price, tt.wantPrice) {
				t.Errorf("priceFromText(%q) = %v, want %v", tt.text, price, tt.wantPrice)
			}
		})
	}
}

// The dollar-sign pattern outranks the USD pattern even when the USD figure
// appears first in the text.
func TestPriceFromTextPatternPriority(t *testing.T) {
	text := "Elsewhere listed at 25.00 USD, our price $19.99 today"

	price, ok := priceFromText(text)
	if !ok {
		t.Fatal("expected a price match")
	}
	if !almostEqual(price, 19.99) {
		t.Errorf("expected dollar pattern to win with 19.99, got %v", price)
	}
}

func TestPriceFromStructuredData(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantPrice float64
		wantOK    bool
	}{
		{
			name:      "numeric price",
			raw:       `{"@type":"Product","offers":{"price":34.95,"priceCurrency":"USD"}}`,
			wantPrice: 34.95,
			wantOK:    true,
		},
		{
			name:      "string price",
			raw:       `{"offers":{"price":"129.00"}}`,
			wantPrice: 129.00,
			wantOK:    true,
		},
		{
			name:   "offers is an array",
			raw:    `{"offers":[{"price":10.0}]}`,
			wantOK: false,
		},
		{
			name:   "no offers member",
			raw:    `{"@type":"BreadcrumbList"}`,
			wantOK: false,
		},
		{
			name:   "offers without price",
			raw:    `{"offers":{"availability":"InStock"}}`,
			wantOK: false,
		},
		{
			name:   "zero numeric price",
			raw:    `{"offers":{"price":0}}`,
			wantOK: false,
		},
		{
			name:   "zero string price",
			raw:    `{"offers":{"price":"0.00"}}`,
			wantOK: false,
		},
		{
			name:   "malformed json",
			raw:    `{"offers":{"price":`,
			wantOK: false,
		},
		{
			name:   "non numeric string price",
			raw:    `{"offers":{"price":"call us"}}`,
			wantOK: false,
		},
		{
			name:   "top level array",
			raw:    `[{"offers":{"price":5.0}}]`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, ok := priceFromStructuredData(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("priceFromStructuredData ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !almostEqual(price, tt.wantPrice) {
				t.Errorf("priceFromStructuredData = %v, want %v", price, tt.wantPrice)
			}
		})
	}
}

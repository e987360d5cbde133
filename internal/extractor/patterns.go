package extractor

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// pricePatterns is the ordered matcher list for the full-text strategy. The
// order matters: a dollar-sign amount is the most commerce-specific and wins
// over a bare "NN.NN USD" figure elsewhere in the page.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`),        // $XX.XX or $X,XXX.XX
	regexp.MustCompile(`(\d+(?:,\d{3})*(?:\.\d{2})?)\s*USD`),       // XX.XX USD
	regexp.MustCompile(`Price:\s*\$\s*(\d+(?:,\d{3})*(?:\.\d{2})?)`), // Price: $XX.XX
}

// priceFromText tries each pattern in priority order and returns the first
// match that parses as a positive number. Thousands separators are stripped
// before parsing; a parse failure or a zero amount just moves on to the next
// pattern. Prices are strictly positive, so a matched "$0.00" is treated as
// no match rather than a free product.
func priceFromText(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}

	for _, pattern := range pricePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
		if err != nil || !amount.IsPositive() {
			continue
		}

		return amount.InexactFloat64(), true
	}

	return 0, false
}

// priceFromStructuredData pulls offers.price out of one ld+json block. The
// block must be a JSON object whose offers member is itself an object; the
// price may be numeric or a numeric string, and must be positive.
func priceFromStructuredData(raw string) (float64, bool) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return 0, false
	}

	offers, ok := data["offers"].(map[string]any)
	if !ok {
		return 0, false
	}

	switch price := offers["price"].(type) {
	case float64:
		return price, price > 0
	case string:
		amount, err := decimal.NewFromString(strings.TrimSpace(price))
		if err != nil || !amount.IsPositive() {
			return 0, false
		}
		return amount.InexactFloat64(), true
	default:
		return 0, false
	}
}

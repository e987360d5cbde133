package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricewatch/internal/config"
	"pricewatch/internal/domain"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

var (
	// ErrFetchFailed covers network errors, non-success responses and
	// unreadable bodies on the initial page fetch.
	ErrFetchFailed = errors.New("failed to fetch product page")

	// ErrNoPriceFound means every strategy ran and none recovered a price.
	ErrNoPriceFound = errors.New("no price found on product page")
)

// Extractor recovers a product name and price from an arbitrary product page
// URL. It holds no state between calls and is safe to share across
// goroutines; each extraction is one blocking unit of work bounded by the
// configured timeout.
type Extractor struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	logger    *zap.Logger

	// extractText strips boilerplate from a fetched document, leaving body
	// text for the pattern matchers. Swappable in tests.
	extractText func(body []byte, pageURL *url.URL) (string, error)
}

// New builds an Extractor with a readability-based text extraction step.
func New(cfg config.ExtractorConfig, logger *zap.Logger) *Extractor {
	return &Extractor{
		client:      &http.Client{Timeout: cfg.Timeout},
		userAgent:   cfg.UserAgent,
		timeout:     cfg.Timeout,
		logger:      logger,
		extractText: readableText,
	}
}

// priceStrategy is one candidate method for recovering a price. Strategies
// run in order, each strictly more expensive than the last, stopping at the
// first success.
type priceStrategy struct {
	name string
	run  func(ctx context.Context) (float64, bool)
}

// FetchProductInfo fetches the page and runs the strategy chain. On success
// the result always carries a non-empty name, falling back to a placeholder
// derived from the URL. Every internal failure is absorbed into one of the
// sentinel errors; nothing panics past this boundary.
func (e *Extractor) FetchProductInfo(ctx context.Context, pageURL string) (*domain.ExtractionResult, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	body, err := e.fetch(ctx, pageURL)
	if err != nil {
		e.logger.Debug("Page fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	strategies := []priceStrategy{
		{
			name: "full-text pattern search",
			run: func(ctx context.Context) (float64, bool) {
				text, err := e.extractText(body, parsed)
				if err != nil {
					e.logger.Debug("Text extraction failed", zap.String("url", pageURL), zap.Error(err))
					return 0, false
				}
				return priceFromText(text)
			},
		},
		{
			name: "structured-data scan",
			run: func(ctx context.Context) (float64, bool) {
				return e.scanStructuredData(pageURL)
			},
		},
	}

	for _, strategy := range strategies {
		price, ok := strategy.run(ctx)
		if !ok {
			continue
		}

		e.logger.Debug("Price extracted",
			zap.String("url", pageURL),
			zap.String("strategy", strategy.name),
			zap.Float64("price", price),
		)

		return &domain.ExtractionResult{
			Name:  resolveName(body, pageURL),
			Price: price,
			URL:   pageURL,
		}, nil
	}

	return nil, ErrNoPriceFound
}

// CurrentPrice returns just the numeric price for the URL, built atop the
// same pipeline.
func (e *Extractor) CurrentPrice(ctx context.Context, pageURL string) (float64, error) {
	result, err := e.FetchProductInfo(ctx, pageURL)
	if err != nil {
		return 0, err
	}
	return result.Price, nil
}

// fetch issues the initial GET with the fixed browser user-agent and returns
// the raw document.
func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty response body")
	}

	return body, nil
}

// scanStructuredData re-fetches the page and walks its ld+json script blocks
// for an offers.price field. Malformed blocks are skipped individually.
func (e *Extractor) scanStructuredData(pageURL string) (float64, bool) {
	collector := colly.NewCollector(
		colly.UserAgent(e.userAgent),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(e.timeout)

	var price float64
	var found bool

	collector.OnHTML(`script[type="application/ld+json"]`, func(el *colly.HTMLElement) {
		if found {
			return
		}
		if p, ok := priceFromStructuredData(el.Text); ok {
			price = p
			found = true
		}
	})

	if err := collector.Visit(pageURL); err != nil {
		e.logger.Debug("Structured-data fetch failed", zap.String("url", pageURL), zap.Error(err))
		return 0, false
	}
	collector.Wait()

	return price, found
}

// resolveName prefers the og:title meta content of the originally fetched
// document, then the trimmed <title> text, then a synthesized placeholder.
func resolveName(body []byte, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
			if name := strings.TrimSpace(content); name != "" {
				return name
			}
		}

		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			return title
		}
	}

	return "Product from " + pageURL
}

// readableText strips navigation and boilerplate from the document, keeping
// the main body text.
func readableText(body []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}

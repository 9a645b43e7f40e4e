// Package yahoo provides a client for the Yahoo Finance chart endpoint
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 10 * time.Second
)

// Client fetches quotes from the chart API's meta block
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new chart API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return models.SourceYahoo
}

// JSON paths into the chart response
const (
	pathError         = "$.chart.error"
	pathPrice         = "$.chart.result[0].meta.regularMarketPrice"
	pathPreviousClose = "$.chart.result[0].meta.chartPreviousClose"
	pathDayHigh       = "$.chart.result[0].meta.regularMarketDayHigh"
	pathDayLow        = "$.chart.result[0].meta.regularMarketDayLow"
	pathCurrency      = "$.chart.result[0].meta.currency"
	pathExchange      = "$.chart.result[0].meta.exchangeName"
	pathInstrument    = "$.chart.result[0].meta.instrumentType"
	pathLongName      = "$.chart.result[0].meta.longName"
	pathShortName     = "$.chart.result[0].meta.shortName"
)

// TryFetch fetches a candidate variant (Yahoo symbols already use ".PR", ".L" style suffixes).
func (c *Client) TryFetch(ctx context.Context, variant string) (*models.QuoteRecord, bool, error) {
	symbol := models.NormalizeTicker(variant)
	start := time.Now()

	doc, status, err := c.fetchChart(ctx, symbol)
	if err != nil {
		return nil, false, &models.ProviderError{Provider: c.Name(), Variant: variant, Kind: models.ErrProviderUnavailable, Err: err}
	}

	c.logger.Debug().
		Str("symbol", symbol).
		Int("status", status).
		Dur("elapsed", time.Since(start)).
		Msg("Chart API response")

	if status == http.StatusNotFound {
		return nil, false, nil
	}
	if status != http.StatusOK {
		return nil, false, &models.ProviderError{
			Provider: c.Name(), Variant: variant, Kind: models.ErrProviderUnavailable,
			Err: fmt.Errorf("status %d", status),
		}
	}
	if doc == nil {
		return nil, false, &models.ProviderError{Provider: c.Name(), Variant: variant, Kind: models.ErrParse, Err: fmt.Errorf("empty body")}
	}

	if chartErr, ok := lookup(doc, pathError); ok && chartErr != nil {
		return nil, false, nil
	}

	price, ok := lookupFloat(doc, pathPrice)
	if !ok {
		if _, hasResult := lookup(doc, "$.chart.result"); !hasResult {
			return nil, false, &models.ProviderError{Provider: c.Name(), Variant: variant, Kind: models.ErrParse, Err: fmt.Errorf("missing chart.result")}
		}
		return nil, false, nil
	}
	if price <= 0 {
		return nil, false, nil
	}

	rec := &models.QuoteRecord{
		Source:         c.Name(),
		ProviderSymbol: symbol,
		Price:          price,
		Currency:       lookupString(doc, pathCurrency),
		Exchange:       lookupString(doc, pathExchange),
		AssetType:      strings.ToLower(lookupString(doc, pathInstrument)),
		CompanyName:    lookupString(doc, pathLongName),
	}
	if rec.CompanyName == "" {
		rec.CompanyName = lookupString(doc, pathShortName)
	}
	if prev, ok := lookupFloat(doc, pathPreviousClose); ok && prev > 0 {
		rec.PreviousClose = prev
		rec.Change = price - prev
		rec.ChangePct = (price - prev) / prev * 100
	}
	rec.DayHigh, _ = lookupFloat(doc, pathDayHigh)
	rec.DayLow, _ = lookupFloat(doc, pathDayLow)

	return rec, true, nil
}

// fetchChart returns the decoded JSON document and HTTP status. A body
// that is not JSON yields a nil document.
func (c *Client) fetchChart(ctx context.Context, symbol string) (any, int, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; shanon)")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, resp.StatusCode, nil
	}
	return doc, resp.StatusCode, nil
}

// lookup evaluates a JSON path; jsonpath may wrap single answers in a list.
func lookup(doc any, path string) (any, bool) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		if len(list) == 1 {
			v = list[0]
		}
	}
	return v, true
}

func lookupFloat(doc any, path string) (float64, bool) {
	v, ok := lookup(doc, path)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func lookupString(doc any, path string) string {
	v, ok := lookup(doc, path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Compile-time check
var _ interfaces.QuoteProvider = (*Client)(nil)

// Package alphavantage provides a client for the Alpha Vantage GLOBAL_QUOTE API
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co"
	DefaultTimeout = 15 * time.Second
)

// Client fetches quotes from Alpha Vantage
type Client struct {
	baseURL    string
	apiKey     string
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

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GlobalQuote is the "Global Quote" object; every field arrives as a string.
type GlobalQuote struct {
	Symbol           string `json:"01. symbol"`
	Open             string `json:"02. open"`
	High             string `json:"03. high"`
	Low              string `json:"04. low"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

type globalQuoteResponse struct {
	GlobalQuote  *GlobalQuote `json:"Global Quote"`
	Note         string       `json:"Note"`
	Information  string       `json:"Information"`
	ErrorMessage string       `json:"Error Message"`
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return models.SourceAlphaVantage
}

// suffixToMarket maps candidate variant suffixes onto Alpha Vantage market codes
var suffixToMarket = map[string]string{
	"":   "",
	"L":  "LON",
	"DE": "DEX",
	"TO": "TRT",
	"PA": "PAR",
	"AS": "AMS",
	"MI": "MIL",
	"SW": "SWX",
}

// ToAlphaVantageSymbol converts a variant such as "VOD.L" into "VOD.LON".
// ok is false for markets Alpha Vantage does not list.
func ToAlphaVantageSymbol(variant string) (string, bool) {
	base, suffix, _ := strings.Cut(models.NormalizeTicker(variant), ".")
	market, ok := suffixToMarket[suffix]
	if !ok {
		return "", false
	}
	if market == "" {
		return base, true
	}
	return base + "." + market, true
}

// TryFetch fetches a candidate variant and normalizes it into a QuoteRecord.
func (c *Client) TryFetch(ctx context.Context, variant string) (*models.QuoteRecord, bool, error) {
	symbol, supported := ToAlphaVantageSymbol(variant)
	if !supported {
		return nil, false, nil
	}

	fail := func(kind error, err error) (*models.QuoteRecord, bool, error) {
		return nil, false, &models.ProviderError{Provider: c.Name(), Variant: variant, Kind: kind, Err: err}
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail(models.ErrProviderUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fail(models.ErrProviderUnavailable, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fail(models.ErrParse, err)
	}

	// Throttling and key problems come back as 200 with a message field
	if msg := firstNonEmpty(payload.Note, payload.Information); msg != "" {
		return fail(models.ErrProviderUnavailable, fmt.Errorf("%s", msg))
	}
	if payload.ErrorMessage != "" || payload.GlobalQuote == nil || payload.GlobalQuote.Price == "" {
		return nil, false, nil
	}

	q := payload.GlobalQuote
	price, err := strconv.ParseFloat(q.Price, 64)
	if err != nil {
		return fail(models.ErrParse, fmt.Errorf("price %q: %w", q.Price, err))
	}
	if price <= 0 {
		return nil, false, nil
	}

	c.logger.Debug().Str("symbol", symbol).Float64("price", price).Msg("Alpha Vantage quote")

	_, market, _ := strings.Cut(symbol, ".")
	return &models.QuoteRecord{
		Source:         c.Name(),
		ProviderSymbol: symbol,
		Price:          price,
		Exchange:       market,
		PreviousClose:  parseFloat(q.PreviousClose),
		DayHigh:        parseFloat(q.High),
		DayLow:         parseFloat(q.Low),
		Change:         parseFloat(q.Change),
		ChangePct:      parseFloat(strings.TrimSuffix(q.ChangePercent, "%")),
	}, true, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Compile-time check
var _ interfaces.QuoteProvider = (*Client)(nil)

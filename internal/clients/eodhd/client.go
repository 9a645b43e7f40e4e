// Package eodhd provides a client for the EODHD real-time quote API
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
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

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "NA" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	if string(data) == "null" {
		*f = 0
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// flexInt64 handles unix timestamps that EODHD reports as "NA" for unknown symbols.
type flexInt64 int64

func (i *flexInt64) UnmarshalJSON(data []byte) error {
	var f flexFloat64
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = flexInt64(f)
	return nil
}

const (
	DefaultBaseURL = "https://eodhd.com/api"
	DefaultTimeout = 10 * time.Second
)

// Client fetches real-time quotes from EODHD
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

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a GET request and decodes the JSON body into result
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}

	return nil
}

var errDecode = errors.New("failed to decode response")

// RealTimeQuote is the raw /real-time payload
type RealTimeQuote struct {
	Code          string
	Open          float64
	High          float64
	Low           float64
	Close         float64
	PreviousClose float64
	Change        float64
	ChangePct     float64
	Volume        int64
	Timestamp     time.Time
}

type realTimeResponse struct {
	Code          string      `json:"code"`
	Timestamp     flexInt64   `json:"timestamp"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	Volume        flexFloat64 `json:"volume"`
	PreviousClose flexFloat64 `json:"previousClose"`
	Change        flexFloat64 `json:"change"`
	ChangePct     flexFloat64 `json:"change_p"`
}

// GetRealTimeQuote retrieves the live quote for an EODHD symbol such as "CEZ.PR"
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*RealTimeQuote, error) {
	var resp realTimeResponse
	if err := c.get(ctx, "/real-time/"+url.PathEscape(symbol), nil, &resp); err != nil {
		return nil, err
	}

	q := &RealTimeQuote{
		Code:          resp.Code,
		Open:          float64(resp.Open),
		High:          float64(resp.High),
		Low:           float64(resp.Low),
		Close:         float64(resp.Close),
		PreviousClose: float64(resp.PreviousClose),
		Change:        float64(resp.Change),
		ChangePct:     float64(resp.ChangePct),
		Volume:        int64(resp.Volume),
	}
	if resp.Timestamp > 0 {
		q.Timestamp = time.Unix(int64(resp.Timestamp), 0)
	}
	return q, nil
}

// Name returns the provider identifier
func (c *Client) Name() string {
	return models.SourceEODHD
}

// TryFetch fetches a candidate variant and normalizes it into a QuoteRecord.
func (c *Client) TryFetch(ctx context.Context, variant string) (*models.QuoteRecord, bool, error) {
	symbol, exchange := ToEODHDSymbol(variant)

	raw, err := c.GetRealTimeQuote(ctx, symbol)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, false, nil
		}
		kind := models.ErrProviderUnavailable
		if errors.Is(err, errDecode) {
			kind = models.ErrParse
		}
		return nil, false, &models.ProviderError{Provider: c.Name(), Variant: variant, Kind: kind, Err: err}
	}

	if raw.Close <= 0 {
		return nil, false, nil
	}

	return &models.QuoteRecord{
		Source:         c.Name(),
		ProviderSymbol: symbol,
		Price:          raw.Close,
		Exchange:       exchange,
		PreviousClose:  raw.PreviousClose,
		DayHigh:        raw.High,
		DayLow:         raw.Low,
		Change:         raw.Change,
		ChangePct:      raw.ChangePct,
	}, true, nil
}

// suffixToExchange maps market suffixes used in candidate variants to EODHD exchange codes
var suffixToExchange = map[string]string{
	"":   "US",
	"PR": "PR",
	"L":  "LSE",
	"DE": "XETRA",
	"F":  "F",
	"PA": "PA",
	"AS": "AS",
	"MI": "MI",
	"VI": "VI",
	"WA": "WAR",
	"SW": "SW",
	"TO": "TO",
	"AX": "AU",
	"HK": "HK",
	"T":  "TSE",
	"ST": "ST",
	"OL": "OL",
	"CO": "CO",
}

// ToEODHDSymbol converts a variant such as "VOD.L" into "VOD.LSE" and returns the exchange code.
// Unknown suffixes pass through unchanged.
func ToEODHDSymbol(variant string) (symbol, exchange string) {
	base, suffix, _ := strings.Cut(models.NormalizeTicker(variant), ".")
	ex, ok := suffixToExchange[suffix]
	if !ok {
		ex = suffix
	}
	return base + "." + ex, ex
}

// Compile-time check
var _ interfaces.QuoteProvider = (*Client)(nil)

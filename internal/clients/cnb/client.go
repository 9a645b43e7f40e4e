// Package cnb fetches the Czech National Bank daily exchange rate fixing
package cnb

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bregovic/shanon-sub001/internal/common"
	"github.com/bregovic/shanon-sub001/internal/interfaces"
	"github.com/bregovic/shanon-sub001/internal/models"
)

const (
	DefaultBaseURL = "https://www.cnb.cz"
	DefaultTimeout = 10 * time.Second

	dailyPath = "/en/financial-markets/foreign-exchange-market/central-bank-exchange-rate-fixing/central-bank-exchange-rate-fixing/daily.txt"

	// SourceName is stored on every imported row
	SourceName = "cnb"

	// cnbDateLayout is used both in the query string and the file header
	cnbDateLayout = "02.01.2006"
)

// Client downloads the daily.txt fixing file
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

// NewClient creates a new fixing client
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

// GetDailyRates returns the fixing published for date. On weekends and
// holidays the bank answers with the previous business day, and the rows
// carry that date rather than the requested one.
func (c *Client) GetDailyRates(ctx context.Context, date time.Time) ([]*models.FxRate, error) {
	params := url.Values{}
	params.Set("date", date.Format(cnbDateLayout))
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, dailyPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fixing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fixing request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	rates, err := ParseDaily(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("requested", models.FormatDate(date)).
		Int("rates", len(rates)).
		Msg("Fetched FX fixing")

	return rates, nil
}

// ParseDaily parses the daily.txt format:
//
//	14.10.2026 #198
//	Country|Currency|Amount|Code|Rate
//	Australia|dollar|1|AUD|15.123
func ParseDaily(r io.Reader) ([]*models.FxRate, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: read fixing: %v", models.ErrParse, err)
		}
		return nil, fmt.Errorf("%w: empty fixing", models.ErrParse)
	}
	header := strings.TrimSpace(scanner.Text())
	datePart, _, _ := strings.Cut(header, " ")
	fixingDate, err := time.ParseInLocation(cnbDateLayout, datePart, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: fixing header %q", models.ErrParse, header)
	}

	var rates []*models.FxRate
	line := 1
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "Country|") {
			continue
		}

		fields := strings.Split(text, "|")
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: line %d: expected 5 fields, got %d", models.ErrParse, line, len(fields))
		}

		amount, err := strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 64)
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("%w: line %d: amount %q", models.ErrParse, line, fields[2])
		}
		rate, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(fields[4]), ",", "."))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: rate %q", models.ErrParse, line, fields[4])
		}

		rates = append(rates, &models.FxRate{
			Currency: models.NormalizeCurrency(fields[3]),
			Date:     fixingDate,
			Rate:     rate,
			Amount:   amount,
			Source:   SourceName,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read fixing: %v", models.ErrParse, err)
	}
	return rates, nil
}

// Compile-time check
var _ interfaces.FxRateSource = (*Client)(nil)

// Package quote provides a client for the scraping service that looks up
// live market prices and IPO listing details.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "ipo-tracker/internal/errors"
	"ipo-tracker/internal/logging"
	"ipo-tracker/internal/models"
	"ipo-tracker/internal/resilience"
	"ipo-tracker/pkg/utils"
)

const (
	DefaultBaseURL   = "http://localhost:8000"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 1 // requests per second
)

// Client talks to the scraping service over JSON.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
	retry      utils.RetryConfig
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
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the request rate and burst
func WithRateLimit(requestsPerSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxAttempts sets how often a failed request is tried
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		c.retry.MaxAttempts = n
	}
}

// WithRetryDelay sets the first backoff delay between attempts
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retry.InitialDelay = d
	}
}

// WithBreaker sets the circuit breaker
func WithBreaker(cb *resilience.CircuitBreaker) ClientOption {
	return func(c *Client) {
		c.breaker = cb
	}
}

// NewClient creates a new scraping service client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		logger:  zerolog.Nop(),
		breaker: resilience.NewCircuitBreaker("scraper", resilience.DefaultCircuitBreakerConfig()),
		retry:   utils.DefaultRetryConfig(),
	}
	c.retry.Retryable = isRetryable

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Breaker returns the circuit breaker guarding the service.
func (c *Client) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

// statusError is a non-2xx response.
type statusError struct {
	Status int
	Body   string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("scraper returned status %d", e.Status)
	}
	return fmt.Sprintf("scraper returned status %d: %s", e.Status, e.Body)
}

// isRetryable retries transport errors and server-side failures. Client
// errors and an open circuit are final.
func isRetryable(err error) bool {
	if apperrors.Is(err, resilience.ErrCircuitOpen) || apperrors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if apperrors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusTooManyRequests
	}
	return true
}

// do sends one JSON request through the limiter, breaker and retry policy
// and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	return utils.Retry(ctx, c.retry, func() error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}

			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}
			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}
			req.Header.Set("Accept", "application/json")
			if payload != nil {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("failed to execute request: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return &statusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		})
	})
}

// cmpResponse is the price lookup payload.
type cmpResponse struct {
	CompanyName string   `json:"company_name"`
	Price       *float64 `json:"price"`
	Success     bool     `json:"success"`
	Error       *string  `json:"error"`
}

// FetchCurrentPrice looks up the current market price of a company. A
// lookup the service could not complete comes back as an unsuccessful quote
// with a nil error; transport and HTTP failures return a QuoteError. The
// quote always carries the requested company name.
func (c *Client) FetchCurrentPrice(ctx context.Context, companyName string) (models.PriceQuote, error) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		err := apperrors.NewQuoteError(companyName, "empty company name", nil)
		return models.FailedQuote(companyName, err), err
	}

	logger := logging.WithCompany(c.logger, name)
	start := time.Now()

	var resp cmpResponse
	err := c.do(ctx, http.MethodGet, "/api/scrape/cmp/"+url.PathEscape(name), nil, &resp)
	logging.LogQuoteFetch(logger, name, time.Since(start), err)
	if err != nil {
		qerr := apperrors.NewQuoteError(companyName, "price lookup failed", err)
		return models.FailedQuote(companyName, qerr), qerr
	}

	if resp.CompanyName != "" && resp.CompanyName != name {
		logger.Debug().Str("matched", resp.CompanyName).Msg("Scraper matched a different listing name")
	}

	q := models.PriceQuote{
		CompanyName: companyName,
		Price:       resp.Price,
		Success:     resp.Success,
	}
	if resp.Error != nil {
		q.Error = *resp.Error
	}
	if q.Success {
		if _, ok := q.LivePrice(); !ok {
			q.Success = false
			if q.Error == "" {
				q.Error = "no usable price"
			}
		}
	}
	return q, nil
}

// growwResponse is the listing page payload. Missing fields are null.
type growwResponse struct {
	ListedOn          *string `json:"listed_on"`
	IssuePrice        *string `json:"issue_price"`
	ListingPrice      *string `json:"listing_price"`
	IssueSize         *string `json:"issue_size"`
	QIBSubscription   *string `json:"qib_subscription"`
	NIISubscription   *string `json:"nii_subscription"`
	RIISubscription   *string `json:"rii_subscription"`
	TotalSubscription *string `json:"total_subscription"`
	Success           bool    `json:"success"`
	Error             *string `json:"error"`
	Warning           *string `json:"warning"`
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// FetchIpoMetadata scrapes the listing details from an IPO page link. The
// listing date is normalized to DD-MM-YYYY when recognised.
func (c *Client) FetchIpoMetadata(ctx context.Context, link string) (models.IpoMetadata, error) {
	if _, err := url.ParseRequestURI(link); err != nil {
		return models.IpoMetadata{}, apperrors.NewValidationError("groww_link", link, "not a valid URL")
	}

	var resp growwResponse
	err := c.do(ctx, http.MethodPost, "/api/scrape/groww", map[string]string{"url": link}, &resp)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", link).Msg("Listing scrape failed")
		return models.IpoMetadata{}, apperrors.NewQuoteError(link, "listing scrape failed", err)
	}

	return models.IpoMetadata{
		ListedOn:     utils.FormatListingDate(str(resp.ListedOn)),
		IssuePrice:   str(resp.IssuePrice),
		ListingPrice: str(resp.ListingPrice),
		IssueSize:    str(resp.IssueSize),
		Subscription: models.SubscriptionStats{
			QIB:   str(resp.QIBSubscription),
			NII:   str(resp.NIISubscription),
			RII:   str(resp.RIISubscription),
			Total: str(resp.TotalSubscription),
		},
		Success: resp.Success,
		Error:   str(resp.Error),
		Warning: str(resp.Warning),
	}, nil
}

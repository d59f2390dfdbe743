package hts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dutyrobot/backend/internal/domain"
	"github.com/dutyrobot/backend/internal/infrastructure/upstream"
	"github.com/dutyrobot/backend/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL   = "https://hts.usitc.gov/api"
	DefaultTimeout   = 10 * time.Second
	DefaultReferer   = "https://hts.usitc.gov/"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/125.0 Safari/537.36 DutyRobot/1.1"

	// defaultRate is used when a record carries no general rate
	defaultRate = "0%"

	// maxBodyBytes caps how much of an upstream body is read
	maxBodyBytes = 4 << 20

	snippetBytes = 200
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	UserAgent         string
	Referer           string
	RequestsPerSecond float64
	Burst             int
	Transport         http.RoundTripper
	Logger            *slog.Logger
}

// Client fetches general duty rates from the USITC HTS export API
type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	referer     string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewClient creates a new HTS API client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	// USITC blocks clients that hammer the export endpoint
	limiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst)

	return &Client{
		httpClient:  upstream.NewClient(opts.Transport, opts.Timeout),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		userAgent:   opts.UserAgent,
		referer:     opts.Referer,
		timeout:     opts.Timeout,
		rateLimiter: limiter,
		logger:      opts.Logger.With("upstream", "hts"),
	}
}

// FetchBaseRate returns the general rate of duty for code. A single attempt is made,
// and the throttle wait counts against the same timeout as the request.
func (c *Client) FetchBaseRate(ctx context.Context, code domain.TariffCode) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	queryCode := code.QueryCode()

	params := url.Values{}
	params.Add("format", "json")
	params.Add("from", queryCode)
	params.Add("to", queryCode)
	reqURL := fmt.Sprintf("%s/export?%s", c.baseURL, params.Encode())

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.logger.Error("rate limiter wait failed", "code", code, "error", err)
		metrics.IncUpstreamCall("hts", "unreachable")
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstreamUnreachable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Referer", c.referer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("request failed", "code", code, "error", err)
		metrics.IncUpstreamCall("hts", "unreachable")
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(code, resp); err != nil {
		metrics.IncUpstreamCall("hts", outcome(err))
		return decimal.Zero, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.logger.Error("reading body failed", "code", code, "status", resp.StatusCode, "error", err)
		metrics.IncUpstreamCall("hts", "unreachable")
		return decimal.Zero, fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamUnreachable, err)
	}

	rateValue, err := c.parseResponse(code, resp, body)
	if err != nil {
		metrics.IncUpstreamCall("hts", outcome(err))
		return decimal.Zero, err
	}

	metrics.IncUpstreamCall("hts", "ok")
	c.logger.Debug("fetched base rate", "code", code, "base_rate", rateValue.String())
	return rateValue, nil
}

// checkStatus rejects 403 and other non-2xx responses before the body is read
func (c *Client) checkStatus(code domain.TariffCode, resp *http.Response) error {
	if resp.StatusCode == http.StatusForbidden {
		c.logger.Error("request blocked", "code", code, "status", resp.StatusCode)
		return domain.ErrUpstreamBlocked
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Best effort: the snippet is only for the log line
		head, _ := io.ReadAll(io.LimitReader(resp.Body, snippetBytes))
		c.logger.Error("unexpected status", "code", code, "status", resp.StatusCode, "body", string(head))
		return &domain.UpstreamStatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// parseResponse applies the remaining HTS response checks in order of precedence
func (c *Client) parseResponse(code domain.TariffCode, resp *http.Response, body []byte) (decimal.Decimal, error) {
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "json") {
		c.logger.Error("non-JSON response", "code", code, "content_type", contentType, "body", snippet(body))
		return decimal.Zero, fmt.Errorf("%w: content type %q", domain.ErrUpstreamMalformed, contentType)
	}

	var records []domain.HTSRecord
	if err := json.Unmarshal(body, &records); err != nil {
		c.logger.Error("JSON decode error", "code", code, "error", err)
		return decimal.Zero, fmt.Errorf("%w: failed to decode response: %v", domain.ErrUpstreamMalformed, err)
	}

	if len(records) == 0 {
		c.logger.Info("code not in schedule", "code", code)
		return decimal.Zero, domain.ErrCodeNotFound
	}

	general := defaultRate
	if records[0].GeneralRateOfDuty != nil {
		general = *records[0].GeneralRateOfDuty
	}

	value, err := domain.ParsePercentage(general)
	if err != nil {
		c.logger.Error("unparseable general rate", "code", code, "general_rate_of_duty", general)
		return decimal.Zero, err
	}
	return value, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamBlocked):
		return "blocked"
	case errors.Is(err, domain.ErrUpstreamStatus):
		return "status"
	case errors.Is(err, domain.ErrUpstreamMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrCodeNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func snippet(body []byte) string {
	if len(body) > snippetBytes {
		return string(body[:snippetBytes])
	}
	return string(body)
}

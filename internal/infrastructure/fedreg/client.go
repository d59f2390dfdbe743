package fedreg

import (
	"context"
	"encoding/json"
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
)

const (
	DefaultBaseURL    = "https://www.federalregister.gov/api/v1"
	DefaultTimeout    = 5 * time.Second
	DefaultSearchTerm = "Section 301"

	maxBodyBytes = 1 << 20
)

// Options configures a Client. Zero values fall back to the defaults above.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	SearchTerm string
	UserAgent  string
	Referer    string
	Transport  http.RoundTripper
	Logger     *slog.Logger
}

// Client searches Federal Register documents for Section 301 trade actions
type Client struct {
	httpClient *http.Client
	baseURL    string
	searchTerm string
	userAgent  string
	referer    string
	logger     *slog.Logger
}

// NewClient creates a new Federal Register API client
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SearchTerm == "" {
		opts.SearchTerm = DefaultSearchTerm
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		httpClient: upstream.NewClient(opts.Transport, opts.Timeout),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		searchTerm: opts.SearchTerm,
		userAgent:  opts.UserAgent,
		referer:    opts.Referer,
		logger:     opts.Logger.With("upstream", "federal_register"),
	}
}

// LookupSurcharge reports whether the newest notice matching the search term and
// the code's category exists. It never fails: every problem collapses to Found=false.
func (c *Client) LookupSurcharge(ctx context.Context, code domain.TariffCode) domain.SurchargeResult {
	found, err := c.search(ctx, code)
	if err != nil {
		c.logger.Warn("Section 301 lookup failed", "code", code, "error", err)
		metrics.IncUpstreamCall("federal_register", "error")
		return domain.SurchargeResult{Found: false}
	}

	if found {
		metrics.IncUpstreamCall("federal_register", "found")
	} else {
		metrics.IncUpstreamCall("federal_register", "none")
	}
	return domain.SurchargeResult{Found: found}
}

func (c *Client) search(ctx context.Context, code domain.TariffCode) (bool, error) {
	params := url.Values{}
	params.Add("conditions[term]", fmt.Sprintf("%s %s", c.searchTerm, code.Category()))
	params.Add("order", "newest")
	params.Add("per_page", "1")
	reqURL := fmt.Sprintf("%s/documents.json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}

	var searchResp domain.FederalRegisterSearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&searchResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	return searchResp.Count != 0, nil
}

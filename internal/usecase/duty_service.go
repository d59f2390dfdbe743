package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dutyrobot/backend/internal/domain"
	"github.com/dutyrobot/backend/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrorMode selects how base-rate upstream failures surface to callers
type ErrorMode string

const (
	// ErrorModePropagate returns upstream failures as errors (HTTP 502)
	ErrorModePropagate ErrorMode = "propagate"

	// ErrorModeFallback returns a quote with unknown rates and an explanatory note
	ErrorModeFallback ErrorMode = "fallback"
)

// DefaultSurchargeRate is the Section 301 surcharge applied when a notice is found
var DefaultSurchargeRate = decimal.NewFromInt(25)

// DutyServiceConfig holds configuration for the duty service
type DutyServiceConfig struct {
	SurchargeRate decimal.NullDecimal
	ErrorMode     ErrorMode
	Now           func() time.Time
	Logger        *slog.Logger
}

// DutyService combines the HTS base rate and the Section 301 surcharge into a quote
type DutyService struct {
	cache           domain.RateCache
	baseRateClient  domain.BaseRateClient
	surchargeClient domain.SurchargeClient
	surchargeRate   decimal.Decimal
	errorMode       ErrorMode
	now             func() time.Time
	logger          *slog.Logger
}

// NewDutyService creates a new duty service with dependencies
func NewDutyService(
	cache domain.RateCache,
	baseRateClient domain.BaseRateClient,
	surchargeClient domain.SurchargeClient,
	config DutyServiceConfig,
) *DutyService {
	surchargeRate := DefaultSurchargeRate
	if config.SurchargeRate.Valid {
		surchargeRate = config.SurchargeRate.Decimal
	}

	errorMode := config.ErrorMode
	if errorMode == "" {
		errorMode = ErrorModePropagate
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DutyService{
		cache:           cache,
		baseRateClient:  baseRateClient,
		surchargeClient: surchargeClient,
		surchargeRate:   surchargeRate,
		errorMode:       errorMode,
		now:             now,
		logger:          logger,
	}
}

// Quote computes the duty for code.
// Flow: (cache -> HTS) in parallel with the Section 301 lookup -> sum -> stamp
func (s *DutyService) Quote(ctx context.Context, code domain.TariffCode, country string) (*domain.DutyQuote, error) {
	var (
		baseRate  decimal.Decimal
		surcharge domain.SurchargeResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		baseRate, err = s.getBaseRate(gctx, code)
		return err
	})
	g.Go(func() error {
		surcharge = s.surchargeClient.LookupSurcharge(gctx, code)
		return nil
	})

	if err := g.Wait(); err != nil {
		if s.errorMode == ErrorModeFallback && domain.IsUpstreamFailure(err) {
			s.logger.Warn("serving fallback quote", "code", code, "error", err)
			metrics.IncQuote("fallback")
			return s.fallbackQuote(code, country, err), nil
		}
		metrics.IncQuote("error")
		return nil, err
	}

	surchargeAmount := decimal.Zero
	if surcharge.Found {
		surchargeAmount = s.surchargeRate
	}
	total := baseRate.Add(surchargeAmount)

	metrics.IncQuote("ok")
	return &domain.DutyQuote{
		HTSCode:      code.String(),
		Country:      country,
		BaseRate:     floatPtr(baseRate),
		Surcharge301: floatPtr(surchargeAmount),
		TotalRate:    floatPtr(total),
		Timestamp:    s.timestamp(),
	}, nil
}

// getBaseRate serves the base rate from cache, fetching and storing it on a miss
func (s *DutyService) getBaseRate(ctx context.Context, code domain.TariffCode) (decimal.Decimal, error) {
	cached, err := s.cache.Get(ctx, code)
	if err == nil {
		s.logger.Debug("base rate cache hit", "code", code)
		return cached, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		s.logger.Warn("rate cache read failed", "code", code, "error", err)
	}

	baseRate, err := s.baseRateClient.FetchBaseRate(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}

	if err := s.cache.Set(ctx, code, baseRate); err != nil {
		// Log but don't fail if caching fails
		s.logger.Warn("rate cache write failed", "code", code, "error", err)
	}

	return baseRate, nil
}

func (s *DutyService) fallbackQuote(code domain.TariffCode, country string, cause error) *domain.DutyQuote {
	return &domain.DutyQuote{
		HTSCode:   code.String(),
		Country:   country,
		Timestamp: s.timestamp(),
		Note:      fmt.Sprintf("duty rates unavailable: %s", failureClass(cause)),
	}
}

func (s *DutyService) timestamp() string {
	return s.now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// failureClass names an upstream failure without leaking transport details
func failureClass(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamBlocked):
		return domain.ErrUpstreamBlocked.Error()
	case errors.Is(err, domain.ErrUpstreamStatus):
		var statusErr *domain.UpstreamStatusError
		if errors.As(err, &statusErr) {
			return statusErr.Error()
		}
		return domain.ErrUpstreamStatus.Error()
	case errors.Is(err, domain.ErrUpstreamMalformed):
		return domain.ErrUpstreamMalformed.Error()
	default:
		return domain.ErrUpstreamUnreachable.Error()
	}
}

func floatPtr(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}

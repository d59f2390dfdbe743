package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// RateCache stores base duty rates keyed by the full tariff code
type RateCache interface {
	Get(ctx context.Context, code TariffCode) (decimal.Decimal, error)
	Set(ctx context.Context, code TariffCode, baseRate decimal.Decimal) error
}

// BaseRateClient fetches the general duty rate from the HTS schedule
type BaseRateClient interface {
	FetchBaseRate(ctx context.Context, code TariffCode) (decimal.Decimal, error)
}

// SurchargeClient looks for recent Section 301 notices affecting a code's category
type SurchargeClient interface {
	LookupSurcharge(ctx context.Context, code TariffCode) SurchargeResult
}

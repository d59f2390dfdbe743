package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dutyrobot/backend/config"
	httpDelivery "github.com/dutyrobot/backend/internal/delivery/http"
	"github.com/dutyrobot/backend/internal/infrastructure/cache"
	"github.com/dutyrobot/backend/internal/infrastructure/fedreg"
	"github.com/dutyrobot/backend/internal/infrastructure/hts"
	"github.com/dutyrobot/backend/internal/infrastructure/upstream"
	"github.com/dutyrobot/backend/internal/logging"
	"github.com/dutyrobot/backend/internal/usecase"
	"github.com/shopspring/decimal"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Server.Environment)
	slog.SetDefault(logger)

	logger.Info("starting duty robot",
		"version", "1.1.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"error_mode", cfg.Duty.ErrorMode,
	)

	// Initialize infrastructure dependencies
	rateCache := cache.NewMemoryCache(cfg.Cache.TTL)
	logger.Info("rate cache ready", "ttl", cfg.Cache.TTL.String())

	transport := upstream.NewTransport()

	htsClient := hts.NewClient(hts.Options{
		BaseURL:           cfg.HTS.BaseURL,
		Timeout:           cfg.HTS.Timeout,
		UserAgent:         cfg.HTS.UserAgent,
		Referer:           cfg.HTS.Referer,
		RequestsPerSecond: cfg.HTS.RequestsPerSecond,
		Burst:             cfg.HTS.Burst,
		Transport:         transport,
		Logger:            logger,
	})

	surchargeClient := fedreg.NewClient(fedreg.Options{
		BaseURL:    cfg.FederalRegister.BaseURL,
		Timeout:    cfg.FederalRegister.Timeout,
		SearchTerm: cfg.FederalRegister.SearchTerm,
		UserAgent:  cfg.HTS.UserAgent,
		Referer:    cfg.HTS.Referer,
		Transport:  transport,
		Logger:     logger,
	})

	logger.Info("upstreams configured",
		"hts", cfg.HTS.BaseURL,
		"federal_register", cfg.FederalRegister.BaseURL,
		"surcharge_rate", cfg.Duty.SurchargeRate,
	)

	// Initialize usecase layer
	dutyService := usecase.NewDutyService(
		rateCache,
		htsClient,
		surchargeClient,
		usecase.DutyServiceConfig{
			SurchargeRate: decimal.NewNullDecimal(decimal.NewFromFloat(cfg.Duty.SurchargeRate)),
			ErrorMode:     usecase.ErrorMode(cfg.Duty.ErrorMode),
			Logger:        logger,
		},
	)

	handler := httpDelivery.NewHandler(dutyService, logger)
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("server listening", "addr", addr)

	if err := router.Run(addr); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}

package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/dutyrobot/backend/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	serviceName    = "duty-robot"
	serviceVersion = "1.1.0"
)

// DutyQuoter computes duty quotes
type DutyQuoter interface {
	Quote(ctx context.Context, code domain.TariffCode, country string) (*domain.DutyQuote, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	dutyService DutyQuoter
	logger      *slog.Logger
}

// NewHandler creates a new HTTP handler. A nil dutyService, typed or not,
// makes /duty answer 503 after validation.
func NewHandler(dutyService DutyQuoter, logger *slog.Logger) *Handler {
	if isNilService(dutyService) {
		dutyService = nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dutyService: dutyService,
		logger:      logger,
	}
}

func isNilService(dutyService DutyQuoter) bool {
	if dutyService == nil {
		return true
	}
	v := reflect.ValueOf(dutyService)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// GetDuty handles GET /duty?code=<hts code>&country=<country>
func (h *Handler) GetDuty(c *gin.Context) {
	// Validate before any upstream call
	code, err := domain.ParseTariffCode(c.Query("code"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	country := c.Query("country")

	if h.dutyService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "duty service not configured"})
		return
	}

	quote, err := h.dutyService.Quote(c.Request.Context(), code, country)
	if err != nil {
		status, message := mapError(err)
		h.logger.Error("duty lookup failed", "code", code, "country", country, "status", status, "error", err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, quote)
}

// mapError converts a service error into an HTTP status and client-facing message
func mapError(err error) (int, string) {
	var statusErr *domain.UpstreamStatusError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrCodeNotFound):
		return http.StatusNotFound, domain.ErrCodeNotFound.Error()
	case errors.Is(err, domain.ErrUpstreamBlocked):
		return http.StatusBadGateway, domain.ErrUpstreamBlocked.Error()
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, statusErr.Error()
	case errors.Is(err, domain.ErrUpstreamStatus):
		return http.StatusBadGateway, domain.ErrUpstreamStatus.Error()
	case errors.Is(err, domain.ErrUpstreamMalformed):
		return http.StatusBadGateway, domain.ErrUpstreamMalformed.Error()
	case errors.Is(err, domain.ErrUpstreamUnreachable):
		return http.StatusBadGateway, domain.ErrUpstreamUnreachable.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

package aws

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/driftscan/driftscan/internal/core/ports"
)

const (
	defaultRateLimitRPS = 20
	minRateLimitRPS     = 1
	maxRateLimitRPS     = 100
)

// newAPILimiter clamps the configured RPS into the supported range so a
// typo in the config cannot hammer the AWS API or stall the collector.
func newAPILimiter(ctx context.Context, rps int, logger ports.Logger) *rate.Limiter {
	limitValue := defaultRateLimitRPS
	if rps >= minRateLimitRPS && rps <= maxRateLimitRPS {
		limitValue = rps
	} else if rps != 0 {
		logger.Warnf(ctx, "Invalid AWS API RPS configured (%d), using default %d RPS. Valid range: %d-%d.",
			rps, defaultRateLimitRPS, minRateLimitRPS, maxRateLimitRPS)
	}
	return rate.NewLimiter(rate.Limit(limitValue), limitValue)
}

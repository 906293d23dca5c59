package ports

import (
	"context"

	"github.com/driftscan/driftscan/internal/core/domain"
)

type Reporter interface {
	Report(ctx context.Context, report *domain.DriftReport) error
}

package app

import (
	"context"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/core/service"
)

// Application wraps a fully wired pipeline and owns any resources the
// bootstrap opened for it.
type Application struct {
	Pipeline *service.Pipeline
	Logger   ports.Logger

	cleanup func() error
}

func NewApplication(pipeline *service.Pipeline, logger ports.Logger, cleanup func() error) *Application {
	return &Application{
		Pipeline: pipeline,
		Logger:   logger,
		cleanup:  cleanup,
	}
}

// Run executes one drift analysis and releases bootstrap resources.
func (a *Application) Run(ctx context.Context) (*domain.DriftReport, error) {
	defer func() {
		if a.cleanup == nil {
			return
		}
		if err := a.cleanup(); err != nil {
			a.Logger.Warnf(ctx, "Cleanup failed: %v", err)
		}
	}()

	report, err := a.Pipeline.Run(ctx)
	if err != nil {
		a.Logger.Errorf(ctx, err, "Drift analysis failed")
		return nil, err
	}
	return report, nil
}

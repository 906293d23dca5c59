// Package json emits a drift report as machine-readable JSON. The report
// sections arrive pre-sorted, so identical inputs always serialize to
// identical bytes.
package json

import (
	"context"
	"encoding/json"
	"io"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

const ReporterTypeJSON = "json"

type Config struct {
	Compact bool `yaml:"compact" mapstructure:"compact"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, writer io.Writer, logger ports.Logger) *Reporter {
	return &Reporter{
		config: cfg,
		writer: writer,
		logger: logger,
	}
}

func (r *Reporter) Report(ctx context.Context, report *domain.DriftReport) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	encoder := json.NewEncoder(r.writer)
	if !r.config.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(report); err != nil {
		return errors.Wrap(err, errors.CodeReportError, "failed to encode JSON report")
	}

	r.logger.Debugf(ctx, "JSON report written")
	return nil
}

// Package text renders a drift report as a colored, human-readable table.
package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/ports"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, writer io.Writer, logger ports.Logger) *Reporter {
	if cfg.NoColor || !writerIsTerminal(writer) {
		color.NoColor = true
	}
	return &Reporter{
		config: cfg,
		writer: writer,
		logger: logger,
	}
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) Report(ctx context.Context, report *domain.DriftReport) error {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	magenta := color.New(color.FgMagenta).SprintFunc()

	severityColor := func(s domain.Severity) string {
		switch s {
		case domain.SeverityCritical:
			return magenta(string(s))
		case domain.SeverityHigh:
			return red(string(s))
		case domain.SeverityMedium:
			return yellow(string(s))
		case domain.SeverityLow:
			return cyan(string(s))
		default:
			return string(s)
		}
	}

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Drift Analysis Report")
	fmt.Fprintln(tw, "=====================")

	if report.Summary.Drifted == 0 && len(report.Orphans) == 0 && len(report.Unmanaged) == 0 {
		fmt.Fprintln(tw, green("No drift detected."))
	}

	for _, drift := range report.Drifts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(drift.Entries) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n%s %s (%s)\n", red("[DRIFT]"), drift.Address, drift.Kind)
		for _, entry := range drift.Entries {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
				severityColor(entry.Severity), entry.Change, entry.Path, r.formatChange(entry))
		}
	}

	if len(report.Orphans) > 0 {
		fmt.Fprintln(tw, "\nDeclared but not observed:")
		for _, orphan := range report.Orphans {
			fmt.Fprintf(tw, "  %s %s (%s)\n", yellow("[MISSING]"), orphan.Address, orphan.Kind)
		}
	}

	if len(report.Unmanaged) > 0 {
		fmt.Fprintln(tw, "\nObserved but not declared:")
		for _, unmanaged := range report.Unmanaged {
			fmt.Fprintf(tw, "  %s %s (%s)\n", cyan("[UNMANAGED]"), unmanaged.Address, unmanaged.Kind)
		}
	}

	if len(report.Unanalyzable) > 0 {
		fmt.Fprintln(tw, "\nSkipped records:")
		for _, rec := range report.Unanalyzable {
			fmt.Fprintf(tw, "  %s %s (%s, %s): %s\n", magenta("[SKIPPED]"), rec.Address, rec.Kind, rec.Origin, rec.Reason)
		}
	}

	summary := report.Summary
	fmt.Fprintln(tw, "\nSummary:")
	fmt.Fprintln(tw, "--------")
	fmt.Fprintf(tw, "Resources compared:\t%d\n", summary.ResourcesCompared)
	fmt.Fprintf(tw, "Drifted:\t%s\n", red(summary.Drifted))
	fmt.Fprintf(tw, "Missing (declared only):\t%s\n", yellow(summary.Orphaned))
	fmt.Fprintf(tw, "Unmanaged (observed only):\t%s\n", cyan(summary.Unmanaged))
	fmt.Fprintf(tw, "Skipped:\t%s\n", magenta(summary.Unanalyzable))
	for _, severity := range domain.KnownSeverities {
		count := severityCount(summary.Severities, severity)
		if count == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s changes:\t%d\n", severityColor(severity), count)
	}

	r.logger.Debugf(ctx, "Text report written")
	return nil
}

func severityCount(s domain.SeveritySummary, sev domain.Severity) int {
	switch sev {
	case domain.SeverityCritical:
		return s.Critical
	case domain.SeverityHigh:
		return s.High
	case domain.SeverityMedium:
		return s.Medium
	case domain.SeverityLow:
		return s.Low
	default:
		return s.Informational
	}
}

func (r *Reporter) formatChange(entry domain.ClassifiedEntry) string {
	switch entry.Change {
	case domain.ChangeAdded:
		return fmt.Sprintf("observed: %s", r.formatValue(entry.Observed))
	case domain.ChangeRemoved:
		return fmt.Sprintf("declared: %s", r.formatValue(entry.Declared))
	default:
		return fmt.Sprintf("declared: %s, observed: %s",
			r.formatValue(entry.Declared), r.formatValue(entry.Observed))
	}
}

func (r *Reporter) formatValue(value any) string {
	const maxLen = 100
	str := fmt.Sprintf("%v", value)
	str = strings.ReplaceAll(str, "\n", `\n`)
	if len(str) > maxLen {
		return str[:maxLen-3] + "..."
	}
	return str
}

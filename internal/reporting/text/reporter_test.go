package text

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/log"
)

func sampleReport() *domain.DriftReport {
	return &domain.DriftReport{
		Drifts: []domain.ResourceDrift{
			{
				Address: "aws_s3_bucket.data",
				Kind:    "aws_s3_bucket",
				Entries: []domain.ClassifiedEntry{
					{
						DiffEntry: domain.DiffEntry{
							Path:     "server_side_encryption.enabled",
							Declared: true,
							Observed: false,
							Change:   domain.ChangeModified,
						},
						Severity: domain.SeverityCritical,
						Category: "encryption",
					},
					{
						DiffEntry: domain.DiffEntry{
							Path:     "tags.owner",
							Observed: "unknown",
							Change:   domain.ChangeAdded,
						},
						Severity: domain.SeverityInformational,
						Category: "uncategorized",
					},
				},
			},
		},
		Orphans:   []domain.ResourceRef{{Address: "aws_instance.old", Kind: "aws_instance"}},
		Unmanaged: []domain.ResourceRef{{Address: "i-0rogue", Kind: "aws_instance"}},
		Unanalyzable: []domain.UnanalyzableRecord{
			{Origin: domain.OriginObserved, Kind: "aws_instance", Reason: "record has no address"},
		},
		Summary: domain.ReportSummary{
			ResourcesCompared: 3,
			Drifted:           1,
			Orphaned:          1,
			Unmanaged:         1,
			Unanalyzable:      1,
			Severities:        domain.SeveritySummary{Critical: 1, Informational: 1},
		},
	}
}

func render(t *testing.T, report *domain.DriftReport) string {
	t.Helper()
	var buf bytes.Buffer
	r := NewReporter(Config{NoColor: true}, &buf, log.NewNop())
	require.NoError(t, r.Report(context.Background(), report))
	return buf.String()
}

func TestReportSections(t *testing.T) {
	out := render(t, sampleReport())

	assert.Contains(t, out, "[DRIFT] aws_s3_bucket.data (aws_s3_bucket)")
	assert.Contains(t, out, "server_side_encryption.enabled")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "declared: true, observed: false")
	assert.Contains(t, out, "observed: unknown")
	assert.Contains(t, out, "[MISSING] aws_instance.old")
	assert.Contains(t, out, "[UNMANAGED] i-0rogue")
	assert.Contains(t, out, "[SKIPPED]")
	assert.Contains(t, out, "record has no address")
	assert.Contains(t, out, "Resources compared:")
	assert.Contains(t, out, "CRITICAL changes:")
	assert.NotContains(t, out, "MEDIUM changes:", "zero severity counts are omitted")
}

func TestCleanReport(t *testing.T) {
	out := render(t, &domain.DriftReport{Summary: domain.ReportSummary{ResourcesCompared: 2}})

	assert.Contains(t, out, "No drift detected.")
	assert.NotContains(t, out, "[DRIFT]")
}

func TestLongValuesTruncated(t *testing.T) {
	report := &domain.DriftReport{
		Drifts: []domain.ResourceDrift{{
			Address: "aws_instance.web",
			Kind:    "aws_instance",
			Entries: []domain.ClassifiedEntry{{
				DiffEntry: domain.DiffEntry{
					Path:     "user_data",
					Declared: strings.Repeat("x", 300),
					Observed: "short",
					Change:   domain.ChangeModified,
				},
				Severity: domain.SeverityHigh,
				Category: "boot",
			}},
		}},
		Summary: domain.ReportSummary{ResourcesCompared: 1, Drifted: 1},
	}

	out := render(t, report)
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("x", 150))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	r := NewReporter(Config{NoColor: true}, &buf, log.NewNop())
	err := r.Report(ctx, sampleReport())
	assert.ErrorIs(t, err, context.Canceled)
}

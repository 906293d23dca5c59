package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftscan/driftscan/internal/core/classify"
	"github.com/driftscan/driftscan/internal/core/diff"
	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/match"
	"github.com/driftscan/driftscan/internal/core/normalize"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
	"github.com/driftscan/driftscan/internal/log"
)

type fakeSource struct {
	name    string
	records []ports.RawRecord
	err     error
}

func (f *fakeSource) Type() string { return f.name }
func (f *fakeSource) Records(context.Context) ([]ports.RawRecord, error) {
	return f.records, f.err
}

const pipelineRules = `
version: 1
kinds:
  aws_s3_bucket:
    set_paths: [grants]
`

const pipelineTable = `
version: 1
rules:
  - kind: aws_s3_bucket
    path: encryption
    severity: critical
    category: encryption
`

func newTestPipeline(t *testing.T, declared, observed []ports.RawRecord) *Pipeline {
	t.Helper()
	rs, err := normalize.ParseRuleSet([]byte(pipelineRules))
	require.NoError(t, err)
	table, err := classify.ParseTable([]byte(pipelineTable))
	require.NoError(t, err)

	logger := log.NewNop()
	p, err := NewPipeline(PipelineParams{
		Declared:    &fakeSource{name: "fake-declared", records: declared},
		Observed:    &fakeSource{name: "fake-observed", records: observed},
		Normalizer:  normalize.New(rs, logger),
		Matcher:     match.NewMatcher(logger),
		Differ:      diff.NewEngine(rs),
		Classifier:  table,
		Logger:      logger,
		Concurrency: 4,
	})
	require.NoError(t, err)
	return p
}

func TestPipelineEndToEnd(t *testing.T) {
	declared := []ports.RawRecord{
		{Address: "aws_s3_bucket.data", Kind: "aws_s3_bucket", Body: map[string]any{"encryption": "enabled"}},
		{Address: "web-sg", Kind: "aws_security_group", Body: map[string]any{"name": "web"}},
	}
	observed := []ports.RawRecord{
		{Address: "aws_s3_bucket.data", Kind: "aws_s3_bucket", Body: map[string]any{"encryption": "disabled"}},
		{Address: "shadow-instance-1", Kind: "aws_instance", Body: map[string]any{"id": "i-1"}},
	}

	rep, err := newTestPipeline(t, declared, observed).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Drifts, 1)
	require.Len(t, rep.Drifts[0].Entries, 1)
	got := rep.Drifts[0].Entries[0]
	assert.Equal(t, "encryption", got.Path)
	assert.Equal(t, domain.ChangeModified, got.Change)
	assert.Equal(t, domain.SeverityCritical, got.Severity)
	assert.Equal(t, "encryption", got.Category)

	require.Len(t, rep.Orphans, 1)
	assert.Equal(t, "web-sg", rep.Orphans[0].Address)
	require.Len(t, rep.Unmanaged, 1)
	assert.Equal(t, "shadow-instance-1", rep.Unmanaged[0].Address)

	assert.Equal(t, 1, rep.Summary.Severities.Critical)
	assert.Equal(t, 1, rep.Summary.Drifted)
}

func TestPipelineIdempotence(t *testing.T) {
	declared := []ports.RawRecord{
		{Address: "b", Kind: "aws_s3_bucket", Body: map[string]any{"x": 1}},
		{Address: "a", Kind: "aws_s3_bucket", Body: map[string]any{"x": 1}},
	}
	observed := []ports.RawRecord{
		{Address: "a", Kind: "aws_s3_bucket", Body: map[string]any{"x": 2}},
		{Address: "b", Kind: "aws_s3_bucket", Body: map[string]any{"x": 1}},
		{Address: "c", Kind: "aws_s3_bucket", Body: map[string]any{}},
	}

	p := newTestPipeline(t, declared, observed)
	first, err := p.Run(context.Background())
	require.NoError(t, err)
	second, err := p.Run(context.Background())
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestPipelineCollectsUnanalyzableRecords(t *testing.T) {
	declared := []ports.RawRecord{
		{Address: "", Kind: "aws_s3_bucket", Body: map[string]any{}},
		{Address: "aws_s3_bucket.ok", Kind: "aws_s3_bucket", Body: map[string]any{}},
	}
	observed := []ports.RawRecord{
		{Address: "aws_s3_bucket.ok", Kind: "aws_s3_bucket", Body: map[string]any{}},
	}

	rep, err := newTestPipeline(t, declared, observed).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Unanalyzable, 1)
	assert.Equal(t, domain.OriginDeclared, rep.Unanalyzable[0].Origin)
	assert.NotEmpty(t, rep.Unanalyzable[0].Reason)
	assert.Len(t, rep.Drifts, 1)
}

func TestPipelineAbortsOnAmbiguousAddress(t *testing.T) {
	declared := []ports.RawRecord{
		{Address: "db-1", Kind: "aws_db_instance", Body: map[string]any{}},
		{Address: "db-1", Kind: "aws_db_instance", Body: map[string]any{}},
	}

	_, err := newTestPipeline(t, declared, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeAmbiguousAddress))
	assert.Contains(t, err.Error(), "db-1")
}

func TestPipelinePropagatesSourceFailure(t *testing.T) {
	rs := normalize.EmptyRuleSet()
	table, err := classify.ParseTable([]byte(pipelineTable))
	require.NoError(t, err)
	logger := log.NewNop()

	p, err := NewPipeline(PipelineParams{
		Declared:   &fakeSource{name: "broken", err: errors.New(errors.CodeSourceParseError, "bad template")},
		Observed:   &fakeSource{name: "fake-observed"},
		Normalizer: normalize.New(rs, logger),
		Matcher:    match.NewMatcher(logger),
		Differ:     diff.NewEngine(rs),
		Classifier: table,
		Logger:     logger,
	})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeSourceParseError))
}

func TestNewPipelineValidatesComponents(t *testing.T) {
	_, err := NewPipeline(PipelineParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeConfigValidation))
}

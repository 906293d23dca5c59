package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/driftscan/driftscan/internal/core/classify"
	"github.com/driftscan/driftscan/internal/core/diff"
	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/match"
	"github.com/driftscan/driftscan/internal/core/normalize"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/core/report"
	"github.com/driftscan/driftscan/internal/errors"
)

const defaultConcurrency = 10

// Pipeline runs the full drift-detection flow: raw records from both
// sources, normalization, address matching, per-pair structural diff with
// classification, and final report assembly. Normalization and diffing fan
// out per resource; the report builder's total ordering is the
// serialization point that keeps parallel runs observably sequential.
type Pipeline struct {
	declared    ports.DeclaredSource
	observed    ports.ObservedSource
	normalizer  *normalize.Normalizer
	matcher     *match.Matcher
	differ      *diff.Engine
	classifier  *classify.Table
	builder     *report.Builder
	reporter    ports.Reporter
	logger      ports.Logger
	concurrency int
}

type PipelineParams struct {
	Declared    ports.DeclaredSource
	Observed    ports.ObservedSource
	Normalizer  *normalize.Normalizer
	Matcher     *match.Matcher
	Differ      *diff.Engine
	Classifier  *classify.Table
	Reporter    ports.Reporter
	Logger      ports.Logger
	Concurrency int
}

func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if params.Declared == nil {
		return nil, errors.New(errors.CodeConfigValidation, "declared source cannot be nil")
	}
	if params.Observed == nil {
		return nil, errors.New(errors.CodeConfigValidation, "observed source cannot be nil")
	}
	if params.Normalizer == nil || params.Matcher == nil || params.Differ == nil || params.Classifier == nil {
		return nil, errors.New(errors.CodeConfigValidation, "pipeline core components cannot be nil")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeConfigValidation, "logger cannot be nil")
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Pipeline{
		declared:    params.Declared,
		observed:    params.Observed,
		normalizer:  params.Normalizer,
		matcher:     params.Matcher,
		differ:      params.Differ,
		classifier:  params.Classifier,
		builder:     report.NewBuilder(),
		reporter:    params.Reporter,
		logger:      params.Logger,
		concurrency: concurrency,
	}, nil
}

// Run executes one drift analysis. The returned report is owned by the
// caller. When a reporter is configured it also renders the report.
func (p *Pipeline) Run(ctx context.Context) (*domain.DriftReport, error) {
	p.logger.Infof(ctx, "Starting drift analysis using %s declared and %s observed sources",
		p.declared.Type(), p.observed.Type())

	var declaredRaw, observedRaw []ports.RawRecord
	g, childCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := p.declared.Records(childCtx)
		if err != nil {
			return errors.Wrap(err, errors.CodeSourceReadError, "failed reading declared records")
		}
		declaredRaw = records
		return nil
	})
	g.Go(func() error {
		records, err := p.observed.Records(childCtx)
		if err != nil {
			return errors.Wrap(err, errors.CodeSourceReadError, "failed reading observed records")
		}
		observedRaw = records
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.logger.Debugf(ctx, "Collected %d declared and %d observed raw records", len(declaredRaw), len(observedRaw))

	declared, badDeclared, err := p.normalizeAll(ctx, declaredRaw, domain.OriginDeclared)
	if err != nil {
		return nil, err
	}
	observed, badObserved, err := p.normalizeAll(ctx, observedRaw, domain.OriginObserved)
	if err != nil {
		return nil, err
	}
	unanalyzable := append(badDeclared, badObserved...)
	for _, rec := range unanalyzable {
		p.logger.Warnf(ctx, "Unanalyzable %s record %q: %s", rec.Origin, rec.Address, rec.Reason)
	}

	matchResult, err := p.matcher.Match(ctx, declared, observed)
	if err != nil {
		return nil, err
	}

	drifts, err := p.compareAll(ctx, matchResult.Pairs)
	if err != nil {
		return nil, err
	}

	rep := p.builder.Build(drifts, matchResult.Orphans, matchResult.Unmanaged, unanalyzable)
	p.logger.Infof(ctx, "Drift analysis complete: %d compared, %d drifted, %d orphaned, %d unmanaged",
		rep.Summary.ResourcesCompared, rep.Summary.Drifted, rep.Summary.Orphaned, rep.Summary.Unmanaged)

	if p.reporter != nil {
		if err := p.reporter.Report(ctx, rep); err != nil {
			return rep, errors.Wrap(err, errors.CodeReportError, "failed to render drift report")
		}
	}
	return rep, nil
}

// normalizeAll fans normalization out across the worker limit. Results land
// in an index-addressed slice so concurrency never perturbs ordering.
// Per-record failures become unanalyzable entries; only context cancellation
// aborts.
func (p *Pipeline) normalizeAll(ctx context.Context, raw []ports.RawRecord, origin domain.Origin) ([]domain.ResourceModel, []domain.UnanalyzableRecord, error) {
	models := make([]*domain.ResourceModel, len(raw))
	failures := make([]*domain.UnanalyzableRecord, len(raw))

	g, childCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, record := range raw {
		g.Go(func() error {
			if childCtx.Err() != nil {
				return childCtx.Err()
			}
			model, err := p.normalizer.Normalize(record, origin)
			if err != nil {
				failures[i] = &domain.UnanalyzableRecord{
					Address: record.Address,
					Kind:    record.Kind,
					Origin:  origin,
					Reason:  err.Error(),
				}
				return nil
			}
			models[i] = &model
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]domain.ResourceModel, 0, len(raw))
	var bad []domain.UnanalyzableRecord
	for i := range raw {
		if models[i] != nil {
			out = append(out, *models[i])
		} else if failures[i] != nil {
			bad = append(bad, *failures[i])
		}
	}
	return out, bad, nil
}

func (p *Pipeline) compareAll(ctx context.Context, pairs []match.Pair) ([]domain.ResourceDrift, error) {
	drifts := make([]domain.ResourceDrift, len(pairs))

	g, childCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, pair := range pairs {
		g.Go(func() error {
			if childCtx.Err() != nil {
				return childCtx.Err()
			}
			entries, err := p.differ.Diff(pair.Declared, pair.Observed)
			if err != nil {
				return errors.Wrap(err, errors.CodeDiffError, "diff failed for "+pair.Declared.Address)
			}
			drifts[i] = domain.ResourceDrift{
				Address: pair.Declared.Address,
				Kind:    pair.Declared.Kind,
				Entries: p.classifier.ClassifyEntries(pair.Declared.Kind, entries),
			}
			if len(entries) > 0 {
				p.logger.Debugf(childCtx, "Drift detected on %s (%d entries)", pair.Declared.Address, len(entries))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return drifts, nil
}

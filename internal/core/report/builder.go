// Package report aggregates per-resource results into the final drift
// report. Pure aggregation: no I/O, and a fixed total ordering independent
// of input iteration order so identical inputs serialize byte-identically.
package report

import (
	"sort"

	"github.com/driftscan/driftscan/internal/core/domain"
)

type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

// Build assembles the report: matched-pair diffs first (ordered by address),
// then orphans, then unmanaged resources, then unanalyzable records, plus
// summary counts per severity across the whole report. The caller owns the
// result; nothing retains a reference after Build returns.
func (b *Builder) Build(
	drifts []domain.ResourceDrift,
	orphans []domain.ResourceModel,
	unmanaged []domain.ResourceModel,
	unanalyzable []domain.UnanalyzableRecord,
) *domain.DriftReport {
	rep := &domain.DriftReport{
		Drifts:       make([]domain.ResourceDrift, len(drifts)),
		Orphans:      toRefs(orphans),
		Unmanaged:    toRefs(unmanaged),
		Unanalyzable: make([]domain.UnanalyzableRecord, len(unanalyzable)),
	}

	copy(rep.Drifts, drifts)
	copy(rep.Unanalyzable, unanalyzable)

	sort.SliceStable(rep.Drifts, func(i, j int) bool {
		return rep.Drifts[i].Address < rep.Drifts[j].Address
	})
	sort.SliceStable(rep.Orphans, func(i, j int) bool {
		return rep.Orphans[i].Address < rep.Orphans[j].Address
	})
	sort.SliceStable(rep.Unmanaged, func(i, j int) bool {
		return rep.Unmanaged[i].Address < rep.Unmanaged[j].Address
	})
	sort.SliceStable(rep.Unanalyzable, func(i, j int) bool {
		if rep.Unanalyzable[i].Origin != rep.Unanalyzable[j].Origin {
			return rep.Unanalyzable[i].Origin < rep.Unanalyzable[j].Origin
		}
		return rep.Unanalyzable[i].Address < rep.Unanalyzable[j].Address
	})

	rep.Summary = summarize(rep)
	return rep
}

func toRefs(models []domain.ResourceModel) []domain.ResourceRef {
	refs := make([]domain.ResourceRef, 0, len(models))
	for _, m := range models {
		refs = append(refs, domain.ResourceRef{Address: m.Address, Kind: m.Kind})
	}
	return refs
}

func summarize(rep *domain.DriftReport) domain.ReportSummary {
	summary := domain.ReportSummary{
		ResourcesCompared: len(rep.Drifts),
		Orphaned:          len(rep.Orphans),
		Unmanaged:         len(rep.Unmanaged),
		Unanalyzable:      len(rep.Unanalyzable),
	}
	for _, d := range rep.Drifts {
		if len(d.Entries) > 0 {
			summary.Drifted++
		}
		for _, e := range d.Entries {
			summary.Severities.Add(e.Severity)
		}
	}
	return summary
}

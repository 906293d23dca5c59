// Package diff computes the structural changeset between a matched pair of
// resource models. It operates purely on the flattened attribute space, so
// ordering of the underlying source maps never leaks into the output.
package diff

import (
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/normalize"
	"github.com/driftscan/driftscan/internal/errors"
)

type Engine struct {
	rules *normalize.RuleSet
}

func NewEngine(rules *normalize.RuleSet) *Engine {
	if rules == nil {
		rules = normalize.EmptyRuleSet()
	}
	return &Engine{rules: rules}
}

// Diff walks the union of both attribute path sets and emits one entry per
// differing leaf: Removed when only declared, Added when only observed,
// Modified when present on both sides but unequal under the kind's
// equivalence relation. Entries are ordered lexicographically by path.
func (e *Engine) Diff(declared, observed domain.ResourceModel) ([]domain.DiffEntry, error) {
	if declared.Address != observed.Address {
		return nil, errors.Newf(errors.CodeDiffError,
			"cannot diff resources with different addresses: %q vs %q", declared.Address, observed.Address)
	}
	if declared.Origin != domain.OriginDeclared || observed.Origin != domain.OriginObserved {
		return nil, errors.Newf(errors.CodeDiffError,
			"diff requires a declared/observed pair, got %s/%s", declared.Origin, observed.Origin)
	}

	kindRules := e.rules.ForKind(declared.Kind)

	union := make(map[string]struct{}, len(declared.Attributes)+len(observed.Attributes))
	for p := range declared.Attributes {
		union[p] = struct{}{}
	}
	for p := range observed.Attributes {
		union[p] = struct{}{}
	}
	paths := make([]string, 0, len(union))
	for p := range union {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var entries []domain.DiffEntry
	for _, path := range paths {
		dv, dOK := declared.Attributes[path]
		ov, oOK := observed.Attributes[path]

		switch {
		case dOK && !oOK:
			entries = append(entries, domain.DiffEntry{
				Path:     path,
				Declared: dv,
				Change:   domain.ChangeRemoved,
			})
		case !dOK && oOK:
			entries = append(entries, domain.DiffEntry{
				Path:     path,
				Observed: ov,
				Change:   domain.ChangeAdded,
			})
		default:
			if !equalValues(path, dv, ov, kindRules) {
				entries = append(entries, domain.DiffEntry{
					Path:     path,
					Declared: dv,
					Observed: ov,
					Change:   domain.ChangeModified,
				})
			}
		}
	}
	return entries, nil
}

func equalValues(path string, a, b any, kindRules normalize.KindRules) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, aOK := a.(float64); aOK {
		if bf, bOK := b.(float64); bOK {
			if tol, computed := kindRules.Tolerance(path); computed {
				d := af - bf
				return d <= tol && d >= -tol
			}
			return af == bf
		}
	}

	if as, aOK := a.([]any); aOK {
		if bs, bOK := b.([]any); bOK {
			// Set-marked paths were canonically sorted by the normalizer, so
			// element-wise comparison gives multiset semantics; everything
			// else compares order-sensitive.
			if len(as) != len(bs) {
				return false
			}
			for i := range as {
				if !equalValues(path, as[i], bs[i], kindRules) {
					return false
				}
			}
			return true
		}
		return false
	}

	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

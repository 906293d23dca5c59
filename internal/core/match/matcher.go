// Package match pairs declared resources with observed resources by their
// stable address. Matching is a single pass over hash indexes, never a
// pairwise comparison, so large inventories stay O(n).
package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

// Pair holds a declared resource and the observed resource sharing its
// address. Pairs are consumed by the diff engine and not persisted.
type Pair struct {
	Declared domain.ResourceModel
	Observed domain.ResourceModel
}

type Result struct {
	Pairs     []Pair
	Orphans   []domain.ResourceModel // declared but absent from the platform
	Unmanaged []domain.ResourceModel // observed with no declaration
}

// AmbiguousAddressError reports duplicate addresses within one origin set.
// Drift results keyed on a non-unique address would be meaningless, so this
// aborts the run.
type AmbiguousAddressError struct {
	Origin    domain.Origin
	Addresses []string
}

func (e *AmbiguousAddressError) Error() string {
	return fmt.Sprintf("duplicate %s addresses: %s", e.Origin, strings.Join(e.Addresses, ", "))
}

type Matcher struct {
	logger ports.Logger
}

func NewMatcher(logger ports.Logger) *Matcher {
	return &Matcher{logger: logger}
}

func (m *Matcher) Match(ctx context.Context, declared, observed []domain.ResourceModel) (Result, error) {
	declaredIndex, err := buildIndex(declared, domain.OriginDeclared)
	if err != nil {
		return Result{}, err
	}
	observedIndex, err := buildIndex(observed, domain.OriginObserved)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Pairs:     make([]Pair, 0, len(declared)),
		Orphans:   make([]domain.ResourceModel, 0),
		Unmanaged: make([]domain.ResourceModel, 0),
	}

	for _, dec := range declared {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		obs, found := observedIndex[dec.Address]
		if !found {
			result.Orphans = append(result.Orphans, dec)
			continue
		}
		result.Pairs = append(result.Pairs, Pair{Declared: dec, Observed: obs})
	}

	for _, obs := range observed {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if _, found := declaredIndex[obs.Address]; !found {
			result.Unmanaged = append(result.Unmanaged, obs)
		}
	}

	if m.logger != nil {
		m.logger.Debugf(ctx, "matching complete: %d paired, %d orphaned, %d unmanaged",
			len(result.Pairs), len(result.Orphans), len(result.Unmanaged))
	}
	return result, nil
}

func buildIndex(models []domain.ResourceModel, origin domain.Origin) (map[string]domain.ResourceModel, error) {
	index := make(map[string]domain.ResourceModel, len(models))
	var duplicates []string
	seenDup := make(map[string]struct{})

	for _, m := range models {
		if _, exists := index[m.Address]; exists {
			if _, seen := seenDup[m.Address]; !seen {
				duplicates = append(duplicates, m.Address)
				seenDup[m.Address] = struct{}{}
			}
			continue
		}
		index[m.Address] = m
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		ambiguous := &AmbiguousAddressError{Origin: origin, Addresses: duplicates}
		return nil, errors.WrapUserFacing(ambiguous, errors.CodeAmbiguousAddress,
			ambiguous.Error(),
			"Ensure every resource in the "+origin.String()+" set has a unique address.")
	}
	return index, nil
}

package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/errors"
	"github.com/driftscan/driftscan/internal/log"
)

func model(address string, origin domain.Origin) domain.ResourceModel {
	return domain.ResourceModel{
		Address:    address,
		Kind:       "aws_security_group",
		Attributes: map[string]any{},
		Origin:     origin,
	}
}

func TestMatchPairsByAddress(t *testing.T) {
	m := NewMatcher(log.NewNop())
	declared := []domain.ResourceModel{
		model("sg.web", domain.OriginDeclared),
		model("sg.db", domain.OriginDeclared),
	}
	observed := []domain.ResourceModel{
		model("sg.db", domain.OriginObserved),
		model("sg.web", domain.OriginObserved),
	}

	result, err := m.Match(context.Background(), declared, observed)
	require.NoError(t, err)
	assert.Len(t, result.Pairs, 2)
	assert.Empty(t, result.Orphans)
	assert.Empty(t, result.Unmanaged)
}

func TestMatchOrphanAppearsExactlyOnce(t *testing.T) {
	m := NewMatcher(log.NewNop())
	declared := []domain.ResourceModel{model("web-sg", domain.OriginDeclared)}

	result, err := m.Match(context.Background(), declared, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Pairs)
	require.Len(t, result.Orphans, 1)
	assert.Equal(t, "web-sg", result.Orphans[0].Address)
	assert.Empty(t, result.Unmanaged)
}

func TestMatchUnmanagedResource(t *testing.T) {
	m := NewMatcher(log.NewNop())
	observed := []domain.ResourceModel{model("shadow-instance-1", domain.OriginObserved)}

	result, err := m.Match(context.Background(), nil, observed)
	require.NoError(t, err)
	require.Len(t, result.Unmanaged, 1)
	assert.Equal(t, "shadow-instance-1", result.Unmanaged[0].Address)
}

func TestMatchDuplicateDeclaredAddressAborts(t *testing.T) {
	m := NewMatcher(log.NewNop())
	declared := []domain.ResourceModel{
		model("db-1", domain.OriginDeclared),
		model("db-1", domain.OriginDeclared),
	}

	_, err := m.Match(context.Background(), declared, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeAmbiguousAddress))
	assert.Contains(t, err.Error(), "db-1")
}

func TestMatchDuplicateObservedAddressAborts(t *testing.T) {
	m := NewMatcher(log.NewNop())
	observed := []domain.ResourceModel{
		model("i-abc", domain.OriginObserved),
		model("i-abc", domain.OriginObserved),
	}

	_, err := m.Match(context.Background(), nil, observed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeAmbiguousAddress))
}

func TestMatchPartitionCoversEveryAddressOnce(t *testing.T) {
	m := NewMatcher(log.NewNop())
	declared := []domain.ResourceModel{
		model("a", domain.OriginDeclared),
		model("b", domain.OriginDeclared),
		model("c", domain.OriginDeclared),
	}
	observed := []domain.ResourceModel{
		model("b", domain.OriginObserved),
		model("c", domain.OriginObserved),
		model("d", domain.OriginObserved),
	}

	result, err := m.Match(context.Background(), declared, observed)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, p := range result.Pairs {
		seen[p.Declared.Address]++
	}
	for _, o := range result.Orphans {
		seen[o.Address]++
	}
	for _, u := range result.Unmanaged {
		seen[u.Address]++
	}

	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen)
}

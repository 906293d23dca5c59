package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
	"github.com/driftscan/driftscan/internal/log"
)

const testRules = `
version: 1
kinds:
  aws_s3_bucket:
    case_insensitive: [acl]
    trim_trailing_slash: [website.endpoint]
    set_paths: [allowed_origins]
    computed_defaults:
      - path: force_destroy
        value: false
    computed_numeric:
      - path: replica_count
        tolerance: 1.0
  aws_security_group:
    set_paths: [ingress]
  "*":
    set_paths: [shared_set]
`

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	rs, err := ParseRuleSet([]byte(testRules))
	require.NoError(t, err)
	return New(rs, log.NewNop())
}

func TestNormalizeRejectsUnderivableIdentity(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.Normalize(ports.RawRecord{Kind: "aws_s3_bucket"}, domain.OriginDeclared)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNormalization))

	_, err = n.Normalize(ports.RawRecord{Address: "aws_s3_bucket.data"}, domain.OriginObserved)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeNormalization))
}

func TestNormalizeCanonicalizesBoolStrings(t *testing.T) {
	n := newTestNormalizer(t)

	asString, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"versioning": map[string]any{"enabled": "true"}},
	}, domain.OriginDeclared)
	require.NoError(t, err)

	asBool, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"versioning": map[string]any{"enabled": true}},
	}, domain.OriginObserved)
	require.NoError(t, err)

	assert.Equal(t, asBool.Attributes["versioning.enabled"], asString.Attributes["versioning.enabled"])
}

func TestNormalizeCaseInsensitiveEnum(t *testing.T) {
	n := newTestNormalizer(t)
	out, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"acl": "Private"},
	}, domain.OriginObserved)
	require.NoError(t, err)
	assert.Equal(t, "private", out.Attributes["acl"])
}

func TestNormalizeTrailingSlash(t *testing.T) {
	n := newTestNormalizer(t)
	out, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"website": map[string]any{"endpoint": "https://example.com/"}},
	}, domain.OriginDeclared)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", out.Attributes["website.endpoint"])
}

func TestNormalizeSetPathsAreSorted(t *testing.T) {
	n := newTestNormalizer(t)
	a, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"allowed_origins": []any{"https://b.example", "https://a.example"}},
	}, domain.OriginDeclared)
	require.NoError(t, err)

	b, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"allowed_origins": []any{"https://a.example", "https://b.example"}},
	}, domain.OriginObserved)
	require.NoError(t, err)

	assert.Equal(t, b.Attributes["allowed_origins"], a.Attributes["allowed_origins"])
}

func TestNormalizeObjectSetOrderIsCanonical(t *testing.T) {
	n := newTestNormalizer(t)
	a, err := n.Normalize(ports.RawRecord{
		Address: "aws_security_group.web",
		Kind:    "aws_security_group",
		Body: map[string]any{"ingress": []any{
			map[string]any{"port": 80, "cidr_blocks": []any{"0.0.0.0/0"}},
			map[string]any{"port": 443, "cidr_blocks": []any{"0.0.0.0/0"}},
		}},
	}, domain.OriginDeclared)
	require.NoError(t, err)

	b, err := n.Normalize(ports.RawRecord{
		Address: "aws_security_group.web",
		Kind:    "aws_security_group",
		Body: map[string]any{"ingress": []any{
			map[string]any{"port": 443, "cidr_blocks": []any{"0.0.0.0/0"}},
			map[string]any{"port": 80, "cidr_blocks": []any{"0.0.0.0/0"}},
		}},
	}, domain.OriginObserved)
	require.NoError(t, err)

	// Object elements get their index segments only after the sequence is
	// put in canonical order, so both records flatten identically.
	assert.Equal(t, b.Attributes, a.Attributes)
	assert.ElementsMatch(t,
		[]any{a.Attributes["ingress.0.port"], a.Attributes["ingress.1.port"]},
		[]any{float64(80), float64(443)})
}

func TestNormalizeComputedDefaultTreatedAsAbsent(t *testing.T) {
	n := newTestNormalizer(t)
	out, err := n.Normalize(ports.RawRecord{
		Address: "aws_s3_bucket.a",
		Kind:    "aws_s3_bucket",
		Body:    map[string]any{"force_destroy": false, "acl": "private"},
	}, domain.OriginObserved)
	require.NoError(t, err)

	_, present := out.Attributes["force_destroy"]
	assert.False(t, present, "provider-injected default should normalize to absent")
	assert.Equal(t, "private", out.Attributes["acl"])
}

func TestNormalizeNumbersShareCanonicalForm(t *testing.T) {
	n := newTestNormalizer(t)
	out, err := n.Normalize(ports.RawRecord{
		Address: "aws_instance.web",
		Kind:    "aws_instance",
		Body:    map[string]any{"count": 3},
	}, domain.OriginDeclared)
	require.NoError(t, err)
	assert.Equal(t, float64(3), out.Attributes["count"])
}

func TestWildcardKindRulesApplyEverywhere(t *testing.T) {
	n := newTestNormalizer(t)
	out, err := n.Normalize(ports.RawRecord{
		Address: "kubernetes.Deployment/default/web",
		Kind:    "kubernetes.Deployment",
		Body:    map[string]any{"shared_set": []any{"z", "a"}},
	}, domain.OriginDeclared)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "z"}, out.Attributes["shared_set"])
}

func TestParseRuleSetRejectsUnknownKeys(t *testing.T) {
	_, err := ParseRuleSet([]byte("kinds:\n  x:\n    not_a_rule: [a]\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CodeEquivalenceRule))
}

func TestOriginIsPreserved(t *testing.T) {
	n := newTestNormalizer(t)
	out, err := n.Normalize(ports.RawRecord{
		Address: "aws_instance.web",
		Kind:    "aws_instance",
		Body:    map[string]any{},
	}, domain.OriginObserved)
	require.NoError(t, err)
	assert.Equal(t, domain.OriginObserved, out.Origin)
}

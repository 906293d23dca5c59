package normalize

import (
	"os"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/driftscan/driftscan/internal/errors"
	"github.com/driftscan/driftscan/pkg/flatten"
)

// WildcardKind applies a rule group to every resource kind.
const WildcardKind = "*"

// ComputedDefault marks a provider-injected default: when the attribute at
// Path carries exactly Value, it is treated as absent rather than
// present-and-different.
type ComputedDefault struct {
	Path  string `mapstructure:"path"`
	Value any    `mapstructure:"value"`
}

// NumericRule marks a path as computed-numeric, compared within Tolerance.
type NumericRule struct {
	Path      string  `mapstructure:"path"`
	Tolerance float64 `mapstructure:"tolerance"`
}

// KindRules is the per-resource-kind field equivalence configuration. It is
// the primary lever for suppressing false-positive drift and extends per
// kind without touching the diff engine.
type KindRules struct {
	SetPaths          []string          `mapstructure:"set_paths"`
	CaseInsensitive   []string          `mapstructure:"case_insensitive"`
	TrimTrailingSlash []string          `mapstructure:"trim_trailing_slash"`
	ComputedDefaults  []ComputedDefault `mapstructure:"computed_defaults"`
	ComputedNumeric   []NumericRule     `mapstructure:"computed_numeric"`
}

type RuleSet struct {
	Version int                  `mapstructure:"version"`
	Kinds   map[string]KindRules `mapstructure:"kinds"`
}

// EmptyRuleSet returns a rule set with no equivalences configured.
func EmptyRuleSet() *RuleSet {
	return &RuleSet{Kinds: map[string]KindRules{}}
}

// LoadRuleSet reads a versioned equivalence rule table from a YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigReadError, "failed to read equivalence rule file")
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes YAML rule data. The document is decoded into loose
// maps first, then into the typed rule structures, so unknown keys surface
// as load-time errors instead of being silently dropped.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeEquivalenceRule, "equivalence rule file is not valid YAML")
	}

	rs := EmptyRuleSet()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      rs,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to build rule decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeEquivalenceRule, "malformed equivalence rule entry")
	}
	if rs.Kinds == nil {
		rs.Kinds = map[string]KindRules{}
	}
	return rs, nil
}

// ForKind resolves the effective rules for a kind, layering kind-specific
// entries over the wildcard group.
func (rs *RuleSet) ForKind(kind string) KindRules {
	base := rs.Kinds[WildcardKind]
	specific, ok := rs.Kinds[kind]
	if !ok {
		return base
	}
	merged := KindRules{
		SetPaths:          append(append([]string{}, base.SetPaths...), specific.SetPaths...),
		CaseInsensitive:   append(append([]string{}, base.CaseInsensitive...), specific.CaseInsensitive...),
		TrimTrailingSlash: append(append([]string{}, base.TrimTrailingSlash...), specific.TrimTrailingSlash...),
		ComputedDefaults:  append(append([]ComputedDefault{}, base.ComputedDefaults...), specific.ComputedDefaults...),
		ComputedNumeric:   append(append([]NumericRule{}, base.ComputedNumeric...), specific.ComputedNumeric...),
	}
	return merged
}

func (kr KindRules) IsSetPath(path string) bool {
	for _, p := range kr.SetPaths {
		if flatten.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (kr KindRules) IsCaseInsensitive(path string) bool {
	for _, p := range kr.CaseInsensitive {
		if path == p {
			return true
		}
	}
	return false
}

func (kr KindRules) TrimsTrailingSlash(path string) bool {
	for _, p := range kr.TrimTrailingSlash {
		if path == p {
			return true
		}
	}
	return false
}

func (kr KindRules) DefaultFor(path string) (any, bool) {
	for _, d := range kr.ComputedDefaults {
		if d.Path == path {
			return d.Value, true
		}
	}
	return nil, false
}

// Tolerance returns the configured tolerance for a computed-numeric path.
// All other numeric fields require exact equality.
func (kr KindRules) Tolerance(path string) (float64, bool) {
	for _, n := range kr.ComputedNumeric {
		if flatten.HasPrefix(path, n.Path) {
			return n.Tolerance, true
		}
	}
	return 0, false
}

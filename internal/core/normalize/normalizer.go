package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
	"github.com/driftscan/driftscan/pkg/flatten"
)

// Normalizer maps raw adapter records into ResourceModel instances, applying
// the per-kind equivalence rules so semantically identical values share one
// canonical representation before diffing.
type Normalizer struct {
	rules  *RuleSet
	logger ports.Logger
}

func New(rules *RuleSet, logger ports.Logger) *Normalizer {
	if rules == nil {
		rules = EmptyRuleSet()
	}
	return &Normalizer{rules: rules, logger: logger}
}

func (n *Normalizer) Normalize(raw ports.RawRecord, origin domain.Origin) (domain.ResourceModel, error) {
	if raw.Address == "" {
		return domain.ResourceModel{}, errors.Newf(errors.CodeNormalization,
			"%s record of kind %q has no derivable address", origin, raw.Kind)
	}
	if raw.Kind == "" {
		return domain.ResourceModel{}, errors.Newf(errors.CodeNormalization,
			"%s record %q has no derivable kind", origin, raw.Address)
	}

	kindRules := n.rules.ForKind(raw.Kind)
	body := raw.Body
	if len(kindRules.SetPaths) > 0 {
		if sorted, ok := presortSets(raw.Body, "", kindRules).(map[string]any); ok {
			body = sorted
		}
	}
	flat := flatten.Map(body)

	attrs := make(map[string]any, len(flat))
	for path, value := range flat {
		canonical := n.canonicalize(path, value, kindRules)

		if def, ok := kindRules.DefaultFor(path); ok {
			if canonicalString(canonical) == canonicalString(n.canonicalize(path, def, kindRules)) {
				continue
			}
		}
		attrs[path] = canonical
	}

	return domain.ResourceModel{
		Address:    raw.Address,
		Kind:       raw.Kind,
		Attributes: attrs,
		Origin:     origin,
	}, nil
}

// presortSets rewrites set-marked sequences into canonical order while the
// body is still nested. Sequences of objects explode into numeric index
// segments during flattening, so their ordering must be fixed here, before
// the indexes are assigned; reordered inputs then flatten to identical
// indexed paths.
func presortSets(value any, path string, kindRules KindRules) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, child := range v {
			out[k] = presortSets(child, joinPath(path, flatten.EscapeSegment(k)), kindRules)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, child := range v {
			out[k] = presortSets(child, joinPath(path, flatten.EscapeSegment(fmt.Sprintf("%v", k))), kindRules)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = presortSets(child, joinPath(path, strconv.Itoa(i)), kindRules)
		}
		if kindRules.IsSetPath(path) {
			sort.SliceStable(out, func(i, j int) bool {
				return elementKey(out[i]) < elementKey(out[j])
			})
		}
		return out
	default:
		return value
	}
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return prefix + "." + segment
}

// elementKey renders a value into a deterministic ordering key for set
// canonicalization. Scalars use the same canonical forms as leaf values so
// mixed encodings of the same element (int vs json.Number, "true" vs true)
// sort identically across records.
func elementKey(v any) string {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("{")
		for _, k := range keys {
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(elementKey(t[k]))
			b.WriteString(";")
		}
		b.WriteString("}")
		return b.String()
	case map[any]any:
		converted := make(map[string]any, len(t))
		for k, child := range t {
			converted[fmt.Sprintf("%v", k)] = child
		}
		return elementKey(converted)
	case []any:
		var b strings.Builder
		b.WriteString("[")
		for _, e := range t {
			b.WriteString(elementKey(e))
			b.WriteString(",")
		}
		b.WriteString("]")
		return b.String()
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return canonicalString(f)
		}
		return canonicalString(t.String())
	case int:
		return canonicalString(float64(t))
	case int32:
		return canonicalString(float64(t))
	case int64:
		return canonicalString(float64(t))
	case uint64:
		return canonicalString(float64(t))
	case float32:
		return canonicalString(float64(t))
	case string:
		if strings.EqualFold(t, "true") {
			return canonicalString(true)
		}
		if strings.EqualFold(t, "false") {
			return canonicalString(false)
		}
		return canonicalString(t)
	default:
		return canonicalString(v)
	}
}

func (n *Normalizer) canonicalize(path string, value any, kindRules KindRules) any {
	switch v := value.(type) {
	case string:
		return n.canonicalizeString(path, v, kindRules)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = n.canonicalize(path, e, kindRules)
		}
		if kindRules.IsSetPath(path) {
			sort.SliceStable(out, func(i, j int) bool {
				return canonicalString(out[i]) < canonicalString(out[j])
			})
		}
		return out
	default:
		return value
	}
}

func (n *Normalizer) canonicalizeString(path, s string, kindRules KindRules) any {
	if strings.EqualFold(s, "true") {
		return true
	}
	if strings.EqualFold(s, "false") {
		return false
	}
	if kindRules.IsCaseInsensitive(path) {
		s = strings.ToLower(s)
	}
	if kindRules.TrimsTrailingSlash(path) {
		s = strings.TrimSuffix(s, "/")
	}
	return s
}

// canonicalString gives a total ordering key for set canonicalization and a
// comparable form for default suppression.
func canonicalString(v any) string {
	switch t := v.(type) {
	case float64:
		return fmt.Sprintf("n:%g", t)
	case bool:
		return fmt.Sprintf("b:%t", t)
	case string:
		return "s:" + t
	default:
		return fmt.Sprintf("v:%v", t)
	}
}

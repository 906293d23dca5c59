// Package classify assigns severity and category to diff entries from an
// externally supplied rule table. Security relevance is domain knowledge,
// not a structural property of the diff, so it lives entirely in data.
package classify

import (
	"sort"
	"strings"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/pkg/flatten"
)

const (
	// WildcardKind matches any resource kind, WildcardPath any field path.
	WildcardKind = "*"
	WildcardPath = "*"

	// DefaultCategory tags entries no rule claimed.
	DefaultCategory = "uncategorized"
)

// Rule maps one (kind, path) pattern to a severity and category. Path is an
// exact flattened path, a prefix ending in ".*", or "*". ChangeKinds, when
// set, restricts the rule to those change kinds.
type Rule struct {
	Kind        string              `yaml:"kind"`
	Path        string              `yaml:"path"`
	Severity    domain.Severity     `yaml:"severity"`
	Category    string              `yaml:"category"`
	ChangeKinds []domain.ChangeKind `yaml:"change_kinds,omitempty"`
}

func (r Rule) appliesTo(change domain.ChangeKind) bool {
	if len(r.ChangeKinds) == 0 {
		return true
	}
	for _, ck := range r.ChangeKinds {
		if ck == change {
			return true
		}
	}
	return false
}

type prefixRule struct {
	prefix string
	rule   Rule
}

// Table is the compiled rule table. Lookup runs the full ladder for the
// concrete kind first: exact (kind, path), then the longest matching
// (kind, prefix), then (kind, *). Only when the concrete kind yields
// nothing does the wildcard kind's ladder run, and after that the global
// default (Informational). Classification is a pure function of its inputs.
type Table struct {
	exact    map[string]map[string][]Rule // kind -> path -> rules
	prefixes map[string][]prefixRule      // kind -> prefix rules, longest first
	wildcard map[string][]Rule            // kind -> catch-all rules
}

// DefaultTable returns a table with no rules, so every entry falls through
// to the global default severity and category.
func DefaultTable() *Table {
	return newTable(nil)
}

func newTable(rules []Rule) *Table {
	t := &Table{
		exact:    make(map[string]map[string][]Rule),
		prefixes: make(map[string][]prefixRule),
		wildcard: make(map[string][]Rule),
	}
	for _, r := range rules {
		switch {
		case r.Path == WildcardPath:
			t.wildcard[r.Kind] = append(t.wildcard[r.Kind], r)
		case strings.HasSuffix(r.Path, ".*"):
			prefix := strings.TrimSuffix(r.Path, ".*")
			t.prefixes[r.Kind] = append(t.prefixes[r.Kind], prefixRule{prefix: prefix, rule: r})
		default:
			if t.exact[r.Kind] == nil {
				t.exact[r.Kind] = make(map[string][]Rule)
			}
			t.exact[r.Kind][r.Path] = append(t.exact[r.Kind][r.Path], r)
		}
	}
	for kind := range t.prefixes {
		sort.SliceStable(t.prefixes[kind], func(i, j int) bool {
			return len(t.prefixes[kind][i].prefix) > len(t.prefixes[kind][j].prefix)
		})
	}
	return t
}

// Classify resolves severity and category for one diff entry.
func (t *Table) Classify(kind, path string, change domain.ChangeKind) (domain.Severity, string) {
	for _, k := range []string{kind, WildcardKind} {
		if sev, cat, ok := t.classifyForKind(k, path, change); ok {
			return sev, cat
		}
	}
	return domain.SeverityInformational, DefaultCategory
}

func (t *Table) classifyForKind(kind, path string, change domain.ChangeKind) (domain.Severity, string, bool) {
	if rules, ok := t.exact[kind][path]; ok {
		for _, r := range rules {
			if r.appliesTo(change) {
				return r.Severity, r.Category, true
			}
		}
	}
	for _, pr := range t.prefixes[kind] {
		if flatten.HasPrefix(path, pr.prefix) && pr.rule.appliesTo(change) {
			return pr.rule.Severity, pr.rule.Category, true
		}
	}
	for _, r := range t.wildcard[kind] {
		if r.appliesTo(change) {
			return r.Severity, r.Category, true
		}
	}
	return "", "", false
}

// ClassifyEntries annotates a changeset. The input ordering (lexicographic
// by path, from the diff engine) is preserved.
func (t *Table) ClassifyEntries(kind string, entries []domain.DiffEntry) []domain.ClassifiedEntry {
	out := make([]domain.ClassifiedEntry, 0, len(entries))
	for _, e := range entries {
		sev, cat := t.Classify(kind, e.Path, e.Change)
		out = append(out, domain.ClassifiedEntry{
			DiffEntry: e,
			Severity:  sev,
			Category:  cat,
		})
	}
	return out
}

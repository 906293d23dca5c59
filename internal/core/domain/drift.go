package domain

type ChangeKind string

const (
	ChangeAdded    ChangeKind = "ADDED"
	ChangeRemoved  ChangeKind = "REMOVED"
	ChangeModified ChangeKind = "MODIFIED"
)

type Severity string

const (
	SeverityCritical      Severity = "CRITICAL"
	SeverityHigh          Severity = "HIGH"
	SeverityMedium        Severity = "MEDIUM"
	SeverityLow           Severity = "LOW"
	SeverityInformational Severity = "INFORMATIONAL"
)

// KnownSeverities lists valid severities from most to least severe.
var KnownSeverities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInformational,
}

func (s Severity) Valid() bool {
	for _, known := range KnownSeverities {
		if s == known {
			return true
		}
	}
	return false
}

// DiffEntry is one field-level difference between a matched declared/observed
// pair. For ChangeAdded the declared value is absent, for ChangeRemoved the
// observed value is absent.
type DiffEntry struct {
	Path     string     `json:"path"`
	Declared any        `json:"declared_value,omitempty"`
	Observed any        `json:"observed_value,omitempty"`
	Change   ChangeKind `json:"change"`
}

// ClassifiedEntry is a DiffEntry annotated with its security relevance.
type ClassifiedEntry struct {
	DiffEntry
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
}

// ResourceDrift holds all classified differences for one matched pair.
type ResourceDrift struct {
	Address string            `json:"address"`
	Kind    string            `json:"kind"`
	Entries []ClassifiedEntry `json:"entries"`
}

// UnanalyzableRecord reports a raw record that could not be normalized.
// Such records are surfaced in the report rather than silently dropped.
type UnanalyzableRecord struct {
	Address string `json:"address,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Origin  Origin `json:"origin"`
	Reason  string `json:"reason"`
}

type SeveritySummary struct {
	Critical      int `json:"critical"`
	High          int `json:"high"`
	Medium        int `json:"medium"`
	Low           int `json:"low"`
	Informational int `json:"informational"`
}

func (s *SeveritySummary) Add(sev Severity) {
	switch sev {
	case SeverityCritical:
		s.Critical++
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	case SeverityLow:
		s.Low++
	case SeverityInformational:
		s.Informational++
	}
}

type ReportSummary struct {
	ResourcesCompared int             `json:"resources_compared"`
	Drifted           int             `json:"drifted"`
	Orphaned          int             `json:"orphaned"`
	Unmanaged         int             `json:"unmanaged"`
	Unanalyzable      int             `json:"unanalyzable"`
	Severities        SeveritySummary `json:"severities"`
}

// DriftReport is the final, immutable output of a run. Section ordering is
// total and input-order independent: drifts, orphans and unmanaged resources
// are each sorted by address so repeated runs on identical input serialize
// byte-identically.
type DriftReport struct {
	Drifts       []ResourceDrift      `json:"drifts"`
	Orphans      []ResourceRef        `json:"orphans"`
	Unmanaged    []ResourceRef        `json:"unmanaged"`
	Unanalyzable []UnanalyzableRecord `json:"unanalyzable,omitempty"`
	Summary      ReportSummary        `json:"summary"`
}

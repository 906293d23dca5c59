package domain

import "sort"

// Origin identifies which side of the comparison a resource came from.
type Origin string

const (
	OriginDeclared Origin = "declared"
	OriginObserved Origin = "observed"
)

func (o Origin) String() string {
	return string(o)
}

// ResourceModel is the dialect-agnostic representation of one infrastructure
// resource. Attributes are fully flattened: nested maps become dotted paths,
// nested sequences of complex values become indexed paths, and sequences of
// scalars stay as leaf values so ordered and set comparison both work on the
// same shape.
type ResourceModel struct {
	Address    string
	Kind       string
	Attributes map[string]any
	Origin     Origin
}

// Paths returns the flattened attribute paths in lexicographic order.
func (r ResourceModel) Paths() []string {
	paths := make([]string, 0, len(r.Attributes))
	for p := range r.Attributes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ResourceRef identifies a resource in report sections that carry no
// attribute data (orphans and unmanaged resources).
type ResourceRef struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
}

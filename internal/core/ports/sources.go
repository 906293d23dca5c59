package ports

import "context"

// RawRecord is one dialect-specific resource as produced by a source adapter,
// before normalization. Address and Kind are hints derived by the adapter;
// Body is the adapter's nested attribute structure. The core never parses
// templates or calls provider APIs itself.
type RawRecord struct {
	Address string
	Kind    string
	Body    map[string]any
}

// DeclaredSource produces raw records from an IaC template
// (Terraform HCL, CloudFormation JSON, Kubernetes manifests).
type DeclaredSource interface {
	Type() string
	Records(ctx context.Context) ([]RawRecord, error)
}

// ObservedSource produces raw records describing deployed resources,
// either from a recorded state snapshot or a live platform API.
type ObservedSource interface {
	Type() string
	Records(ctx context.Context) ([]RawRecord, error)
}

// Package tfstate reads observed resource records from a Terraform state
// snapshot in `terraform show -json` format. It is a thin front-end: records
// pass to the normalizer untouched beyond address/kind extraction.
package tfstate

import (
	"context"
	"os"
	"sync"

	tfjson "github.com/hashicorp/terraform-json"

	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

const SourceTypeTFState = "tfstate"

type Config struct {
	FilePath string `yaml:"file_path" mapstructure:"file_path"`
}

type Source struct {
	config Config
	logger ports.Logger

	mu      sync.Mutex
	cached  []ports.RawRecord
	loadErr error
	loaded  bool
}

func NewSource(cfg Config, logger ports.Logger) (*Source, error) {
	if cfg.FilePath == "" {
		return nil, errors.New(errors.CodeConfigValidation, "tfstate source requires a file path")
	}
	return &Source{config: cfg, logger: logger}, nil
}

func (s *Source) Type() string {
	return SourceTypeTFState
}

func (s *Source) Records(ctx context.Context) ([]ports.RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.cached, s.loadErr
	}
	s.cached, s.loadErr = s.load(ctx)
	s.loaded = true
	return s.cached, s.loadErr
}

func (s *Source) load(ctx context.Context) ([]ports.RawRecord, error) {
	data, err := os.ReadFile(s.config.FilePath)
	if err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeSourceReadError,
			"failed to read state snapshot "+s.config.FilePath,
			"Generate it with `terraform show -json > state.json`.")
	}

	var state tfjson.State
	state.UseJSONNumber(true)
	if err := state.UnmarshalJSON(data); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceParseError, "failed to parse state snapshot")
	}

	var records []ports.RawRecord
	if state.Values != nil && state.Values.RootModule != nil {
		records = s.collectModule(ctx, state.Values.RootModule, records)
	}
	s.logger.Debugf(ctx, "Loaded %d resources from state snapshot %s", len(records), s.config.FilePath)
	return records, nil
}

func (s *Source) collectModule(ctx context.Context, module *tfjson.StateModule, records []ports.RawRecord) []ports.RawRecord {
	for _, res := range module.Resources {
		if ctx.Err() != nil {
			return records
		}
		if res.Mode != tfjson.ManagedResourceMode {
			continue
		}
		records = append(records, ports.RawRecord{
			Address: res.Address,
			Kind:    res.Type,
			Body:    res.AttributeValues,
		})
	}
	for _, child := range module.ChildModules {
		records = s.collectModule(ctx, child, records)
	}
	return records
}

// Package tfhcl reads declared resource records from Terraform HCL files.
// Only statically evaluable expressions are carried into records; attributes
// referencing variables or other resources are skipped with a debug log,
// since full evaluation is a template-engine concern, not a drift one.
package tfhcl

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

const SourceTypeTFHCL = "tfhcl"

type Config struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
}

type Source struct {
	config Config
	logger ports.Logger
}

func NewSource(cfg Config, logger ports.Logger) (*Source, error) {
	if cfg.Directory == "" {
		return nil, errors.New(errors.CodeConfigValidation, "tfhcl source requires a directory")
	}
	return &Source{config: cfg, logger: logger}, nil
}

func (s *Source) Type() string {
	return SourceTypeTFHCL
}

func (s *Source) Records(ctx context.Context) ([]ports.RawRecord, error) {
	entries, err := os.ReadDir(s.config.Directory)
	if err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeSourceReadError,
			"failed to read template directory "+s.config.Directory,
			"Check that the directory exists and contains .tf files.")
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".tf") {
			files = append(files, filepath.Join(s.config.Directory, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, errors.NewUserFacing(errors.CodeSourceReadError,
			"no .tf files found in "+s.config.Directory, "Point the declared source at a Terraform module directory.")
	}

	parser := hclparse.NewParser()
	var records []ports.RawRecord
	for _, path := range files {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		file, diags := parser.ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, errors.Wrap(diags, errors.CodeSourceParseError, "failed to parse "+path)
		}
		body, ok := file.Body.(*hclsyntax.Body)
		if !ok {
			return nil, errors.New(errors.CodeSourceParseError, "unexpected HCL body type in "+path)
		}
		records = append(records, s.collectResources(ctx, body)...)
	}

	s.logger.Debugf(ctx, "Parsed %d resource blocks from %d template files", len(records), len(files))
	return records, nil
}

func (s *Source) collectResources(ctx context.Context, body *hclsyntax.Body) []ports.RawRecord {
	var records []ports.RawRecord
	for _, block := range body.Blocks {
		if block.Type != "resource" || len(block.Labels) != 2 {
			continue
		}
		resourceType, name := block.Labels[0], block.Labels[1]
		records = append(records, ports.RawRecord{
			Address: resourceType + "." + name,
			Kind:    resourceType,
			Body:    s.convertBody(ctx, block.Body),
		})
	}
	return records
}

func (s *Source) convertBody(ctx context.Context, body *hclsyntax.Body) map[string]any {
	out := make(map[string]any)

	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !val.IsWhollyKnown() {
			s.logger.Debugf(ctx, "Skipping non-literal attribute %q at %s", name, attr.SrcRange.String())
			continue
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			s.logger.Debugf(ctx, "Skipping unconvertible attribute %q: %v", name, err)
			continue
		}
		out[name] = goVal
	}

	// Nested blocks become lists of objects under the block type, the shape
	// Terraform state uses for the same constructs.
	for _, block := range body.Blocks {
		nested := s.convertBody(ctx, block.Body)
		existing, ok := out[block.Type].([]any)
		if !ok {
			existing = nil
		}
		out[block.Type] = append(existing, any(nested))
	}
	return out
}

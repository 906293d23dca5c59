// Package cfn reads declared resource records from a CloudFormation
// template in JSON form. Logical IDs serve as addresses; the external
// deployment tooling is responsible for keeping them stable.
package cfn

import (
	"context"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

const SourceTypeCFN = "cloudformation"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct {
	FilePath string `yaml:"file_path" mapstructure:"file_path"`
}

type template struct {
	AWSTemplateFormatVersion string                      `json:"AWSTemplateFormatVersion"`
	Resources                map[string]templateResource `json:"Resources"`
}

type templateResource struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties"`
}

type Source struct {
	config Config
	logger ports.Logger
}

func NewSource(cfg Config, logger ports.Logger) (*Source, error) {
	if cfg.FilePath == "" {
		return nil, errors.New(errors.CodeConfigValidation, "cloudformation source requires a file path")
	}
	return &Source{config: cfg, logger: logger}, nil
}

func (s *Source) Type() string {
	return SourceTypeCFN
}

func (s *Source) Records(ctx context.Context) ([]ports.RawRecord, error) {
	data, err := os.ReadFile(s.config.FilePath)
	if err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeSourceReadError,
			"failed to read CloudFormation template "+s.config.FilePath,
			"Check the template path.")
	}

	var tmpl template
	if err := json.Unmarshal(data, &tmpl); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceParseError, "failed to parse CloudFormation template")
	}
	if len(tmpl.Resources) == 0 {
		return nil, errors.NewUserFacing(errors.CodeSourceParseError,
			"CloudFormation template has no Resources section", "Check that this is a deployable template.")
	}

	records := make([]ports.RawRecord, 0, len(tmpl.Resources))
	for logicalID, res := range tmpl.Resources {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		body := res.Properties
		if body == nil {
			body = map[string]any{}
		}
		records = append(records, ports.RawRecord{
			Address: logicalID,
			Kind:    res.Type,
			Body:    body,
		})
	}
	s.logger.Debugf(ctx, "Loaded %d resources from CloudFormation template %s", len(records), s.config.FilePath)
	return records, nil
}

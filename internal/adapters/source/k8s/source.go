// Package k8s reads declared resource records from Kubernetes manifest
// files. Each document in a multi-document YAML stream becomes one record,
// addressed by kind, namespace and name.
package k8s

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/errors"
)

const SourceTypeK8s = "kubernetes"

// defaultNamespace stands in when a manifest omits metadata.namespace,
// matching the cluster-side default.
const defaultNamespace = "default"

type Config struct {
	FilePath string `yaml:"file_path" mapstructure:"file_path"`
}

type Source struct {
	config Config
	logger ports.Logger
}

func NewSource(cfg Config, logger ports.Logger) (*Source, error) {
	if cfg.FilePath == "" {
		return nil, errors.New(errors.CodeConfigValidation, "kubernetes source requires a manifest path")
	}
	return &Source{config: cfg, logger: logger}, nil
}

func (s *Source) Type() string {
	return SourceTypeK8s
}

func (s *Source) Records(ctx context.Context) ([]ports.RawRecord, error) {
	data, err := os.ReadFile(s.config.FilePath)
	if err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeSourceReadError,
			"failed to read manifest "+s.config.FilePath,
			"Check the manifest path.")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var records []ports.RawRecord
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, errors.CodeSourceParseError, "failed to parse manifest "+s.config.FilePath)
		}
		if len(doc) == 0 {
			continue
		}
		record, err := s.recordFromDoc(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	s.logger.Debugf(ctx, "Loaded %d objects from manifest %s", len(records), s.config.FilePath)
	return records, nil
}

func (s *Source) recordFromDoc(doc map[string]any) (ports.RawRecord, error) {
	kind, _ := doc["kind"].(string)
	if kind == "" {
		return ports.RawRecord{}, errors.New(errors.CodeSourceParseError, "manifest document has no kind")
	}
	meta, _ := doc["metadata"].(map[string]any)
	name, _ := meta["name"].(string)
	if name == "" {
		return ports.RawRecord{}, errors.New(errors.CodeSourceParseError, "manifest document has no metadata.name")
	}
	namespace, _ := meta["namespace"].(string)
	if namespace == "" {
		namespace = defaultNamespace
	}

	// apiVersion and kind are identity, not configuration, and status is
	// server-owned; none of them belong in the comparable body.
	body := make(map[string]any, len(doc))
	for k, v := range doc {
		switch k {
		case "apiVersion", "kind", "status":
			continue
		}
		body[k] = v
	}

	return ports.RawRecord{
		Address: strings.ToLower(kind) + "/" + namespace + "/" + name,
		Kind:    "kubernetes." + kind,
		Body:    body,
	}, nil
}

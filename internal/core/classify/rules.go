package classify

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/driftscan/driftscan/internal/core/domain"
	"github.com/driftscan/driftscan/internal/errors"
)

type ruleFile struct {
	Version int        `mapstructure:"version" validate:"required,min=1"`
	Rules   []ruleSpec `mapstructure:"rules" validate:"required,min=1,dive"`
}

type ruleSpec struct {
	Kind        string   `mapstructure:"kind" validate:"required"`
	Path        string   `mapstructure:"path" validate:"required"`
	Severity    string   `mapstructure:"severity" validate:"required"`
	Category    string   `mapstructure:"category" validate:"required"`
	ChangeKinds []string `mapstructure:"change_kinds"`
}

// LoadTable reads and compiles a versioned classification rule table from a
// YAML file. Malformed entries are fatal at load time, before any resource
// processing begins.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigReadError, "failed to read classification rule file")
	}
	return ParseTable(data)
}

func ParseTable(data []byte) (*Table, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeClassificationRule, "classification rule file is not valid YAML")
	}

	var file ruleFile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &file,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to build rule decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeClassificationRule, "malformed classification rule entry")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(file); err != nil {
		return nil, errors.WrapUserFacing(err, errors.CodeClassificationRule,
			"classification rule table failed validation",
			"Every rule needs kind, path, severity and category.")
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		rule, err := compileRule(spec)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeClassificationRule,
				fmt.Sprintf("rule %d is invalid", i))
		}
		rules = append(rules, rule)
	}
	return newTable(rules), nil
}

func compileRule(spec ruleSpec) (Rule, error) {
	severity := domain.Severity(strings.ToUpper(spec.Severity))
	if !severity.Valid() {
		return Rule{}, fmt.Errorf("unknown severity %q", spec.Severity)
	}

	changeKinds := make([]domain.ChangeKind, 0, len(spec.ChangeKinds))
	for _, ck := range spec.ChangeKinds {
		kind := domain.ChangeKind(strings.ToUpper(ck))
		switch kind {
		case domain.ChangeAdded, domain.ChangeRemoved, domain.ChangeModified:
			changeKinds = append(changeKinds, kind)
		default:
			return Rule{}, fmt.Errorf("unknown change kind %q", ck)
		}
	}

	return Rule{
		Kind:        spec.Kind,
		Path:        spec.Path,
		Severity:    severity,
		Category:    spec.Category,
		ChangeKinds: changeKinds,
	}, nil
}

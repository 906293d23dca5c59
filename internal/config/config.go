// Package config defines the application configuration tree. Exactly one
// declared source and one observed source must be configured; which one is
// chosen by populating its section.
package config

import (
	awscollector "github.com/driftscan/driftscan/internal/adapters/collector/aws"
	"github.com/driftscan/driftscan/internal/adapters/source/cfn"
	"github.com/driftscan/driftscan/internal/adapters/source/k8s"
	"github.com/driftscan/driftscan/internal/adapters/source/tfhcl"
	"github.com/driftscan/driftscan/internal/adapters/source/tfstate"
	"github.com/driftscan/driftscan/internal/log"
	jsonreport "github.com/driftscan/driftscan/internal/reporting/json"
	"github.com/driftscan/driftscan/internal/reporting/text"
)

type Config struct {
	Settings SettingsConfig `yaml:"settings" mapstructure:"settings"`
	Declared DeclaredConfig `yaml:"declared" mapstructure:"declared"`
	Observed ObservedConfig `yaml:"observed" mapstructure:"observed"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
}

type SettingsConfig struct {
	LogLevel     log.Level       `yaml:"log_level" mapstructure:"log_level"`
	LogFormat    log.Format      `yaml:"log_format" mapstructure:"log_format"`
	Concurrency  int             `yaml:"concurrency" mapstructure:"concurrency" validate:"gte=0,lte=64"`
	ReporterType string          `yaml:"reporter" mapstructure:"reporter" validate:"omitempty,oneof=text json"`
	OutputPath   string          `yaml:"output" mapstructure:"output"`
	Reporter     ReporterConfigs `yaml:"reporter_config" mapstructure:"reporter_config"`
}

type DeclaredConfig struct {
	TFHCL *tfhcl.Config `yaml:"tfhcl,omitempty" mapstructure:"tfhcl"`
	CFN   *cfn.Config   `yaml:"cloudformation,omitempty" mapstructure:"cloudformation"`
	K8s   *k8s.Config   `yaml:"kubernetes,omitempty" mapstructure:"kubernetes"`
}

type ObservedConfig struct {
	TFState *tfstate.Config      `yaml:"tfstate,omitempty" mapstructure:"tfstate"`
	AWS     *awscollector.Config `yaml:"aws,omitempty" mapstructure:"aws"`
}

// RulesConfig points at the optional YAML rule files. Empty paths mean no
// equivalence rules and default-only classification.
type RulesConfig struct {
	EquivalencePath    string `yaml:"equivalence" mapstructure:"equivalence"`
	ClassificationPath string `yaml:"classification" mapstructure:"classification"`
}

type ReporterConfigs struct {
	Text *text.Config       `yaml:"text,omitempty" mapstructure:"text"`
	JSON *jsonreport.Config `yaml:"json,omitempty" mapstructure:"json"`
}

// DeclaredCount reports how many declared source sections are populated.
func (c *DeclaredConfig) DeclaredCount() int {
	n := 0
	if c.TFHCL != nil {
		n++
	}
	if c.CFN != nil {
		n++
	}
	if c.K8s != nil {
		n++
	}
	return n
}

// ObservedCount reports how many observed source sections are populated.
func (c *ObservedConfig) ObservedCount() int {
	n := 0
	if c.TFState != nil {
		n++
	}
	if c.AWS != nil {
		n++
	}
	return n
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:     log.LevelInfo,
			LogFormat:    log.FormatText,
			Concurrency:  10,
			ReporterType: text.ReporterTypeText,
			Reporter: ReporterConfigs{
				Text: &text.Config{NoColor: false},
			},
		},
	}
}

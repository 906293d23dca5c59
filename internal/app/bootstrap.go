package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	awscollector "github.com/driftscan/driftscan/internal/adapters/collector/aws"
	"github.com/driftscan/driftscan/internal/adapters/source/cfn"
	"github.com/driftscan/driftscan/internal/adapters/source/k8s"
	"github.com/driftscan/driftscan/internal/adapters/source/tfhcl"
	"github.com/driftscan/driftscan/internal/adapters/source/tfstate"
	"github.com/driftscan/driftscan/internal/config"
	"github.com/driftscan/driftscan/internal/core/classify"
	"github.com/driftscan/driftscan/internal/core/diff"
	"github.com/driftscan/driftscan/internal/core/match"
	"github.com/driftscan/driftscan/internal/core/normalize"
	"github.com/driftscan/driftscan/internal/core/ports"
	"github.com/driftscan/driftscan/internal/core/service"
	"github.com/driftscan/driftscan/internal/errors"
	"github.com/driftscan/driftscan/internal/log"
	jsonreport "github.com/driftscan/driftscan/internal/reporting/json"
	"github.com/driftscan/driftscan/internal/reporting/text"
)

// BuildApplicationFromViper turns the merged configuration (file, env,
// flags) into a runnable application.
func BuildApplicationFromViper(ctx context.Context, v *viper.Viper) (*Application, error) {
	cfg := config.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}

	logger, err := log.NewLogger(log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	}

	if err := validateConfig(ctx, cfg); err != nil {
		logger.Errorf(ctx, err, "Configuration validation failed")
		return nil, err
	}

	registry := service.NewComponentRegistry()

	declared, err := buildDeclaredSource(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := registry.RegisterDeclaredSource(declared); err != nil {
		return nil, err
	}

	observed, err := buildObservedSource(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := registry.RegisterObservedSource(observed); err != nil {
		return nil, err
	}
	logger.Infof(ctx, "Comparing %s (declared) against %s (observed)", declared.Type(), observed.Type())

	ruleSet, err := loadEquivalenceRules(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	table, err := loadClassificationTable(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	output, cleanup, err := openOutput(cfg.Settings.OutputPath)
	if err != nil {
		return nil, err
	}
	if err := registerReporters(registry, cfg, output, logger); err != nil {
		cleanup()
		return nil, err
	}
	reporter, err := registry.GetReporter(cfg.Settings.ReporterType)
	if err != nil {
		cleanup()
		return nil, err
	}

	pipeline, err := service.NewPipeline(service.PipelineParams{
		Declared:    declared,
		Observed:    observed,
		Normalizer:  normalize.New(ruleSet, logger.WithFields(map[string]any{"component": "normalizer"})),
		Matcher:     match.NewMatcher(logger.WithFields(map[string]any{"component": "matcher"})),
		Differ:      diff.NewEngine(ruleSet),
		Classifier:  table,
		Reporter:    reporter,
		Logger:      logger.WithFields(map[string]any{"component": "pipeline"}),
		Concurrency: cfg.Settings.Concurrency,
	})
	if err != nil {
		cleanup()
		return nil, err
	}

	logger.Debugf(ctx, "Application bootstrap complete")
	return NewApplication(pipeline, logger, func() error { cleanup(); return nil }), nil
}

func validateConfig(ctx context.Context, cfg *config.Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(ctx, cfg); err != nil {
		var details strings.Builder
		details.WriteString("configuration validation failed:")
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range validationErrors {
				details.WriteString(fmt.Sprintf("\n - field %q failed %q (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			details.WriteString(" " + err.Error())
		}
		return errors.NewUserFacing(errors.CodeConfigValidation, details.String(),
			"Check your configuration file and flags.")
	}

	if n := cfg.Declared.DeclaredCount(); n != 1 {
		return errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("exactly one declared source must be configured, found %d", n),
			"Configure one of declared.tfhcl, declared.cloudformation or declared.kubernetes.")
	}
	if n := cfg.Observed.ObservedCount(); n != 1 {
		return errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("exactly one observed source must be configured, found %d", n),
			"Configure one of observed.tfstate or observed.aws.")
	}
	return nil
}

func buildDeclaredSource(cfg *config.Config, logger ports.Logger) (ports.DeclaredSource, error) {
	switch {
	case cfg.Declared.TFHCL != nil:
		return tfhcl.NewSource(*cfg.Declared.TFHCL, logger.WithFields(map[string]any{"source": tfhcl.SourceTypeTFHCL}))
	case cfg.Declared.CFN != nil:
		return cfn.NewSource(*cfg.Declared.CFN, logger.WithFields(map[string]any{"source": cfn.SourceTypeCFN}))
	case cfg.Declared.K8s != nil:
		return k8s.NewSource(*cfg.Declared.K8s, logger.WithFields(map[string]any{"source": k8s.SourceTypeK8s}))
	}
	return nil, errors.New(errors.CodeConfigValidation, "no declared source configured")
}

func buildObservedSource(ctx context.Context, cfg *config.Config, logger ports.Logger) (ports.ObservedSource, error) {
	switch {
	case cfg.Observed.TFState != nil:
		return tfstate.NewSource(*cfg.Observed.TFState, logger.WithFields(map[string]any{"source": tfstate.SourceTypeTFState}))
	case cfg.Observed.AWS != nil:
		return awscollector.NewSource(ctx, *cfg.Observed.AWS, logger.WithFields(map[string]any{"source": awscollector.SourceTypeAWS}))
	}
	return nil, errors.New(errors.CodeConfigValidation, "no observed source configured")
}

func loadEquivalenceRules(ctx context.Context, cfg *config.Config, logger ports.Logger) (*normalize.RuleSet, error) {
	if cfg.Rules.EquivalencePath == "" {
		logger.Debugf(ctx, "No equivalence rules configured, using canonical forms only")
		return normalize.EmptyRuleSet(), nil
	}
	ruleSet, err := normalize.LoadRuleSet(cfg.Rules.EquivalencePath)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "Loaded equivalence rules from %s", cfg.Rules.EquivalencePath)
	return ruleSet, nil
}

func loadClassificationTable(ctx context.Context, cfg *config.Config, logger ports.Logger) (*classify.Table, error) {
	if cfg.Rules.ClassificationPath == "" {
		logger.Debugf(ctx, "No classification rules configured, all drift reports as informational")
		return classify.DefaultTable(), nil
	}
	table, err := classify.LoadTable(cfg.Rules.ClassificationPath)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "Loaded classification rules from %s", cfg.Rules.ClassificationPath)
	return table, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.WrapUserFacing(err, errors.CodeReportError,
			"failed to open report output file "+path, "Check the output path is writable.")
	}
	return f, func() { f.Close() }, nil
}

func registerReporters(registry *service.ComponentRegistry, cfg *config.Config, output io.Writer, logger ports.Logger) error {
	textCfg := text.Config{}
	if cfg.Settings.Reporter.Text != nil {
		textCfg = *cfg.Settings.Reporter.Text
	}
	if err := registry.RegisterReporter(text.ReporterTypeText,
		text.NewReporter(textCfg, output, logger.WithFields(map[string]any{"reporter": text.ReporterTypeText}))); err != nil {
		return err
	}

	jsonCfg := jsonreport.Config{}
	if cfg.Settings.Reporter.JSON != nil {
		jsonCfg = *cfg.Settings.Reporter.JSON
	}
	return registry.RegisterReporter(jsonreport.ReporterTypeJSON,
		jsonreport.NewReporter(jsonCfg, output, logger.WithFields(map[string]any{"reporter": jsonreport.ReporterTypeJSON})))
}

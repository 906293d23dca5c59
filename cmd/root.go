package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/driftscan/driftscan/internal/app"
	apperrors "github.com/driftscan/driftscan/internal/errors"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	templatePath string
	providerType string
	statePath    string
	outputPath   string
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:   "driftscan",
	Short: "Detects drift between declared infrastructure and observed state.",
	Long: `driftscan compares resources declared in IaC templates (Terraform HCL,
CloudFormation, Kubernetes manifests) against an observed snapshot (Terraform
state or live AWS APIs) and reports field-level drift with severity
classification.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlagOverrides(viper.GetViper())

		application, err := app.BuildApplicationFromViper(cmd.Context(), viper.GetViper())
		if err != nil {
			printUserFacing(err)
			return err
		}

		if _, err := application.Run(cmd.Context()); err != nil {
			printUserFacing(err)
			return err
		}
		return nil
	},
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is ./driftscan.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text, json)")

	rootCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Declared template path (directory for tfhcl, file otherwise)")
	rootCmd.Flags().StringVarP(&providerType, "provider", "p", "tfhcl", "Declared template format (tfhcl, cloudformation, kubernetes)")
	rootCmd.Flags().StringVarP(&statePath, "state", "s", "", "Observed source: a Terraform state file path, or 'aws' for live collection")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	rootCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Emit the report as JSON")

	viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	viper.SetEnvPrefix("DRIFTSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("driftscan")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}
	return nil
}

// applyFlagOverrides maps the short template/state flags onto the config
// tree, so flags and config files go through the same bootstrap path.
func applyFlagOverrides(v *viper.Viper) {
	if templatePath != "" {
		switch providerType {
		case "cloudformation":
			v.Set("declared.cloudformation.file_path", templatePath)
		case "kubernetes":
			v.Set("declared.kubernetes.file_path", templatePath)
		default:
			v.Set("declared.tfhcl.directory", templatePath)
		}
	}
	if statePath != "" {
		if statePath == "aws" {
			v.Set("observed.aws", map[string]any{})
		} else {
			v.Set("observed.tfstate.file_path", statePath)
		}
	}
	if outputPath != "" {
		v.Set("settings.output", outputPath)
	}
	if jsonOutput {
		v.Set("settings.reporter", "json")
	}
}

func printUserFacing(err error) {
	msg, suggestion, ok := apperrors.GetUserFacingMessage(err)
	if !ok {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", msg)
	if suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
	}
}

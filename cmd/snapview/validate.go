package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snapview/snapview/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a SnapView configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  snapview validate -c config.yaml
  snapview validate --config /etc/snapview/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	listen := cfg.ListenAddress()
	if listen == "" {
		listen = "(disabled)"
	}
	template := cfg.TemplateFile
	if template == "" {
		template = "(embedded default)"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Camera:        %s\n", cfg.CameraName)
	fmt.Printf("  Listen:        %s\n", listen)
	fmt.Printf("  Refresh delay: %s\n", cfg.RefreshDelay.Duration())
	fmt.Printf("  Template:      %s\n", template)
	fmt.Printf("  Source:        %dx%d every %s\n",
		cfg.Source.Width, cfg.Source.Height, cfg.Source.FrameInterval.Duration())

	return nil
}

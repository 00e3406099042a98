// Package cmd provides the CLI commands for embroidery-pricing.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"embroidery-pricing/internal/app"
	"embroidery-pricing/internal/config"
	"embroidery-pricing/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile      string
	verbose      bool
	outputFormat string
	profilesPath string
	record       bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "embroidery-pricing",
	Short: "Price embroidery orders, shipping and digitizing",
	Long: `embroidery-pricing computes shipping costs, carrier rates, order prices
and digitizing quotes from per-tenant pricing profiles.

Examples:
  embroidery-pricing ship --tenant acme --item shirt:2 --item hoodie:1:heavy
  embroidery-pricing price --tenant acme --file order.json
  embroidery-pricing quote --tenant acme --width 4 --height 3 --rush
  embroidery-pricing profiles import ./profiles`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// Execute runs the CLI
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json)")
	rootCmd.PersistentFlags().StringVar(&profilesPath, "profiles", "", "HCL profile file or directory (overrides profiles.source)")
	rootCmd.PersistentFlags().BoolVar(&record, "record", false, "save calculations to the configured storage backend")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	switch outputFormat {
	case formatText, formatJSON:
	default:
		return fmt.Errorf("unsupported format %q (use text or json)", outputFormat)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if profilesPath != "" {
		cfg.Profiles.Source = "hcl"
		cfg.Profiles.Path = profilesPath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	config.Set(cfg)

	// logs go to stderr so stdout stays machine readable
	logCfg := cfg.Logging
	if logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	if !verbose && logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	if err := logging.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
	return nil
}

// openApp wires the engine from the loaded configuration
func openApp(cmd *cobra.Command) (*app.App, error) {
	return app.New(cmd.Context(), config.Get(), logging.Named("cli"))
}

// recordResult saves one calculation when --record is set
func recordResult(cmd *cobra.Command, a *app.App, r recordable) {
	if !record || a.Store == nil {
		return
	}
	rec, err := r.toRecord()
	if err == nil {
		err = a.Store.Save(cmd.Context(), rec)
	}
	if err != nil {
		logging.Warn("calculation not recorded", zap.Error(err))
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "recorded calculation %s\n", rec.ID)
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "embroidery-pricing version %s\n", Version)
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *config.Get()
		if cfg.Rates.Secret != "" {
			cfg.Rates.Secret = "********"
		}
		if cfg.Redis.Password != "" {
			cfg.Redis.Password = "********"
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

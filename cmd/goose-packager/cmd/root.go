package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/block/goose-packager/internal/config"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/service/packager"
	"github.com/block/goose-packager/internal/target"
	"github.com/block/goose-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// temporalVersion overrides the external temporal CLI release version.
	temporalVersion string
	// skipTemporal disables the external artifact fetch.
	skipTemporal bool
	// strict requires all optional artifacts to be present.
	strict bool
	// logLevel sets the minimum log level.
	logLevel string

	// rootCmd represents the base command assembling a release archive.
	rootCmd = &cobra.Command{
		Use:   "goose-packager [architecture]",
		Short: "Build and package a goose release archive for a target architecture",
		Long: "Resolve the target platform, build the goose CLI and the temporal-service " +
			"companion binary, optionally fetch the temporal CLI from its release host, " +
			"and assemble everything into one compressed archive. " +
			"Supported architectures: " + strings.Join(target.Supported(), ", ") + ". " +
			"With no argument the architecture comes from " + config.EnvArchitecture + " or the host.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if lvl, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(lvl)
			}

			options := &packager.Options{
				ConfigPath:      configPath,
				TemporalVersion: temporalVersion,
				SkipTemporal:    skipTemporal,
				Strict:          strict,
			}

			if len(args) > 0 {
				options.Architecture = args[0]
			}

			return packager.Run(ctx, options)
		},
	}
)

// Execute runs the goose-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&temporalVersion, "temporal-version", "", "temporal CLI release version to fetch")
	rootCmd.Flags().BoolVar(&skipTemporal, "skip-temporal", false, "skip the external temporal CLI fetch")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "fail when any optional artifact is missing")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level (debug, info, warn, error)")
}

package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gookit/color"
	"github.com/mitchellh/go-ps"

	"github.com/block/goose-packager/internal/config"
	"github.com/block/goose-packager/internal/fetch"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/pipeline"
	"github.com/block/goose-packager/internal/target"
	"github.com/block/goose-packager/internal/toolchain"
)

// Options contains inputs for the packager entry point.
// Non-zero values override the corresponding configuration fields.
type Options struct {
	// ConfigPath is an optional path to the settings YAML (defaults to goose-packager.yaml).
	ConfigPath string
	// Architecture is the target architecture token from the command line.
	Architecture string
	// TemporalVersion overrides the temporal CLI release version.
	TemporalVersion string
	// SkipTemporal disables the external artifact fetch.
	SkipTemporal bool
	// Strict promotes recovered warnings to a failure once the run completes.
	Strict bool
}

// errStrictIncomplete is returned in strict mode when optional artifacts are missing.
var errStrictIncomplete = errors.New("strict mode: run completed with missing optional artifacts")

// run holds the state of a single packaging execution.
// It is unexported; callers use Run, which encapsulates setup and validation.
type run struct {
	cfg *config.Config
	tgt *target.Target

	// tool dispatches external toolchain invocations; tests substitute a fake.
	tool toolchain.Runner
	// fetcher retrieves the external artifact when the fetch is enabled.
	fetcher *fetch.Fetcher
	// temporalSpec describes the external artifact download.
	temporalSpec *fetch.Spec

	// staging accumulates artifacts destined for the final archive.
	staging *pipeline.StagingSet
	// extraEnv is populated by the environment step and threaded into builds.
	extraEnv []string

	archivePath  string
	manifestPath string
}

// Run executes the packaging workflow for the resolved target.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "goose-packager")

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// Target resolution is the only validation before any side effect, so it
	// runs before environment setup, builds and network access.
	tgt, err := resolveTarget(cfg)
	if err != nil {
		return err
	}

	warnIfAlreadyRunning(ctx)

	r := newRun(cfg, tgt)

	p := pipeline.New(r.steps()...)
	if err = p.Run(ctx); err != nil {
		color.Danger.Printf("\nPackaging failed: %v\n", err)
		return err
	}

	return r.finish(ctx, p.Warnings())
}

// finish replays absorbed warnings and renders the final banner. In strict
// mode any warning turns the completed run into a failure.
func (r *run) finish(ctx context.Context, warnings []pipeline.Warning) error {
	reportWarnings(ctx, warnings)

	if r.cfg.Strict && len(warnings) > 0 {
		color.Danger.Printf("\nPackaging incomplete: %d optional artifact(s) missing\n", len(warnings))
		return fmt.Errorf("%w (%d warning(s))", errStrictIncomplete, len(warnings))
	}

	color.Success.Printf("\nPackaged %s\n", r.archivePath)

	return nil
}

// newRun wires a run with the real toolchain runner and release spec.
// Tests replace tool and temporalSpec before building steps.
func newRun(cfg *config.Config, tgt *target.Target) *run {
	return &run{
		cfg:          cfg,
		tgt:          tgt,
		tool:         toolchain.ExecRunner{},
		fetcher:      fetch.NewFetcher(cfg.DownloadTimeout, false),
		temporalSpec: fetch.NewTemporalSpec(cfg.TemporalVersion, tgt),
		staging:      pipeline.NewStagingSet(),
	}
}

// loadConfig reads settings and overlays command-line options.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.Architecture != "" {
		cfg.Architecture = opts.Architecture
	}

	if opts.TemporalVersion != "" {
		cfg.TemporalVersion = opts.TemporalVersion
	}

	if opts.SkipTemporal {
		cfg.SkipTemporal = true
	}

	if opts.Strict {
		cfg.Strict = true
	}

	return cfg, nil
}

// resolveTarget picks the architecture token from configuration or the host
// and resolves it into a build target.
func resolveTarget(cfg *config.Config) (*target.Target, error) {
	token := cfg.Architecture
	if token == "" {
		token = target.HostArchitecture()
	}

	return target.Resolve(token)
}

// warnIfAlreadyRunning scans the process table for another packager instance.
// Concurrent runs against the same target tree are the caller's
// responsibility to avoid; this is advisory only.
func warnIfAlreadyRunning(ctx context.Context) {
	processes, err := ps.Processes()
	if err != nil {
		logger.DebugKV(ctx, "Could not scan process table", "error", err)
		return
	}

	self := os.Getpid()

	for _, p := range processes {
		if p.Pid() == self {
			continue
		}

		if p.Executable() == "goose-packager" {
			logger.WarnKV(ctx, "Another packager appears to be running; concurrent runs against the same target tree are unsupported",
				"pid", p.Pid())

			return
		}
	}
}

// reportWarnings replays absorbed failures so a degraded archive is visibly degraded.
func reportWarnings(ctx context.Context, warnings []pipeline.Warning) {
	for _, w := range warnings {
		logger.WarnKV(ctx, "Archive is missing an optional artifact", "step", w.Step, "error", w.Err)
		color.Warn.Printf("warning: %s: %v\n", w.Step, w.Err)
	}
}

// downloadDir returns the transient directory for external artifact downloads.
func (r *run) downloadDir() string {
	return filepath.Join(r.cfg.OutputRoot, r.tgt.Triple, "download")
}

package toolchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/block/goose-packager/internal/fsutil"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/target"
)

// ErrPrimaryBuild is returned when the primary executable cannot be produced
// by either toolchain path.
var ErrPrimaryBuild = errors.New("primary build failed")

// crossTool is the cross-compilation front-end preferred when installed.
const crossTool = "cross"

// nativeTool is the host-native compiler front-end used as fallback.
const nativeTool = "cargo"

// PrimaryBuilder produces the primary executable for a resolved target.
// It prefers the cross-compilation tool and falls back to the host-native
// compiler, normalizing the output into the canonical per-target location.
type PrimaryBuilder struct {
	run        Runner
	rootDir    string
	outputRoot string
	extraEnv   []string
}

// NewPrimaryBuilder returns a builder operating in rootDir and normalizing
// outputs under outputRoot.
func NewPrimaryBuilder(run Runner, rootDir, outputRoot string, extraEnv []string) *PrimaryBuilder {
	return &PrimaryBuilder{
		run:        run,
		rootDir:    rootDir,
		outputRoot: outputRoot,
		extraEnv:   extraEnv,
	}
}

// Build dispatches the primary build and returns the canonical output path.
// A nonzero exit on the chosen toolchain path is fatal for the run.
func (b *PrimaryBuilder) Build(ctx context.Context, t *target.Target) (string, error) {
	canonical := t.PrimaryCanonicalPath(b.outputRoot)

	producedAt, err := b.dispatch(ctx, t)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPrimaryBuild, err)
	}

	// Normalize toward the canonical location. The produced path may already
	// be absent here; verification owns the final existence decision.
	if producedAt != canonical && fsutil.FileExists(producedAt) {
		if err = fsutil.CopyFile(producedAt, canonical); err != nil {
			return "", fmt.Errorf("%w: normalize output: %w", ErrPrimaryBuild, err)
		}

		logger.InfoKV(ctx, "Normalized primary output", "from", producedAt, "to", canonical)
	}

	return canonical, nil
}

// dispatch picks the toolchain path and returns where that path leaves its output.
func (b *PrimaryBuilder) dispatch(ctx context.Context, t *target.Target) (string, error) {
	if _, err := b.run.LookPath(b.extraEnv, crossTool); err == nil {
		logger.InfoKV(ctx, "Building primary executable with cross-compilation tool", "triple", t.Triple)

		if err = b.run.Run(ctx, b.rootDir, b.extraEnv,
			crossTool, "build", "--release", "--target", t.Triple); err != nil {
			return "", fmt.Errorf("%s build for %s: %w", crossTool, t.Triple, err)
		}

		return t.CrossOutputPath(b.rootDir), nil
	}

	logger.InfoKV(ctx, "Cross-compilation tool not installed, building with host-native compiler",
		"triple", t.Triple)

	if err := b.run.Run(ctx, b.rootDir, b.extraEnv, nativeTool, "build", "--release"); err != nil {
		return "", fmt.Errorf("%s build: %w", nativeTool, err)
	}

	return t.HostOutputPath(b.rootDir), nil
}

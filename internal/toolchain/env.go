package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/target"
)

// Environment prepares a reproducible build environment for the toolchain
// steps. Both actions it performs are advisory: a failed activation or target
// registration is logged and the build proceeds with whatever is ambient.
type Environment struct {
	run     Runner
	rootDir string

	// extraEnv is threaded into every later toolchain invocation instead of
	// mutating the process environment.
	extraEnv []string
}

// NewEnvironment returns an Environment rooted at the working checkout.
func NewEnvironment(run Runner, rootDir string) *Environment {
	return &Environment{run: run, rootDir: rootDir}
}

// Prepare activates a pinned toolchain shim when the checkout carries one and
// registers the resolved target with the toolchain manager. Never fails.
func (e *Environment) Prepare(ctx context.Context, t *target.Target) {
	e.activateShim(ctx)
	e.registerTarget(ctx, t)
}

// Env returns the environment additions for later toolchain invocations.
func (e *Environment) Env() []string {
	return append([]string(nil), e.extraEnv...)
}

// activateShim puts a checkout-pinned toolchain directory at the front of
// PATH when present, mirroring what sourcing the shim's activation script
// would do for a shell.
func (e *Environment) activateShim(ctx context.Context) {
	shimDir := filepath.Join(e.rootDir, "bin")

	if _, err := os.Stat(filepath.Join(shimDir, "hermit")); err != nil {
		logger.Debug(ctx, "No pinned toolchain shim in checkout, using ambient environment")
		return
	}

	absShim, err := filepath.Abs(shimDir)
	if err != nil {
		logger.WarnKV(ctx, "Could not resolve toolchain shim directory", "dir", shimDir, "error", err)
		return
	}

	e.extraEnv = append(e.extraEnv, fmt.Sprintf("PATH=%s%c%s", absShim, os.PathListSeparator, os.Getenv("PATH")))

	logger.InfoKV(ctx, "Activated pinned toolchain shim", "dir", absShim)
}

// registerTarget asks the installed toolchain manager for the target's
// standard library. Missing manager or a failed registration is advisory.
func (e *Environment) registerTarget(ctx context.Context, t *target.Target) {
	if _, err := e.run.LookPath(e.extraEnv, "rustup"); err != nil {
		logger.Debug(ctx, "No toolchain manager installed, skipping target registration")
		return
	}

	if err := e.run.Run(ctx, e.rootDir, e.extraEnv, "rustup", "target", "add", t.Triple); err != nil {
		logger.WarnKV(ctx, "Target registration failed, builds may rely on the ambient toolchain",
			"triple", t.Triple, "error", err)
	}
}

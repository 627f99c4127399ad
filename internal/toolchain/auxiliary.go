package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/block/goose-packager/internal/fsutil"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/target"
)

// auxiliaryBuildScript is the companion toolchain's own build entry point,
// relative to the working checkout.
var auxiliaryBuildScript = filepath.Join("temporal-service", "build.sh")

// AuxiliaryBuilder builds the companion service binary through its own
// toolchain. Failure here is absorbed by the pipeline: a CLI-only archive is
// a valid degraded outcome.
type AuxiliaryBuilder struct {
	run      Runner
	rootDir  string
	extraEnv []string
}

// NewAuxiliaryBuilder returns a builder operating in rootDir.
func NewAuxiliaryBuilder(run Runner, rootDir string, extraEnv []string) *AuxiliaryBuilder {
	return &AuxiliaryBuilder{run: run, rootDir: rootDir, extraEnv: extraEnv}
}

// Build normalizes the build script's line endings, runs it for the resolved
// platform pair and returns the produced binary path.
func (b *AuxiliaryBuilder) Build(ctx context.Context, t *target.Target) (string, error) {
	script := filepath.Join(b.rootDir, auxiliaryBuildScript)

	if err := normalizeLineEndings(script); err != nil {
		return "", fmt.Errorf("normalize build script: %w", err)
	}

	env := append(append([]string(nil), b.extraEnv...),
		"GOOS="+t.OS,
		"GOARCH="+t.Arch,
	)

	logger.InfoKV(ctx, "Building auxiliary service binary", "os", t.OS, "arch", t.Arch)

	scriptDir := filepath.Dir(script)
	if err := b.run.Run(ctx, scriptDir, env, "bash", filepath.Base(script)); err != nil {
		return "", fmt.Errorf("auxiliary build script: %w", err)
	}

	produced := t.AuxiliaryOutputPath(b.rootDir)
	if !fsutil.FileExists(produced) {
		return "", fmt.Errorf("auxiliary build script succeeded but %s is missing", produced)
	}

	return produced, nil
}

// normalizeLineEndings rewrites the script with LF endings when a checkout
// introduced CRLF, which would break the interpreter line.
func normalizeLineEndings(path string) error {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	normalized := bytes.ReplaceAll(contents, []byte("\r\n"), []byte("\n"))
	if bytes.Equal(normalized, contents) {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	return os.WriteFile(path, normalized, info.Mode().Perm())
}

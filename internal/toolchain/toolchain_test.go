package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/block/goose-packager/internal/target"
)

// fakeRunner simulates toolchain availability and side effects without
// spawning real processes. Tools in shimOnly resolve only when the lookup
// carries a PATH entry, mirroring a shim-pinned toolchain.
type fakeRunner struct {
	available map[string]bool
	shimOnly  map[string]bool
	calls     [][]string
	onRun     func(dir string, env []string, name string, args []string) error
}

func (f *fakeRunner) Run(_ context.Context, dir string, env []string, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))

	if f.onRun != nil {
		return f.onRun(dir, env, name, args)
	}

	return nil
}

func (f *fakeRunner) LookPath(extraEnv []string, name string) (string, error) {
	if f.available[name] {
		return "/usr/bin/" + name, nil
	}

	if f.shimOnly[name] && len(envPathDirs(extraEnv)) > 0 {
		return "/shim/bin/" + name, nil
	}

	return "", errors.New("executable file not found in $PATH")
}

func resolveTarget(t *testing.T) *target.Target {
	t.Helper()

	resolved, err := target.Resolve("x86_64")
	require.NoError(t, err)

	return resolved
}

// TestPrimaryBuildCross verifies the cross tool is preferred and its output
// is normalized into the canonical location.
func TestPrimaryBuildCross(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	outputRoot := filepath.Join(rootDir, "out")
	tgt := resolveTarget(t)

	run := &fakeRunner{
		available: map[string]bool{crossTool: true},
		onRun: func(_ string, _ []string, name string, _ []string) error {
			require.Equal(t, crossTool, name)

			crossOut := tgt.CrossOutputPath(rootDir)
			require.NoError(t, os.MkdirAll(filepath.Dir(crossOut), 0o755))

			return os.WriteFile(crossOut, []byte("primary"), 0o755)
		},
	}

	b := NewPrimaryBuilder(run, rootDir, outputRoot, nil)

	path, err := b.Build(context.Background(), tgt)
	require.NoError(t, err)
	require.Equal(t, tgt.PrimaryCanonicalPath(outputRoot), path)
	require.FileExists(t, path)

	require.Len(t, run.calls, 1)
	require.Equal(t, []string{crossTool, "build", "--release", "--target", tgt.Triple}, run.calls[0])
}

// TestPrimaryBuildShimCross verifies a cross tool visible only through the
// activated environment's PATH is still discovered and preferred.
func TestPrimaryBuildShimCross(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	outputRoot := filepath.Join(rootDir, "out")
	tgt := resolveTarget(t)

	run := &fakeRunner{shimOnly: map[string]bool{crossTool: true}}

	b := NewPrimaryBuilder(run, rootDir, outputRoot, []string{"PATH=/shim/bin"})

	_, err := b.Build(context.Background(), tgt)
	require.NoError(t, err)

	require.Len(t, run.calls, 1)
	require.Equal(t, crossTool, run.calls[0][0])

	// Without the activated environment the same tool is invisible and the
	// dispatcher falls back to the host-native compiler.
	run = &fakeRunner{shimOnly: map[string]bool{crossTool: true}}
	b = NewPrimaryBuilder(run, rootDir, outputRoot, nil)

	_, err = b.Build(context.Background(), tgt)
	require.NoError(t, err)
	require.Equal(t, nativeTool, run.calls[0][0])
}

// TestPrimaryBuildNativeFallback verifies the host-native compiler is used
// without a triple when the cross tool is absent, and the host output is
// copied to the canonical path.
func TestPrimaryBuildNativeFallback(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	outputRoot := filepath.Join(rootDir, "out")
	tgt := resolveTarget(t)

	run := &fakeRunner{
		available: map[string]bool{},
		onRun: func(_ string, _ []string, name string, args []string) error {
			require.Equal(t, nativeTool, name)
			require.NotContains(t, args, "--target")

			hostOut := tgt.HostOutputPath(rootDir)
			require.NoError(t, os.MkdirAll(filepath.Dir(hostOut), 0o755))

			return os.WriteFile(hostOut, []byte("primary"), 0o755)
		},
	}

	b := NewPrimaryBuilder(run, rootDir, outputRoot, nil)

	path, err := b.Build(context.Background(), tgt)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, tgt.PrimaryCanonicalPath(outputRoot), path)
}

// TestPrimaryBuildFailure verifies a nonzero toolchain exit maps to ErrPrimaryBuild.
func TestPrimaryBuildFailure(t *testing.T) {
	t.Parallel()

	run := &fakeRunner{
		available: map[string]bool{crossTool: true},
		onRun: func(_ string, _ []string, _ string, _ []string) error {
			return errors.New("exit status 101")
		},
	}

	b := NewPrimaryBuilder(run, t.TempDir(), "out", nil)

	_, err := b.Build(context.Background(), resolveTarget(t))
	require.ErrorIs(t, err, ErrPrimaryBuild)
}

// TestVerifyCanonicalPresent verifies no recovery happens when the canonical file exists.
func TestVerifyCanonicalPresent(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	outputRoot := filepath.Join(rootDir, "out")
	tgt := resolveTarget(t)

	canonical := tgt.PrimaryCanonicalPath(outputRoot)
	require.NoError(t, os.MkdirAll(filepath.Dir(canonical), 0o755))
	require.NoError(t, os.WriteFile(canonical, []byte("primary"), 0o755))

	path, err := NewVerifier(rootDir, outputRoot).Verify(context.Background(), tgt)
	require.NoError(t, err)
	require.Equal(t, canonical, path)
}

// TestVerifyRecovery verifies the single recovery copy from the cross output path.
func TestVerifyRecovery(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	outputRoot := filepath.Join(rootDir, "out")
	tgt := resolveTarget(t)

	crossOut := tgt.CrossOutputPath(rootDir)
	require.NoError(t, os.MkdirAll(filepath.Dir(crossOut), 0o755))
	require.NoError(t, os.WriteFile(crossOut, []byte("primary"), 0o755))

	path, err := NewVerifier(rootDir, outputRoot).Verify(context.Background(), tgt)
	require.NoError(t, err)
	require.Equal(t, tgt.PrimaryCanonicalPath(outputRoot), path)
	require.FileExists(t, path)
}

// TestVerifyMissing verifies ErrArtifactMissing when both paths are empty.
func TestVerifyMissing(t *testing.T) {
	t.Parallel()

	_, err := NewVerifier(t.TempDir(), "out").Verify(context.Background(), resolveTarget(t))
	require.ErrorIs(t, err, ErrArtifactMissing)
}

// TestAuxiliaryBuild verifies CRLF normalization and GOOS/GOARCH threading.
func TestAuxiliaryBuild(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	tgt := resolveTarget(t)

	scriptDir := filepath.Join(rootDir, "temporal-service")
	require.NoError(t, os.MkdirAll(scriptDir, 0o755))

	script := filepath.Join(scriptDir, "build.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/bash\r\ngo build\r\n"), 0o755))

	var gotEnv []string

	run := &fakeRunner{
		onRun: func(dir string, env []string, name string, args []string) error {
			require.Equal(t, scriptDir, dir)
			require.Equal(t, "bash", name)
			require.Equal(t, []string{"build.sh"}, args)

			gotEnv = env

			return os.WriteFile(tgt.AuxiliaryOutputPath(rootDir), []byte("aux"), 0o755)
		},
	}

	path, err := NewAuxiliaryBuilder(run, rootDir, nil).Build(context.Background(), tgt)
	require.NoError(t, err)
	require.Equal(t, tgt.AuxiliaryOutputPath(rootDir), path)

	require.Contains(t, gotEnv, "GOOS=linux")
	require.Contains(t, gotEnv, "GOARCH=amd64")

	// Script was rewritten with LF endings before invocation.
	contents, err := os.ReadFile(script)
	require.NoError(t, err)
	require.NotContains(t, string(contents), "\r\n")
}

// TestAuxiliaryBuildScriptFailure verifies a nonzero script exit surfaces as an error.
func TestAuxiliaryBuildScriptFailure(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	scriptDir := filepath.Join(rootDir, "temporal-service")
	require.NoError(t, os.MkdirAll(scriptDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "build.sh"), []byte("#!/bin/bash\n"), 0o755))

	run := &fakeRunner{
		onRun: func(_ string, _ []string, _ string, _ []string) error {
			return errors.New("exit status 1")
		},
	}

	_, err := NewAuxiliaryBuilder(run, rootDir, nil).Build(context.Background(), resolveTarget(t))
	require.ErrorContains(t, err, "auxiliary build script")
}

// TestAuxiliaryBuildMissingScript verifies a checkout without the companion
// service fails cleanly instead of invoking the interpreter.
func TestAuxiliaryBuildMissingScript(t *testing.T) {
	t.Parallel()

	run := &fakeRunner{}

	_, err := NewAuxiliaryBuilder(run, t.TempDir(), nil).Build(context.Background(), resolveTarget(t))
	require.Error(t, err)
	require.Empty(t, run.calls)
}

// TestEnvironmentPrepare covers shim activation and advisory target
// registration, including a toolchain manager visible only through the shim.
func TestEnvironmentPrepare(t *testing.T) {
	t.Parallel()

	rootDir := t.TempDir()
	binDir := filepath.Join(rootDir, "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "hermit"), []byte("#!/bin/sh\n"), 0o755))

	run := &fakeRunner{shimOnly: map[string]bool{"rustup": true}}

	env := NewEnvironment(run, rootDir)
	env.Prepare(context.Background(), resolveTarget(t))

	require.Len(t, env.Env(), 1)
	require.Contains(t, env.Env()[0], "PATH=")
	require.Contains(t, env.Env()[0], binDir)

	require.Len(t, run.calls, 1)
	require.Equal(t, []string{"rustup", "target", "add", "x86_64-unknown-linux-gnu"}, run.calls[0])
}

// TestEnvironmentPrepareBestEffort verifies registration failure never propagates.
func TestEnvironmentPrepareBestEffort(t *testing.T) {
	t.Parallel()

	run := &fakeRunner{
		available: map[string]bool{"rustup": true},
		onRun: func(_ string, _ []string, _ string, _ []string) error {
			return errors.New("no network")
		},
	}

	env := NewEnvironment(run, t.TempDir())
	// Prepare must absorb the failure.
	env.Prepare(context.Background(), resolveTarget(t))
	require.Empty(t, env.Env())
}

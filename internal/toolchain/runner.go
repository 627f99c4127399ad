package toolchain

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Runner abstracts external toolchain invocation so build steps can be
// exercised in tests without the real compilers installed.
type Runner interface {
	// Run executes name with args in dir, with extraEnv appended to the
	// process environment, and waits for completion.
	Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) error
	// LookPath reports the resolved location of an executable, honoring any
	// PATH entry in extraEnv before the ambient execution path. Toolchains
	// pinned by an activated shim are only visible through extraEnv.
	LookPath(extraEnv []string, name string) (string, error)
}

// ExecRunner invokes toolchains as real subprocesses with inherited stdio.
type ExecRunner struct{}

// Run wires the subprocess to the parent's stdio so toolchain output stays
// visible. The command is resolved through LookPath first: exec's own
// resolution only consults the parent environment and would miss shim-pinned
// tools.
func (r ExecRunner) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) error {
	if !strings.ContainsRune(name, os.PathSeparator) {
		if resolved, err := r.LookPath(extraEnv, name); err == nil {
			name = resolved
		}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), extraEnv...)

	return cmd.Run()
}

// LookPath searches the PATH carried in extraEnv first, then defers to
// exec.LookPath against the ambient environment.
func (ExecRunner) LookPath(extraEnv []string, name string) (string, error) {
	for _, dir := range envPathDirs(extraEnv) {
		candidate := filepath.Join(dir, name)

		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0 {
			return candidate, nil
		}
	}

	return exec.LookPath(name)
}

// envPathDirs returns the directories of the last PATH entry in extraEnv.
func envPathDirs(extraEnv []string) []string {
	var pathValue string

	for _, kv := range extraEnv {
		if v, ok := strings.CutPrefix(kv, "PATH="); ok {
			pathValue = v
		}
	}

	if pathValue == "" {
		return nil
	}

	return filepath.SplitList(pathValue)
}

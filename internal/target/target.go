package target

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// ErrUnsupportedTarget is returned when the architecture token is outside the supported set.
var ErrUnsupportedTarget = errors.New("unsupported target architecture")

// PrimaryExecutable is the file name of the primary CLI binary.
const PrimaryExecutable = "goose"

// AuxiliaryExecutable is the file name of the companion service binary.
const AuxiliaryExecutable = "temporal-service"

// ExternalExecutable is the file name of the third-party executable staged from a remote release.
const ExternalExecutable = "temporal"

// Target describes the resolved build platform. It is immutable once resolved.
type Target struct {
	// Name is the user-supplied architecture token, e.g. "x86_64".
	Name string
	// OS is the Go-style operating system identifier passed to the auxiliary toolchain.
	OS string
	// Arch is the Go-style architecture identifier passed to the auxiliary toolchain
	// and used to key external release downloads.
	Arch string
	// Triple is the toolchain triple selecting compiler output layout.
	Triple string
}

// supported maps architecture tokens to resolved targets.
// Resolution is the only validation performed before any side effect,
// so an unknown token aborts the whole run up front.
var supported = map[string]Target{
	"x86_64": {
		Name:   "x86_64",
		OS:     "linux",
		Arch:   "amd64",
		Triple: "x86_64-unknown-linux-gnu",
	},
	"aarch64": {
		Name:   "aarch64",
		OS:     "linux",
		Arch:   "arm64",
		Triple: "aarch64-unknown-linux-gnu",
	},
}

// Resolve maps an architecture token to a Target
// or fails with ErrUnsupportedTarget for tokens outside the supported set.
func Resolve(name string) (*Target, error) {
	t, ok := supported[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %v)", ErrUnsupportedTarget, name, Supported())
	}

	return &t, nil
}

// Supported returns the list of accepted architecture tokens in a fixed order.
func Supported() []string {
	return []string{"x86_64", "aarch64"}
}

// HostArchitecture returns the architecture token matching the host,
// or the empty string when the host architecture is not in the supported set.
func HostArchitecture() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	}

	return ""
}

// The functions below are the single source of truth for artifact locations.
// Build dispatch, verification and packaging all resolve paths through them
// instead of guessing on their own.

// PrimaryCanonicalPath returns the canonical location of the primary executable
// under the output root. Verification and packaging trust only this path.
func (t *Target) PrimaryCanonicalPath(outputRoot string) string {
	return filepath.Join(outputRoot, t.Triple, PrimaryExecutable)
}

// CrossOutputPath returns where the cross-compilation tool places the primary
// executable for this target. Used for recovery copies toward the canonical path.
func (t *Target) CrossOutputPath(rootDir string) string {
	return filepath.Join(rootDir, "target", t.Triple, "release", PrimaryExecutable)
}

// HostOutputPath returns where the host-native compiler places the primary
// executable when invoked without a target triple.
func (t *Target) HostOutputPath(rootDir string) string {
	return filepath.Join(rootDir, "target", "release", PrimaryExecutable)
}

// AuxiliaryOutputPath returns where the companion toolchain's build script
// leaves the auxiliary service binary.
func (t *Target) AuxiliaryOutputPath(rootDir string) string {
	return filepath.Join(rootDir, "temporal-service", AuxiliaryExecutable)
}

// StagingDir returns the transient directory collecting artifacts before archiving.
func (t *Target) StagingDir(outputRoot string) string {
	return filepath.Join(outputRoot, t.Triple, "staging")
}

// ArchiveName returns the deterministic archive file name for this target.
func (t *Target) ArchiveName() string {
	return fmt.Sprintf("goose-%s.tar.gz", t.Triple)
}

// ArchivePath returns the deterministic location of the final archive.
func (t *Target) ArchivePath(outputRoot string) string {
	return filepath.Join(outputRoot, t.Triple, t.ArchiveName())
}

// ManifestPath returns the location of the package manifest written next to the archive.
func (t *Target) ManifestPath(outputRoot string) string {
	return filepath.Join(outputRoot, t.Triple, fmt.Sprintf("goose-%s.yaml", t.Triple))
}

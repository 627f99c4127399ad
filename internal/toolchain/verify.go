package toolchain

import (
	"context"
	"errors"
	"fmt"

	"github.com/block/goose-packager/internal/fsutil"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/target"
)

// ErrArtifactMissing is returned when the primary executable is absent from
// the canonical path and cannot be recovered.
var ErrArtifactMissing = errors.New("primary executable missing after build")

// Verifier confirms the primary executable landed at the canonical path.
// It is the only unconditional gate between building and packaging.
type Verifier struct {
	rootDir    string
	outputRoot string
}

// NewVerifier returns a verifier resolving paths the same way the builder does.
func NewVerifier(rootDir, outputRoot string) *Verifier {
	return &Verifier{rootDir: rootDir, outputRoot: outputRoot}
}

// Verify checks the canonical path, attempting exactly one recovery copy from
// the cross tool's per-target output before declaring failure.
func (v *Verifier) Verify(ctx context.Context, t *target.Target) (string, error) {
	canonical := t.PrimaryCanonicalPath(v.outputRoot)
	if fsutil.FileExists(canonical) {
		return canonical, nil
	}

	recovery := t.CrossOutputPath(v.rootDir)
	if fsutil.FileExists(recovery) {
		logger.WarnKV(ctx, "Primary executable absent from canonical path, recovering",
			"canonical", canonical, "recovery", recovery)

		if err := fsutil.CopyFile(recovery, canonical); err != nil {
			return "", fmt.Errorf("%w: recovery copy: %w", ErrArtifactMissing, err)
		}

		return canonical, nil
	}

	return "", fmt.Errorf("%w: checked %s and %s", ErrArtifactMissing, canonical, recovery)
}

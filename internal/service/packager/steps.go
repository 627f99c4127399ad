package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/block/goose-packager/internal/archive"
	"github.com/block/goose-packager/internal/fsutil"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/manifest"
	"github.com/block/goose-packager/internal/pipeline"
	"github.com/block/goose-packager/internal/target"
	"github.com/block/goose-packager/internal/toolchain"
)

// ErrPackaging is returned when the final staging or archiving step fails.
var ErrPackaging = errors.New("packaging failed")

// step adapts a named run method to the pipeline.Step interface.
type step struct {
	name string
	fn   func(ctx context.Context) pipeline.Result
}

func (s step) Name() string { return s.name }

func (s step) Run(ctx context.Context) pipeline.Result { return s.fn(ctx) }

// steps returns the pipeline stages in their fixed order. Only the primary
// build, its verification and packaging can produce fatal results; every
// other stage always transitions forward.
func (r *run) steps() []pipeline.Step {
	return []pipeline.Step{
		step{"environment", r.prepareEnvironment},
		step{"primary-build", r.buildPrimary},
		step{"verify-primary", r.verifyPrimary},
		step{"auxiliary-build", r.buildAuxiliary},
		step{"external-fetch", r.fetchExternal},
		step{"package", r.pack},
	}
}

// prepareEnvironment activates the pinned toolchain environment best-effort
// and captures its additions for the build steps.
func (r *run) prepareEnvironment(ctx context.Context) pipeline.Result {
	env := toolchain.NewEnvironment(r.tool, r.cfg.RootDir)
	env.Prepare(ctx, r.tgt)
	r.extraEnv = env.Env()

	return pipeline.Ok("")
}

// buildPrimary dispatches the primary executable build. Failure is fatal.
func (r *run) buildPrimary(ctx context.Context) pipeline.Result {
	builder := toolchain.NewPrimaryBuilder(r.tool, r.cfg.RootDir, r.cfg.OutputRoot, r.extraEnv)

	path, err := builder.Build(ctx, r.tgt)
	if err != nil {
		return pipeline.Fatal(err)
	}

	return pipeline.Ok(path)
}

// verifyPrimary gates packaging on the canonical primary artifact. Failure is fatal.
func (r *run) verifyPrimary(ctx context.Context) pipeline.Result {
	verifier := toolchain.NewVerifier(r.cfg.RootDir, r.cfg.OutputRoot)

	path, err := verifier.Verify(ctx, r.tgt)
	if err != nil {
		return pipeline.Fatal(err)
	}

	r.staging.Add(target.PrimaryExecutable, path)

	return pipeline.Ok(path)
}

// buildAuxiliary builds the companion service binary. Failure is absorbed:
// a CLI-only archive is a valid degraded outcome.
func (r *run) buildAuxiliary(ctx context.Context) pipeline.Result {
	builder := toolchain.NewAuxiliaryBuilder(r.tool, r.cfg.RootDir, r.extraEnv)

	path, err := builder.Build(ctx, r.tgt)
	if err != nil {
		return pipeline.Recovered(err)
	}

	r.staging.Add(target.AuxiliaryExecutable, path)

	return pipeline.Ok(path)
}

// fetchExternal retrieves the third-party executable. Skippable, and any
// failure is absorbed: this depends on infrastructure outside our control.
func (r *run) fetchExternal(ctx context.Context) pipeline.Result {
	if r.cfg.SkipTemporal {
		return pipeline.Skipped("external fetch disabled")
	}

	path, err := r.fetcher.Fetch(ctx, r.temporalSpec, r.downloadDir())
	if err != nil {
		return pipeline.Recovered(err)
	}

	r.staging.Add(target.ExternalExecutable, path)

	return pipeline.Ok(path)
}

// pack copies every staged artifact that still exists into a fresh staging
// directory and compresses it into the final archive. Fails only on
// filesystem errors or a missing primary artifact.
func (r *run) pack(ctx context.Context) pipeline.Result {
	stagingDir := r.tgt.StagingDir(r.cfg.OutputRoot)

	if err := fsutil.RecreateDir(stagingDir); err != nil {
		return pipeline.Fatal(fmt.Errorf("%w: %w", ErrPackaging, err))
	}

	// Second, defensive existence check independent of step-level bookkeeping.
	staged := make([]pipeline.Entry, 0, r.staging.Len())

	for _, e := range r.staging.Existing() {
		dest := filepath.Join(stagingDir, e.Name)
		if err := fsutil.CopyFile(e.Path, dest); err != nil {
			return pipeline.Fatal(fmt.Errorf("%w: stage %s: %w", ErrPackaging, e.Name, err))
		}

		staged = append(staged, pipeline.Entry{Name: e.Name, Path: dest})
	}

	primaryStaged := false

	for _, e := range staged {
		if e.Name == target.PrimaryExecutable {
			primaryStaged = true
			break
		}
	}

	if !primaryStaged {
		return pipeline.Fatal(fmt.Errorf("%w: %w", ErrPackaging, toolchain.ErrArtifactMissing))
	}

	archivePath := r.tgt.ArchivePath(r.cfg.OutputRoot)
	if err := archive.Create(stagingDir, archivePath); err != nil {
		return pipeline.Fatal(fmt.Errorf("%w: %w", ErrPackaging, err))
	}

	r.archivePath = archivePath

	m, err := manifest.Build(r.tgt.Triple, r.tgt.ArchiveName(), staged)
	if err != nil {
		return pipeline.Fatal(fmt.Errorf("%w: %w", ErrPackaging, err))
	}

	r.manifestPath = r.tgt.ManifestPath(r.cfg.OutputRoot)
	if err = m.Save(r.manifestPath); err != nil {
		return pipeline.Fatal(fmt.Errorf("%w: %w", ErrPackaging, err))
	}

	logger.InfoKV(ctx, "Wrote package manifest", "path", r.manifestPath, "entries", len(staged))

	return pipeline.Ok(archivePath)
}

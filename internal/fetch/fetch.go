package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/block/goose-packager/internal/archive"
	"github.com/block/goose-packager/internal/logger"
	"github.com/block/goose-packager/internal/target"
)

// releaseURLTemplate is the versioned, architecture-keyed release location of
// the temporal CLI: version, then version again, OS and architecture.
const releaseURLTemplate = "https://github.com/temporalio/cli/releases/download/v%s/temporal_cli_%s_%s_%s.tar.gz"

// errBadHTTPStatus indicates a non-200 response from the release host.
var errBadHTTPStatus = errors.New("unexpected http status")

// errExecutableNotFound indicates the downloaded archive did not contain the
// expected executable.
var errExecutableNotFound = errors.New("executable not found in downloaded archive")

// Spec describes one external artifact download.
type Spec struct {
	// Version is the release version, without the leading "v".
	Version string
	// Arch is the architecture identifier keyed into the release URL.
	Arch string
	// URL is the full download location.
	URL string
	// ArchiveName is the local file name the download is saved under.
	ArchiveName string
	// Executable is the single executable expected inside the archive.
	Executable string
}

// NewTemporalSpec builds the download spec for the temporal CLI release
// matching the resolved target.
func NewTemporalSpec(version string, t *target.Target) *Spec {
	return &Spec{
		Version:     version,
		Arch:        t.Arch,
		URL:         fmt.Sprintf(releaseURLTemplate, version, version, t.OS, t.Arch),
		ArchiveName: fmt.Sprintf("temporal_cli_%s_%s_%s.tar.gz", version, t.OS, t.Arch),
		Executable:  target.ExternalExecutable,
	}
}

// Fetcher downloads and stages external release executables.
type Fetcher struct {
	client *http.Client
	quiet  bool
}

// NewFetcher returns a fetcher whose downloads are bounded by timeout.
// Quiet mode suppresses the progress bar.
func NewFetcher(timeout time.Duration, quiet bool) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		quiet:  quiet,
	}
}

// Fetch downloads the artifact into workDir, extracts it, grants the expected
// executable its execute permission and returns the executable's path.
func (f *Fetcher) Fetch(ctx context.Context, spec *Spec, workDir string) (string, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	archivePath := filepath.Join(workDir, spec.ArchiveName)

	logger.InfoKV(ctx, "Downloading external artifact",
		"url", spec.URL, "version", spec.Version, "arch", spec.Arch)

	if err := f.download(ctx, spec.URL, archivePath); err != nil {
		return "", err
	}

	extractDir := filepath.Join(workDir, "extracted")
	if err := archive.Extract(archivePath, extractDir); err != nil {
		return "", fmt.Errorf("extract %s: %w", spec.ArchiveName, err)
	}

	executable, err := findExecutable(extractDir, spec.Executable)
	if err != nil {
		return "", err
	}

	if err = os.Chmod(executable, 0o755); err != nil {
		return "", fmt.Errorf("set execute permission on %s: %w", executable, err)
	}

	return executable, nil
}

// download saves url to destFile, reporting progress unless quiet.
func (f *Fetcher) download(ctx context.Context, url, destFile string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", url, resp.Status, errBadHTTPStatus)
	}

	out, err := os.Create(filepath.Clean(destFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", destFile, err)
	}

	var dst io.Writer = out

	if !f.quiet {
		bar := progressbar.DefaultBytes(resp.ContentLength, "downloading "+filepath.Base(destFile))
		dst = io.MultiWriter(out, bar)
	}

	if _, err = io.Copy(dst, resp.Body); err != nil {
		_ = out.Close()
		return fmt.Errorf("save %s: %w", destFile, err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destFile, err)
	}

	return nil
}

// findExecutable locates the expected executable anywhere under dir.
// Release archives differ on whether the binary sits at the root or in bin/.
func findExecutable(dir, name string) (string, error) {
	var found string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode().IsRegular() && info.Name() == name {
			found = path
			return filepath.SkipAll
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan extracted archive: %w", err)
	}

	if found == "" {
		return "", fmt.Errorf("%w: %s", errExecutableNotFound, name)
	}

	return found, nil
}

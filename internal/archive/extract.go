package archive

import (
	"archive/tar"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

// Extract unpacks the archive at src into dest, dispatching on the file
// extension. Tarballs may be gzip, bzip2, xz or zstd compressed; zip archives
// are handled separately.
func Extract(src, dest string) error {
	if strings.HasSuffix(src, ".zip") {
		return extractZip(src, dest)
	}

	f, err := os.Open(filepath.Clean(src))
	if err != nil {
		return fmt.Errorf("open archive %s: %w", src, err)
	}

	defer func() {
		_ = f.Close()
	}()

	var r io.Reader = f

	switch {
	case strings.HasSuffix(src, ".tar.gz") || strings.HasSuffix(src, ".tgz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip reader for %s: %w", src, err)
		}

		defer func() {
			_ = gz.Close()
		}()

		r = gz
	case strings.HasSuffix(src, ".tar.bz2"):
		r = bzip2.NewReader(f)
	case strings.HasSuffix(src, ".tar.xz"):
		xzr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("xz reader for %s: %w", src, err)
		}

		r = xzr
	case strings.HasSuffix(src, ".tar.zst"):
		zst, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd reader for %s: %w", src, err)
		}

		defer zst.Close()

		r = zst
	case strings.HasSuffix(src, ".tar"):
		// No compression.
	default:
		return fmt.Errorf("unsupported archive format: %s", src)
	}

	return extractTarStream(tar.NewReader(r), dest)
}

// extractTarStream writes every regular file and directory of the stream under dest.
func extractTarStream(tr *tar.Reader, dest string) error {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read tar stream: %w", err)
		}

		path, err := securePath(absDest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err = os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}

			out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return err
			}

			_, err = io.Copy(out, tr) //nolint:gosec // Release archives are size-bounded by the download step.

			_ = out.Close()

			if err != nil {
				return err
			}
		default:
			// Symlinks and special files are not expected in release archives.
		}
	}
}

// extractZip unpacks a zip archive into dest.
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", src, err)
	}

	defer func() {
		_ = r.Close()
	}()

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	for _, f := range r.File {
		path, err := securePath(absDest, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err = os.MkdirAll(path, 0o755); err != nil {
				return err
			}

			continue
		}

		if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}

		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
		if err != nil {
			_ = rc.Close()
			return err
		}

		_, err = io.Copy(out, rc) //nolint:gosec // Release archives are size-bounded by the download step.

		// Close files inside the loop to avoid holding too many descriptors.
		_ = out.Close()
		_ = rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// securePath joins name under dest and rejects path traversal outside it.
func securePath(absDest, name string) (string, error) {
	path := filepath.Join(absDest, filepath.FromSlash(name))
	if path != absDest && !strings.HasPrefix(path, absDest+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}

	return path, nil
}

package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
)

// Create compresses the contents of srcDir into a gzipped tarball at destFile.
// Entries are added in lexical walk order, so identical directory contents
// always produce archives with identical membership.
func Create(srcDir, destFile string) error {
	if err := os.MkdirAll(filepath.Dir(destFile), 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	out, err := os.Create(filepath.Clean(destFile))
	if err != nil {
		return fmt.Errorf("create archive %s: %w", destFile, err)
	}

	gz := pgzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		hdr.Name = filepath.ToSlash(rel)

		if err = tw.WriteHeader(hdr); err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(filepath.Clean(path))
		if err != nil {
			return err
		}

		_, err = io.Copy(tw, f)

		// Close inside the walk to avoid holding descriptors for large trees.
		_ = f.Close()

		return err
	})

	if walkErr != nil {
		_ = tw.Close()
		_ = gz.Close()
		_ = out.Close()

		return fmt.Errorf("archive %s: %w", srcDir, walkErr)
	}

	if err = tw.Close(); err != nil {
		_ = gz.Close()
		_ = out.Close()

		return fmt.Errorf("finalize tar stream: %w", err)
	}

	if err = gz.Close(); err != nil {
		_ = out.Close()
		return fmt.Errorf("finalize gzip stream: %w", err)
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close archive %s: %w", destFile, err)
	}

	return nil
}

// List returns the entry names of a gzipped tarball in archive order.
func List(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read gzip stream of %s: %w", path, err)
	}

	defer func() {
		_ = gz.Close()
	}()

	var names []string

	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read tar stream of %s: %w", path, err)
		}

		names = append(names, hdr.Name)
	}

	return names, nil
}

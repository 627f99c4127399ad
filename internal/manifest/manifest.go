package manifest

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/block/goose-packager/internal/pipeline"
	"github.com/block/goose-packager/internal/version"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

// ChecksumFunction is used to calculate package entry hashes.
const ChecksumFunction crypto.Hash = crypto.SHA512

// DefaultFileMode is used when writing the manifest next to the archive.
const DefaultFileMode os.FileMode = 0o644

var errHashUnavailable = errors.New("hash function unavailable")

// Manifest describes the contents of one release archive.
// Its entry set mirrors the staged artifacts exactly: nothing is synthesized
// for an artifact that did not make it into the archive.
type Manifest struct {
	// VersionNumber is the packager version that produced the archive.
	VersionNumber string `yaml:"version"`
	// Target is the toolchain triple the archive was built for.
	Target string `yaml:"target"`
	// Archive is the archive file name.
	Archive string `yaml:"archive"`
	// Files maps archive entry names to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
}

// Build computes checksums for the staged entries and assembles the manifest.
func Build(triple, archiveName string, entries []pipeline.Entry) (*Manifest, error) {
	m := &Manifest{
		VersionNumber: version.Short(),
		Target:        triple,
		Archive:       archiveName,
		Files:         make(map[string]string, len(entries)),
	}

	for _, e := range entries {
		checksum, err := FileChecksum(e.Path)
		if err != nil {
			return nil, fmt.Errorf("checksum %s: %w", e.Name, err)
		}

		m.Files[e.Name] = base64.StdEncoding.EncodeToString(checksum)
	}

	return m, nil
}

// Save writes the manifest to the given path in YAML format.
func (m *Manifest) Save(path string) error {
	contents, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), contents, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Load reads a manifest back from disk.
func Load(path string) (*Manifest, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err = yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &m, nil
}

// FileChecksum returns checksum bytes for a file using ChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	hasher := ChecksumFunction.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

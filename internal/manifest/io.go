package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	tperrors "tpack/internal/errors"
)

func Path(pkgDir string) string {
	return filepath.Join(pkgDir, FileName)
}

// Load reads the manifest of a package directory. A missing manifest is not
// an error: it returns (nil, nil) so first runs can synthesize one. Malformed
// JSON is a CORRUPT_MANIFEST error, fatal for that package only.
func Load(pkgDir string) (*Manifest, error) {
	data, err := os.ReadFile(Path(pkgDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, tperrors.Wrap(err, tperrors.CodeIOFailure, "read manifest")
	}

	var m Manifest
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, tperrors.Wrap(err, tperrors.CodeCorruptManifest,
			fmt.Sprintf("malformed manifest in %s", pkgDir))
	}
	return &m, nil
}

// Save writes the manifest atomically: the full content is rendered in
// memory, written to a temp file in the same directory, then renamed over
// manifest.json so a failed run never leaves a partial write.
func Save(pkgDir string, m *Manifest) error {
	data, err := m.Encode()
	if err != nil {
		return tperrors.Wrap(err, tperrors.CodeInternal, "encode manifest")
	}

	tmp, err := os.CreateTemp(pkgDir, ".manifest-*.json")
	if err != nil {
		return tperrors.Wrap(err, tperrors.CodeIOFailure, "create temp manifest")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return tperrors.Wrap(err, tperrors.CodeIOFailure, "write temp manifest")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return tperrors.Wrap(err, tperrors.CodeIOFailure, "close temp manifest")
	}
	if err := os.Rename(tmpPath, Path(pkgDir)); err != nil {
		os.Remove(tmpPath)
		return tperrors.Wrap(err, tperrors.CodeIOFailure, "replace manifest")
	}
	return nil
}

package persist

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// ArchiveExtension is appended to archived file names.
const ArchiveExtension = ".lz4"

// Directory permissions for archives.
const dirPerm = 0o750

// Archive writes an lz4-compressed copy of src into dir and returns the
// archive path. The source file is left untouched.
func Archive(src, dir string) (string, error) {
	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", filepath.Base(src), err)
	}
	defer in.Close()

	dst := filepath.Join(dir, filepath.Base(src)+ArchiveExtension)

	err = WriteAtomic(dst, func(w io.Writer) error {
		zw := lz4.NewWriter(w)

		_, copyErr := io.Copy(zw, in)
		if copyErr != nil {
			return fmt.Errorf("compress: %w", copyErr)
		}

		return zw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("archive %s: %w", filepath.Base(src), err)
	}

	return dst, nil
}

// Package archive packages a job's produced files into one downloadable
// artifact. Packaging is best-effort: a failure never fails the job.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Pack zips every file under srcDir into zipPath, with paths relative to
// srcDir. Returns the empty string (and no error) when the directory holds
// no files at all.
func Pack(srcDir, zipPath string) (string, error) {
	var files []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk output directory: %w", err)
	}
	if len(files) == 0 {
		return "", nil
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range files {
		if err := addFile(zw, srcDir, path); err != nil {
			_ = zw.Close()
			_ = os.Remove(zipPath)
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		_ = os.Remove(zipPath)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return zipPath, nil
}

func addFile(zw *zip.Writer, srcDir, path string) error {
	rel, err := filepath.Rel(srcDir, path)
	if err != nil {
		return fmt.Errorf("failed to relativize %s: %w", path, err)
	}

	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", rel, err)
	}
	return nil
}

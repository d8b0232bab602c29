// Package archive unpacks the source data archive. The FAO bulk download
// ships the reference and production extracts inside a single zip; extraction
// is the first pipeline step so that later stages only ever see plain files.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Unzip extracts every file in the zip at src into destDir, creating the
// directory if needed. Entry names are sanitized so an archive can never
// write outside destDir. Returns the names of the extracted files.
func Unzip(ctx context.Context, src, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", src, err)
	}
	defer zr.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", destDir, err)
	}

	var extracted []string
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return extracted, err
		}

		name := filepath.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return extracted, fmt.Errorf("archive entry %q escapes destination", f.Name)
		}
		target := filepath.Join(destDir, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return extracted, fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return extracted, fmt.Errorf("create dir for %s: %w", target, err)
		}
		if err := extractOne(f, target); err != nil {
			return extracted, err
		}
		extracted = append(extracted, name)
	}
	return extracted, nil
}

func extractOne(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return out.Close()
}

package services

import (
	"archive/zip"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"kmz-server/utils/errors"
)

// KMLEntryName is the single member of every KMZ archive.
const KMLEntryName = "doc.kml"

const maxReserveAttempts = 16

// ArchiveService writes KMZ archives into the download directory.
type ArchiveService struct {
	dir string
}

// NewArchiveService makes sure dir exists. It is called once at startup.
func NewArchiveService(dir string) (*ArchiveService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	return &ArchiveService{dir: dir}, nil
}

// Dir returns the download directory.
func (s *ArchiveService) Dir() string {
	return s.dir
}

// ReserveFilename claims a fresh registros_<slug>_<suffix>.kmz in the download
// directory by creating it exclusively. The suffix is redrawn on collision, so
// concurrent requests for the same campaign never share a file.
func (s *ArchiveService) ReserveFilename(slug string) (string, error) {
	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		name := ArchiveFilename(slug, RandomSuffix())
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if stderrors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.ArchiveWriteFailed(fmt.Errorf("reserve %s: %w", name, err))
		}
		if err := f.Close(); err != nil {
			return "", errors.ArchiveWriteFailed(fmt.Errorf("reserve %s: %w", name, err))
		}
		return name, nil
	}
	return "", errors.ArchiveWriteFailed(fmt.Errorf("no free archive name for slug %q after %d attempts", slug, maxReserveAttempts))
}

// Release removes a reserved file that was never filled.
func (s *ArchiveService) Release(filename string) {
	_ = os.Remove(filepath.Join(s.dir, filename))
}

// Package writes markup as doc.kml into <dir>/<filename>, replacing any file
// already there. The archive is built in a temp file and renamed into place so
// a half written archive is never visible.
func (s *ArchiveService) Package(markup, filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", errors.ArchiveWriteFailed(fmt.Errorf("invalid archive name %q", filename))
	}
	dest := filepath.Join(s.dir, filename)

	tmp, err := os.CreateTemp(s.dir, ".kmz-*.tmp")
	if err != nil {
		return "", errors.ArchiveWriteFailed(fmt.Errorf("temp archive: %w", err))
	}
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	if err := writeKMZ(tmp, markup); err != nil {
		cleanup()
		return "", errors.ArchiveWriteFailed(err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		cleanup()
		return "", errors.ArchiveWriteFailed(fmt.Errorf("chmod archive: %w", err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.ArchiveWriteFailed(fmt.Errorf("close archive: %w", err))
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return "", errors.ArchiveWriteFailed(fmt.Errorf("replace archive: %w", err))
	}
	return dest, nil
}

func writeKMZ(f *os.File, markup string) error {
	zw := zip.NewWriter(f)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   KMLEntryName,
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("zip entry: %w", err)
	}
	if _, err := w.Write([]byte(markup)); err != nil {
		return fmt.Errorf("write %s: %w", KMLEntryName, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

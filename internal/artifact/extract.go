// File: internal/artifact/extract.go
// Brief: Unpacks an artifact archive and records what was written.

package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/go-logr/logr"
	"github.com/klauspost/compress/zip"
)

// Entry is one extracted file. Name is the archive-relative, slash separated path.
type Entry struct {
	Path string
	Name string
}

// Manifest lists extracted files in archive order. Names are unique and
// directories are never included.
type Manifest []Entry

// Names returns the relative names in manifest order.
func (m Manifest) Names() []string {
	out := make([]string, 0, len(m))
	for _, e := range m {
		out = append(out, e.Name)
	}
	return out
}

// Extract unpacks every entry of archivePath below destDir, recreating the
// archive's directory layout and, on POSIX systems, its permission bits.
// Entries that would land outside destDir are skipped.
func Extract(archivePath, destDir string, log logr.Logger) (Manifest, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, deployerr.New(deployerr.Extraction, "open archive", err)
	}
	defer reader.Close()

	var manifest Manifest
	index := make(map[string]int)
	for i, file := range reader.File {
		name, ok := enclosedName(file.Name)
		if !ok {
			log.Info("skipping archive entry outside destination", "entry", file.Name)
			continue
		}
		outPath := filepath.Join(destDir, filepath.FromSlash(name))
		if file.FileInfo().IsDir() || strings.HasSuffix(file.Name, "/") {
			log.V(1).Info("extracted directory", "index", i, "path", outPath)
			if err := os.MkdirAll(outPath, 0o755); err != nil {
				return nil, deployerr.New(deployerr.Extraction, "create directory", err)
			}
			if err := applyMode(outPath, file); err != nil {
				return nil, err
			}
			continue
		}
		if err := writeEntry(file, outPath); err != nil {
			return nil, err
		}
		log.Info("extracted file", "index", i, "path", outPath, "bytes", file.UncompressedSize64)
		if pos, seen := index[name]; seen {
			manifest[pos] = Entry{Path: outPath, Name: name}
			continue
		}
		index[name] = len(manifest)
		manifest = append(manifest, Entry{Path: outPath, Name: name})
	}
	return manifest, nil
}

func writeEntry(file *zip.File, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return deployerr.New(deployerr.Extraction, "create parent directory", err)
	}
	src, err := file.Open()
	if err != nil {
		return deployerr.New(deployerr.Extraction, fmt.Sprintf("open entry %s", file.Name), err)
	}
	defer src.Close()
	dst, err := os.Create(outPath)
	if err != nil {
		return deployerr.New(deployerr.Extraction, "create file", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return deployerr.New(deployerr.Extraction, fmt.Sprintf("write %s", outPath), err)
	}
	if err := dst.Close(); err != nil {
		return deployerr.New(deployerr.Extraction, fmt.Sprintf("close %s", outPath), err)
	}
	return applyMode(outPath, file)
}

func applyMode(path string, file *zip.File) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	perm := file.Mode().Perm()
	if perm == 0 {
		return nil
	}
	if err := os.Chmod(path, perm); err != nil {
		return deployerr.New(deployerr.Extraction, "set permissions", err)
	}
	return nil
}

// enclosedName rejects absolute names and names that climb out of the
// destination. The returned name is cleaned and slash separated.
func enclosedName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	cleaned := strings.TrimSuffix(name, "/")
	if cleaned == "" || !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", false
	}
	return filepath.ToSlash(filepath.Clean(filepath.FromSlash(cleaned))), true
}

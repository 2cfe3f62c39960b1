// File: internal/artifact/locate.go
// Brief: Finds the newest artifact archive in a directory.

// Package artifact discovers and unpacks the locally built deployment archive.
package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/example/cfdeploy/internal/deployerr"
)

// Locate returns the most recently modified regular file in dir whose
// extension matches ext (case-insensitive). Subdirectories are not searched.
func Locate(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", deployerr.New(deployerr.Discovery, "read artifact directory", err)
	}
	var (
		newest     string
		newestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}
	if newest == "" {
		return "", deployerr.Errorf(deployerr.Discovery, "no %s archive found in %s", ext, dir)
	}
	return newest, nil
}

// FolderName is the archive's base name without its extension; it names the
// deployment path segment.
func FolderName(archivePath string) string {
	base := filepath.Base(archivePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

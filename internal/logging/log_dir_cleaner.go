package logging

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const logDirCleanerInterval = time.Minute

var stopCleaner context.CancelFunc

// configureLogDirCleanerLocked starts a cleaner for logDir when maxTotalSizeMB is
// positive. Callers hold outputMu and have already stopped any previous cleaner.
func configureLogDirCleanerLocked(logDir string, maxTotalSizeMB int, activePath string) {
	if maxTotalSizeMB <= 0 || strings.TrimSpace(logDir) == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	stopCleaner = cancel
	go func() {
		limit := int64(maxTotalSizeMB) << 20
		ticker := time.NewTicker(logDirCleanerInterval)
		defer ticker.Stop()
		for {
			pruneLogDir(filepath.Clean(logDir), limit, activePath)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func stopLogDirCleanerLocked() {
	if stopCleaner != nil {
		stopCleaner()
		stopCleaner = nil
	}
}

func pruneLogDir(dir string, limit int64, activePath string) {
	deleted, err := enforceLogDirSizeLimit(dir, limit, activePath)
	switch {
	case err != nil:
		log.WithError(err).Warn("logging: failed to enforce log directory size limit")
	case deleted > 0:
		log.Debugf("logging: removed %d rotated log file(s)", deleted)
	}
}

type logFile struct {
	path    string
	size    int64
	modTime time.Time
}

// enforceLogDirSizeLimit removes the oldest *.log and *.log.gz files in dir until their
// total size is at most maxBytes. activePath is skipped.
func enforceLogDirSizeLimit(dir string, maxBytes int64, activePath string) (int, error) {
	if maxBytes <= 0 || strings.TrimSpace(dir) == "" {
		return 0, nil
	}
	files, total, err := listLogFiles(filepath.Clean(dir))
	if err != nil || total <= maxBytes {
		return 0, err
	}

	slices.SortFunc(files, func(a, b logFile) int { return a.modTime.Compare(b.modTime) })
	if activePath != "" {
		activePath = filepath.Clean(activePath)
	}

	deleted := 0
	for _, f := range files {
		if total <= maxBytes {
			break
		}
		if f.path == activePath {
			continue
		}
		if errRemove := os.Remove(f.path); errRemove != nil {
			log.WithError(errRemove).Warnf("logging: failed to remove %s", filepath.Base(f.path))
			continue
		}
		total -= f.size
		deleted++
	}
	return deleted, nil
}

func listLogFiles(dir string) ([]logFile, int64, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var (
		files []logFile
		total int64
	)
	for _, e := range entries {
		name := strings.ToLower(e.Name())
		if e.IsDir() || !(strings.HasSuffix(name, ".log") || strings.HasSuffix(name, ".log.gz")) {
			continue
		}
		info, errInfo := e.Info()
		if errInfo != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, e.Name()), size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}
	return files, total, nil
}

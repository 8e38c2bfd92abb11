package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnforceLogDirSizeLimit(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		sizes     []int
		limit     int64
		wantGone  []string
		wantKept  []string
		wantCount int
	}{
		{
			name:      "oldest rotated file goes first",
			files:     []string{"gitpress-1.log", "gitpress-2.log", "gitpress.log"},
			sizes:     []int{60, 60, 60},
			limit:     120,
			wantGone:  []string{"gitpress-1.log"},
			wantKept:  []string{"gitpress-2.log", "gitpress.log"},
			wantCount: 1,
		},
		{
			name:      "active file is never deleted",
			files:     []string{"gitpress.log", "gitpress-1.log"},
			sizes:     []int{200, 50},
			limit:     100,
			wantGone:  []string{"gitpress-1.log"},
			wantKept:  []string{"gitpress.log"},
			wantCount: 1,
		},
		{
			name:      "non log files ignored",
			files:     []string{"credentials.json", "gitpress.log"},
			sizes:     []int{500, 10},
			limit:     100,
			wantKept:  []string{"credentials.json", "gitpress.log"},
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for i, name := range tt.files {
				writeLogFile(t, filepath.Join(dir, name), tt.sizes[i], time.Unix(int64(i+1), 0))
			}

			deleted, err := enforceLogDirSizeLimit(dir, tt.limit, filepath.Join(dir, "gitpress.log"))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if deleted != tt.wantCount {
				t.Fatalf("deleted = %d, want %d", deleted, tt.wantCount)
			}
			for _, name := range tt.wantGone {
				if _, errStat := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(errStat) {
					t.Fatalf("expected %s to be removed, stat error: %v", name, errStat)
				}
			}
			for _, name := range tt.wantKept {
				if _, errStat := os.Stat(filepath.Join(dir, name)); errStat != nil {
					t.Fatalf("expected %s to remain, stat error: %v", name, errStat)
				}
			}
		})
	}
}

func TestEnforceLogDirSizeLimitMissingDir(t *testing.T) {
	deleted, err := enforceLogDirSizeLimit(filepath.Join(t.TempDir(), "nope"), 10, "")
	if err != nil || deleted != 0 {
		t.Fatalf("expected no-op for missing dir, got deleted=%d err=%v", deleted, err)
	}
}

func writeLogFile(t *testing.T, path string, size int, modTime time.Time) {
	t.Helper()

	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.Chtimes(path, modTime, modTime); err != nil {
		t.Fatalf("set times: %v", err)
	}
}

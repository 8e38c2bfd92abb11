// Package logging configures the shared logrus logger for gitpress: a compact text
// formatter, optional rotating file output, and Gin middleware for the OAuth callback listener.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/gitpress/internal/config"
	"github.com/router-for-me/gitpress/internal/util"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const activeLogName = "gitpress.log"

var (
	setupOnce sync.Once

	outputMu   sync.Mutex
	fileOutput *lumberjack.Logger
	ginWriters []*io.PipeWriter
)

// LogFormatter renders one entry per line:
//
//	[2026-01-02 15:04:05] [a1b2c3d4] [debug] [controller.go:124] authorization attempt started port=8765
//
// The second column is the listener request ID, or the first eight characters of the
// authorization attempt ID for controller entries.
type LogFormatter struct{}

// Known fields are printed in this order; others are dropped from the line.
var logFieldOrder = []string{"state", "reason", "port", "backend", "method", "path", "status", "resource", "remaining", "reset_at", "error"}

func (f *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	buf := entry.Buffer
	if buf == nil {
		buf = &bytes.Buffer{}
	}

	_, _ = fmt.Fprintf(buf, "[%s] [%s] [%-5s] ", entry.Time.Format("2006-01-02 15:04:05"), correlationID(entry.Data), levelLabel(entry.Level))
	if entry.Caller != nil {
		_, _ = fmt.Fprintf(buf, "[%s:%d] ", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	buf.WriteString(strings.TrimRight(entry.Message, "\r\n"))
	for _, key := range logFieldOrder {
		if v, ok := entry.Data[key]; ok {
			_, _ = fmt.Fprintf(buf, " %s=%v", key, v)
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func correlationID(data log.Fields) string {
	if id, ok := data["request_id"].(string); ok && id != "" {
		return id
	}
	if id, ok := data["attempt"].(string); ok && len(id) >= 8 {
		return id[:8]
	}
	return "--------"
}

func levelLabel(level log.Level) string {
	if level == log.WarnLevel {
		return "warn"
	}
	return level.String()
}

// SetupBaseLogger installs the formatter and routes Gin's own output through logrus.
// Only the first call has an effect.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stderr)
		log.SetReportCaller(true)
		log.SetFormatter(&LogFormatter{})

		gin.SetMode(gin.ReleaseMode)
		info := log.StandardLogger().Writer()
		errs := log.StandardLogger().WriterLevel(log.ErrorLevel)
		gin.DefaultWriter, gin.DefaultErrorWriter = info, errs
		ginWriters = []*io.PipeWriter{info, errs}

		log.RegisterExitHandler(closeLogOutputs)
	})
}

// ResolveLogDirectory returns <data-dir>/logs, or ./logs when the data dir cannot be resolved.
func ResolveLogDirectory(cfg *config.Config) string {
	var dataDir string
	if cfg != nil {
		dataDir = cfg.DataDir
	}
	resolved, err := util.ResolveDataDir(dataDir)
	if err != nil || resolved == "" {
		log.Warnf("cannot resolve data-dir %q for logs, using ./logs: %v", dataDir, err)
		return "logs"
	}
	return filepath.Join(resolved, "logs")
}

// ConfigureLogOutput applies the level and destination settings of cfg. With
// logging-to-file set, output goes to a rotating file under ResolveLogDirectory, and
// logs-max-total-size-mb bounds the directory size.
func ConfigureLogOutput(cfg *config.Config) error {
	SetupBaseLogger()
	util.SetLogLevel(cfg)

	outputMu.Lock()
	defer outputMu.Unlock()

	stopLogDirCleanerLocked()
	closeFileOutputLocked()

	if cfg == nil || !cfg.LoggingToFile {
		log.SetOutput(os.Stderr)
		return nil
	}

	dir := ResolveLogDirectory(cfg)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}
	active := filepath.Join(dir, activeLogName)
	fileOutput = &lumberjack.Logger{Filename: active, MaxSize: 10}
	log.SetOutput(fileOutput)

	configureLogDirCleanerLocked(dir, cfg.LogsMaxTotalSizeMB, active)
	return nil
}

func closeFileOutputLocked() {
	if fileOutput != nil {
		_ = fileOutput.Close()
		fileOutput = nil
	}
}

func closeLogOutputs() {
	outputMu.Lock()
	defer outputMu.Unlock()

	stopLogDirCleanerLocked()
	closeFileOutputLocked()
	for _, w := range ginWriters {
		_ = w.Close()
	}
	ginWriters = nil
}

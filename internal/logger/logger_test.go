package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestResolveLogFilePathDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}

	realTmpDir, err := filepath.EvalSymlinks(tmpDir)
	if err != nil {
		t.Fatalf("resolve tmp dir symlink failed: %v", err)
	}
	realGot, err := filepath.EvalSymlinks(filepath.Dir(got))
	if err != nil {
		t.Fatalf("resolve got dir symlink failed: %v", err)
	}
	expectedDir := filepath.Join(realTmpDir, defaultLogDirName)
	if realGot != expectedDir {
		t.Fatalf("unexpected log dir: got=%s expected=%s", realGot, expectedDir)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if _, err := os.Stat(filepath.Dir(got)); err != nil {
		t.Fatalf("expected log dir to be created: %v", err)
	}
}

func TestNewReleaseWritesToConfiguredFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Options{
		Dir:      tmpDir,
		Filename: "release.log",
	}
	log := New("release", cfg)
	log.Info("release-log-test")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	if !strings.Contains(string(content), "release-log-test") {
		t.Fatalf("expected log content to contain message, got=%s", string(content))
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := Options{
		Dir:      tmpDir,
		Filename: "debug.log",
	}
	log := New("debug", cfg)
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestSecurityLoggerTagsAuditChannel(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := L
	L = zap.New(core)
	t.Cleanup(func() {
		L = prev
	})

	SecurityAlertw("chip_security_violation", "reason", "checksum_mismatch", "uid", "04A1B2C3D4E5F6")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zap.ErrorLevel {
		t.Fatalf("security events must log at error level, got %s", entry.Level)
	}
	if entry.LoggerName != "security" {
		t.Fatalf("unexpected logger name: %s", entry.LoggerName)
	}
	fields := entry.ContextMap()
	if fields["audit"] != true {
		t.Fatalf("expected audit=true, got %v", fields["audit"])
	}
	if fields["reason"] != "checksum_mismatch" {
		t.Fatalf("unexpected reason field: %v", fields["reason"])
	}
}

func TestParseLevel(t *testing.T) {
	if got := parseLevel("warn", true); got != zap.WarnLevel {
		t.Fatalf("explicit level should win, got %s", got)
	}
	if got := parseLevel("", true); got != zap.DebugLevel {
		t.Fatalf("debug mode default want debug, got %s", got)
	}
	if got := parseLevel("loud", false); got != zap.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %s", got)
	}
}

func TestGormLoggerReportsSlowAndFailedQueries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	prev := L
	L = zap.New(core)
	t.Cleanup(func() {
		L = prev
	})

	gl := NewGormLogger(false, 10*time.Millisecond)
	query := func() (string, int64) { return "SELECT * FROM rfid_chips", 3 }

	gl.Trace(context.Background(), time.Now(), query, nil)
	gl.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)
	gl.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	gl.Trace(context.Background(), time.Now(), query, errors.New("database is locked"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected slow + failed entries, got %d", len(entries))
	}
	if entries[0].Message != "gorm_slow_query" || entries[1].Message != "gorm_query_failed" {
		t.Fatalf("unexpected messages: %s %s", entries[0].Message, entries[1].Message)
	}
	if entries[0].LoggerName != "gorm" {
		t.Fatalf("unexpected logger name: %s", entries[0].LoggerName)
	}

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	if logs.Len() != 2 {
		t.Fatalf("silent mode should not log")
	}
}

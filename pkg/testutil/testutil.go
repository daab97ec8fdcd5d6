// Package testutil provides helpers shared by the package tests
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ajitpratap0/tabulate/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// UseLogger installs a logger that writes to the test output as the global
// logger and restores the previous one when the test completes.
func UseLogger(t testing.TB) *zap.Logger {
	t.Helper()
	prev := logger.Get()
	l := zaptest.NewLogger(t)
	logger.Set(l)
	t.Cleanup(func() { logger.Set(prev) })
	return l
}

// TestContext returns a context with a 30-second timeout that is cancelled
// when the test completes
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path
func WriteFile(t testing.TB, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

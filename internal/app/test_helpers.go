package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/pwnslinger/revng/internal/config"
	"github.com/pwnslinger/revng/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in
// tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates an app instance for system tests, capturing
// all output in a buffer.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	testApp, err := NewApp(logBuffer, cfg, loader, modules...)
	if err != nil {
		t.Fatalf("failed to set up app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("REVNG_TEST_LOGS") == "true" {
			t.Logf("--- Full log output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}

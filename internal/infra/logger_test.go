package infra

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLoggerProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("production", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("job_id", "j1").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked in production: %s", out)
	}
	if !strings.Contains(out, `"job_id":"j1"`) || !strings.Contains(out, `"service":"relay"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestNewLoggerDevelopmentEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("development", &buf)

	logger.Debug().Msg("poll tick")

	if !strings.Contains(buf.String(), "poll tick") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

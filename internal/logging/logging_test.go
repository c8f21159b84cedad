package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{-1, zerolog.WarnLevel},
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{5, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		if got := levelFor(tt.verbosity); got != tt.want {
			t.Errorf("levelFor(%d) = %s, want %s", tt.verbosity, got, tt.want)
		}
	}
}

func TestSetup_WritesLogFile(t *testing.T) {
	orig := log.Logger
	origLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = orig
		zerolog.SetGlobalLevel(origLevel)
	})

	path := filepath.Join(t.TempDir(), "logs", "confshare.log")
	got := Setup(2, path)
	if got != path {
		t.Fatalf("Setup returned %q, want %q", got, path)
	}

	logger := GetLogger("test")
	logger.Info().Msg("hello from test")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message: %s", data)
	}
	if !strings.Contains(string(data), `"component":"test"`) {
		t.Errorf("log file missing component field: %s", data)
	}
}

func TestLogCommand(t *testing.T) {
	orig := log.Logger
	origLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = orig
		zerolog.SetGlobalLevel(origLevel)
	})

	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(&buf)

	LogCommand("git", []string{"push", "origin", "main"})

	out := buf.String()
	for _, want := range []string{"git", "push", "executing command"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestLogOperationStart(t *testing.T) {
	orig := log.Logger
	origLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = orig
		zerolog.SetGlobalLevel(origLevel)
	})

	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = zerolog.New(&buf)

	done := LogOperationStart(GetLogger("bundle"), "apply")
	done()

	out := buf.String()
	if !strings.Contains(out, "operation started") || !strings.Contains(out, "operation completed") {
		t.Errorf("unexpected output: %s", out)
	}
}

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
	}
	for raw, want := range cases {
		got, ok := parseLevel(raw)
		if !ok || got != want {
			t.Fatalf("parseLevel(%q) = %v,%v want %v", raw, got, ok, want)
		}
	}
	if _, ok := parseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be ignored")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogNoColor, "true")
	t.Setenv(EnvLogTimestamp, "nope")

	cfg := defaultConfig(ProfileRuntime)
	applyEnvOverrides(&cfg)
	if cfg.Level != zerolog.ErrorLevel {
		t.Fatalf("unexpected level: %v", cfg.Level)
	}
	if !cfg.NoColor {
		t.Fatalf("expected no-color override")
	}
	if !cfg.Timestamp {
		t.Fatalf("unparseable bool must keep default timestamp")
	}
}

func TestLogSinkTagsServiceAndLevel(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, Bypass: true, Out: &buf})
	Log("admiral", "queue drained", Warn)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["service"] != "admiral" || line["message"] != "queue drained" || line["level"] != "warn" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestConsoleWithoutTimestampOmitsTimeColumn(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Apply(Config{Level: zerolog.InfoLevel, NoColor: true, Out: &buf})
	Log("admiral", "network loop listening", Info)

	line := buf.String()
	if strings.Contains(line, "<nil>") {
		t.Fatalf("time column rendered without a timestamp: %q", line)
	}
	if !strings.HasPrefix(line, "INF ") || !strings.Contains(line, "network loop listening") {
		t.Fatalf("unexpected console line: %q", line)
	}

	buf.Reset()
	Apply(Config{Level: zerolog.InfoLevel, NoColor: true, Timestamp: true, Out: &buf})
	Log("admiral", "network loop listening", Info)
	if strings.HasPrefix(buf.String(), "INF ") {
		t.Fatalf("expected a leading time column with timestamps on: %q", buf.String())
	}
}

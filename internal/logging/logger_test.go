package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.Debug("hidden")
	l.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message missing from output")
	}

	l.SetLevel(LevelDebug)
	l.Debug("now shown")
	if !strings.Contains(buf.String(), "now shown") {
		t.Error("debug message missing after lowering level")
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf})

	l.WithComponent("replay").Info("step done", "step", 3)

	out := buf.String()
	if !strings.Contains(out, "replay:") {
		t.Errorf("component tag missing: %q", out)
	}
	if !strings.Contains(out, "step=3") {
		t.Errorf("attribute missing: %q", out)
	}
}

func TestJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	l.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("JSON output missing attribute: %q", buf.String())
	}
}

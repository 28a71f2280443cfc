package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
	}{
		{"trace", TraceLevel},
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"WARN", WarnLevel},
		{"error", ErrorLevel},
		{"garbage", InfoLevel},
	}
	for _, c := range cases {
		if got := ParseLevel(c.in); got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: WarnLevel})
	SetOutput(&buf)

	Debug("hidden")
	Info("hidden too")
	Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-severity messages leaked: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: InfoLevel, JSON: true})
	SetOutput(&buf)

	Info("structured", String("key", "value"), Int("n", 3))

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Message != "structured" || entry.Level != "INFO" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["key"] != "value" {
		t.Errorf("fields not carried: %+v", entry.Fields)
	}
}

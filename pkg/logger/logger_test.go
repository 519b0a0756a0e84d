package logger

import (
	"bytes"
	"strings"
	"testing"
)

func newTestLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := New(Config{Level: level, Output: &buf})
	return l, &buf
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newTestLogger(WARN)
	l.Debugf("debug %d", 1)
	l.Infof("info %d", 2)
	l.Warnf("warn %d", 3)
	l.Errorf("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARN should be dropped, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") || !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected WARN and ERROR lines, got %q", out)
	}
}

func TestFatalExits(t *testing.T) {
	l, buf := newTestLogger(INFO)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatalf("boom")
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "[FATAL] boom") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected LogLevel
		ok       bool
	}{
		{"debug", DEBUG, true},
		{" INFO ", INFO, true},
		{"warning", WARN, true},
		{"Error", ERROR, true},
		{"fatal", FATAL, true},
		{"loud", INFO, false},
		{"", INFO, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = (%s, %t), expected (%s, %t)", tt.in, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestColorize(t *testing.T) {
	l, buf := newTestLogger(DEBUG)
	l.SetColorize(true)
	l.Errorf("red")
	if !strings.Contains(buf.String(), colorRed+"[ERROR]"+colorReset) {
		t.Errorf("expected coloured level, got %q", buf.String())
	}
}

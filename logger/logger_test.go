package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "debug", want: zapcore.DebugLevel},
		{in: "INFO", want: zapcore.InfoLevel},
		{in: "", want: zapcore.InfoLevel},
		{in: "warning", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "verbose", want: zapcore.InfoLevel, wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidLogLevel) {
				t.Fatalf("parseLevel(%q) err = %v, want ErrInvalidLogLevel", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseLevel(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}, DefaultServiceName); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewConsole(t *testing.T) {
	l, err := New(&Config{Level: "debug", Format: "console", Output: "stderr"}, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("expected debug level enabled")
	}
}

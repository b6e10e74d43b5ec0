package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestWithLevel(t *testing.T) {
	base := New()

	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for name, want := range tests {
		if got := WithLevel(base, name).GetLevel(); got != want {
			t.Errorf("WithLevel(%q) = %s, want %s", name, got, want)
		}
	}
}

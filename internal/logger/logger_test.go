package logger

import (
	"alcyxob/plan-tracker/internal/config"
	"testing"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := New(config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !l.Core().Enabled(-1) {
			t.Errorf("%s: debug should be enabled", format)
		}
	}
	if _, err := New(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for bad level")
	}
}

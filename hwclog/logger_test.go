package hwclog

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestDefaultLoggerIsSilent(t *testing.T) {
	l := Logger()
	if l.Enabled(nil, slog.LevelError) {
		t.Errorf("default logger should report disabled for all levels")
	}
}

func TestSetLoggerRoundTrip(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	Logger().Info("hotplug detected", "connector", 1)

	if buf.Len() == 0 {
		t.Errorf("expected log output after SetLogger")
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	SetLogger(nil)

	Logger().Error("should not appear")

	if buf.Len() != 0 {
		t.Errorf("expected no output after restoring nil logger, got %q", buf.String())
	}
}

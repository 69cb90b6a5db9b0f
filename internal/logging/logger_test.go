package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	defer Set(zap.NewNop())

	if err := Init("debug", "console"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Log.Core().Enabled(zapcore.DebugLevel) {
		t.Error("expected debug level to be enabled")
	}

	if err := Init("warn", "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info level to be disabled at warn")
	}

	if err := Init("loud", "json"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestHelpers(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	defer Set(zap.NewNop())

	Info("computed", zap.String("control_id", "03.01.01"))
	Warn("skipped")
	With(zap.String("family", "AC")).Error("failed")

	if logs.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", logs.Len())
	}
	first := logs.All()[0]
	if first.Message != "computed" || first.ContextMap()["control_id"] != "03.01.01" {
		t.Errorf("unexpected entry: %+v", first)
	}
	if logs.All()[2].ContextMap()["family"] != "AC" {
		t.Errorf("expected child logger field, got %+v", logs.All()[2].ContextMap())
	}
}

package observability

import (
	"context"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	err := Init(Config{ServiceName: "test", Enabled: false})
	if err != nil {
		t.Fatalf("disabled init should not fail: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "test-span")
	if ctx == nil {
		t.Error("expected non-nil context")
	}
	span.End()
}

func TestInitUnknownExporter(t *testing.T) {
	err := Init(Config{ServiceName: "test", Enabled: true, ExporterType: "carrier-pigeon"})
	if err == nil {
		t.Error("expected error for unknown exporter type")
	}
}

func TestStartSpanBeforeInit(t *testing.T) {
	tracer = nil
	ctx, span := StartSpan(context.Background(), "early")
	if ctx == nil || span == nil {
		t.Error("StartSpan must work before Init")
	}
	span.End()
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("Authorization=Basic abc, X-Env=prod")
	if headers["Authorization"] != "Basic abc" {
		t.Errorf("unexpected Authorization header: %q", headers["Authorization"])
	}
	if headers["X-Env"] != "prod" {
		t.Errorf("unexpected X-Env header: %q", headers["X-Env"])
	}
	if parseHeaders("") != nil {
		t.Error("empty input should yield nil")
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	tracerProvider = nil
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown without init: %v", err)
	}
}

package telemetry

import (
	"context"
	"testing"
)

func TestInitNoneIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), ExporterNone, "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitStdoutInstallsProviders(t *testing.T) {
	shutdown, err := Init(context.Background(), ExporterStdout, "test")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitUnknownExporterErrors(t *testing.T) {
	if _, err := Init(context.Background(), Exporter("bogus"), "test"); err == nil {
		t.Fatalf("Init with unknown exporter succeeded, want error")
	}
}

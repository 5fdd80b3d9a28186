package telemetry

import (
	"context"
	"testing"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "gogallery", "")
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected a shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_WithEndpoint(t *testing.T) {
	// the exporter connects lazily, so no collector is needed
	shutdown, err := Setup(context.Background(), "gogallery", "http://127.0.0.1:4318/v1/traces")
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	_ = shutdown(context.Background())
}

package otel

import (
	"context"
	"testing"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("TABHOUSE_OTEL_ENDPOINT", "")
	t.Setenv("TABHOUSE_OTEL_ENABLED", "")

	shutdown, err := Setup(context.Background(), "tabhouse")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown func")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupDisabledExplicitly(t *testing.T) {
	t.Setenv("TABHOUSE_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("TABHOUSE_OTEL_ENABLED", "false")

	shutdown, err := Setup(context.Background(), "tabhouse")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

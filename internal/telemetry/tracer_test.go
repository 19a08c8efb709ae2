package telemetry

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsOwnedProvider(t *testing.T) {
	tp, err := Setup(Identity{
		ServiceName: "voxpay-gateway",
		Version:     "test",
		Environment: "development",
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if tp == nil {
		t.Fatal("Setup() returned a nil provider")
	}

	// The caller owns the lifecycle; shutdown must work without the
	// provider ever having been registered globally.
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

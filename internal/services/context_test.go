package services_test

import (
	"context"
	"testing"

	"ghoststation/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithEventID(ctx, 42)
	ctx = services.WithSessionID(ctx, 3)
	ctx = services.WithStage(ctx, "correlation")
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.EventIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected event id: %v %v", id, ok)
	}
	if id, ok := services.SessionIDFromContext(ctx); !ok || id != 3 {
		t.Fatalf("unexpected session id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "correlation" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithRequestID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.RequestIDFromContext(ctx); ok {
		t.Fatal("expected no request id")
	}
	if _, ok := services.EventIDFromContext(ctx); ok {
		t.Fatal("expected no event id")
	}
}

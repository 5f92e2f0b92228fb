package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestMockGatewayDefaultsToSuccess(t *testing.T) {
	gateway := NewMockGateway()

	if err := gateway.Authorize(context.Background(), "order-1", 1000); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if gateway.AuthorizeCalls != 1 {
		t.Errorf("expected 1 call, got %d", gateway.AuthorizeCalls)
	}
}

func TestMockGatewayConfiguredError(t *testing.T) {
	gateway := NewMockGateway()
	gateway.AuthorizeErr = domain.ErrPaymentDeclined

	err := gateway.Authorize(context.Background(), "order-1", 1000)
	if !errors.Is(err, domain.ErrPaymentDeclined) {
		t.Fatalf("expected ErrPaymentDeclined, got %v", err)
	}
}

func TestMockGatewayDeclineThreshold(t *testing.T) {
	gateway := NewMockGateway()
	gateway.DeclineAboveMinor = 5000

	if err := gateway.Authorize(context.Background(), "order-1", 5000); err != nil {
		t.Fatalf("amount at threshold should pass, got %v", err)
	}
	if err := gateway.Authorize(context.Background(), "order-2", 5001); !errors.Is(err, domain.ErrPaymentDeclined) {
		t.Fatalf("amount above threshold should decline, got %v", err)
	}
}

package service

import (
	"context"
	"time"

	"github.com/big14way/afri-asset/internal/core/domain"
)

// Publisher receives events after the mutation that produced them commits,
// one at a time and in sequence order. Publish runs under the registry's
// mutation lock and must not block; delivery is fire-and-forget and its
// outcome does not affect the operation result.
type Publisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Observer receives the outcome of every registry operation.
type Observer interface {
	ObserveOperation(op string, err error, elapsed time.Duration)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) {}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, error, time.Duration) {}

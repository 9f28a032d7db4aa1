package events

import (
	"context"
	"log/slog"

	"github.com/big14way/afri-asset/internal/core/domain"
)

// Publisher matches service.Publisher.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event)
}

// LogPublisher writes one structured log line per event.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher. A nil logger uses slog.Default().
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, ev domain.Event) {
	args := []any{
		"event_seq", ev.Seq,
		"event_id", ev.ID,
		"event_type", string(ev.Type),
	}
	if id, ok := ev.TokenID(); ok {
		args = append(args, "token_id", uint64(id))
	}
	p.logger.InfoContext(ctx, "registry event", args...)
}

// Multi publishes to each publisher in order.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(ctx context.Context, ev domain.Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, ev)
		}
	}
}

package messaging

import (
	"context"

	"go.uber.org/zap"

	"github.com/gumnutdev/quick-notes/domain/events"
)

// LogPublisher writes events to the log instead of a bus. It is used when
// no event bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Info("domain event",
		zap.String("type", event.GetEventType()),
		zap.String("aggregate_id", event.GetAggregateID()),
		zap.Time("timestamp", event.GetTimestamp()),
		zap.Any("event", event),
	)
	return nil
}

func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, e := range domainEvents {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

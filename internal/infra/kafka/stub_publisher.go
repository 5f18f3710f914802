package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/zqshi/thinkcraft-auth/internal/core/port"
)

// StubPublisher logs events instead of producing them. Used when no brokers
// are configured, e.g. local development.
type StubPublisher struct {
	logger *zap.Logger
}

var _ port.EventPublisher = (*StubPublisher)(nil)

// NewStubPublisher returns a publisher that only logs.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

// Publish logs the event at debug level and drops it.
func (p *StubPublisher) Publish(_ context.Context, eventType string, payload any) error {
	p.logger.Debug("event publish skipped, no brokers configured",
		zap.String("event_type", eventType),
		zap.Any("payload", payload),
	)
	return nil
}

// Close is a no-op.
func (p *StubPublisher) Close() error {
	return nil
}

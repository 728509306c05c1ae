// Package events announces comparison outcomes on the message bus.
package events

import (
	"context"

	"github.com/veriscope/console/internal/registry"
	"github.com/veriscope/console/internal/result"
	"github.com/veriscope/console/pkg/logger"
	"github.com/veriscope/console/pkg/messaging"
)

// Publisher sends one event. *messaging.Publisher satisfies it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// ComparisonEventPublisher publishes comparison events. A nil receiver or a
// nil publisher drops every event, which is how a console without RabbitMQ runs.
type ComparisonEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewComparisonEventPublisher connects the publisher to the comparison exchange
func NewComparisonEventPublisher(rmq *messaging.RabbitMQ, exchange string, log *logger.Logger) (*ComparisonEventPublisher, error) {
	if exchange == "" {
		exchange = messaging.ExchangeComparisonEvents
	}
	publisher, err := messaging.NewPublisher(rmq, exchange, "veriscope-console", log)
	if err != nil {
		return nil, err
	}
	return New(publisher, log), nil
}

// New wraps any Publisher
func New(p Publisher, log *logger.Logger) *ComparisonEventPublisher {
	return &ComparisonEventPublisher{
		publisher: p,
		logger:    log.WithComponent("events"),
	}
}

// Outcome describes a finished comparison
type Outcome struct {
	Kind          registry.Kind
	ReferenceName string
	ProvidedCount int
	Operator      string
}

// PublishSucceeded announces a comparison that produced a result
func (p *ComparisonEventPublisher) PublishSucceeded(ctx context.Context, o Outcome, res *result.Result) {
	if p == nil || p.publisher == nil {
		return
	}

	data := messaging.ComparisonSucceededEvent{
		Kind:          string(o.Kind),
		ReferenceName: o.ReferenceName,
		ProvidedCount: o.ProvidedCount,
		EntryCount:    res.EntryCount(),
		TotalCost:     res.TotalCost,
		Operator:      o.Operator,
	}
	if res.Best != nil {
		data.BestConfidence = res.Best.Entry.Confidence
		data.BestDecision = res.Best.Entry.Decision.Label
		data.BestFilename = res.Best.Filename
	}

	if err := p.publisher.Publish(ctx, messaging.EventComparisonSucceeded, data); err != nil {
		p.logger.Error().Err(err).Str("kind", string(o.Kind)).Msg("failed to publish comparison succeeded event")
	}
}

// PublishFailed announces a comparison that ended with an error message
func (p *ComparisonEventPublisher) PublishFailed(ctx context.Context, o Outcome, message string) {
	if p == nil || p.publisher == nil {
		return
	}

	data := messaging.ComparisonFailedEvent{
		Kind:          string(o.Kind),
		ReferenceName: o.ReferenceName,
		ProvidedCount: o.ProvidedCount,
		Message:       message,
		Operator:      o.Operator,
	}

	if err := p.publisher.Publish(ctx, messaging.EventComparisonFailed, data); err != nil {
		p.logger.Error().Err(err).Str("kind", string(o.Kind)).Msg("failed to publish comparison failed event")
	}
}

// PublishSessionCleared announces that an operator reset a comparison
func (p *ComparisonEventPublisher) PublishSessionCleared(ctx context.Context, kind registry.Kind, operator string) {
	if p == nil || p.publisher == nil {
		return
	}

	data := messaging.SessionClearedEvent{Kind: string(kind), Operator: operator}
	if err := p.publisher.Publish(ctx, messaging.EventSessionCleared, data); err != nil {
		p.logger.Error().Err(err).Str("kind", string(kind)).Msg("failed to publish session cleared event")
	}
}

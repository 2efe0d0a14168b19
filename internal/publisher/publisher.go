package publisher

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	jsoniter "github.com/json-iterator/go"
	"github.com/numera/numera/internal/config"
	"github.com/numera/numera/internal/logger"
	"github.com/numera/numera/internal/pubsub"
	"github.com/numera/numera/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LedgerEventPublisher interface for producing ledger events
type LedgerEventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *types.LedgerEvent) error
	Close() error
}

type ledgerEventPublisher struct {
	pubSub pubsub.PubSub
	config *config.EventConfig
	logger *logger.Logger
}

// NewPublisher creates a new pubsub-backed publisher
func NewPublisher(
	pubSub pubsub.PubSub,
	cfg *config.Configuration,
	logger *logger.Logger,
) (LedgerEventPublisher, error) {
	return &ledgerEventPublisher{
		pubSub: pubSub,
		config: &cfg.Event,
		logger: logger.With("component", "ledger_publisher"),
	}, nil
}

func (p *ledgerEventPublisher) PublishLedgerEvent(ctx context.Context, event *types.LedgerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	messageID := event.ID
	if messageID == "" {
		messageID = watermill.NewUUID()
	}

	msg := message.NewMessage(messageID, payload)
	msg.Metadata.Set("customer_id", event.CustomerID)
	msg.Metadata.Set("event_name", string(event.EventName))

	p.logger.Debugw("publishing ledger event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"customer_id", event.CustomerID,
		"document_number", event.DocumentNumber,
		"topic", p.config.Topic,
	)

	if err := p.pubSub.Publish(ctx, p.config.Topic, msg); err != nil {
		p.logger.Errorw("failed to publish ledger event",
			"error", err,
			"event_id", event.ID,
			"event_name", event.EventName,
			"customer_id", event.CustomerID,
		)
		return err
	}

	return nil
}

// Close closes the publisher
func (p *ledgerEventPublisher) Close() error {
	return p.pubSub.Close()
}

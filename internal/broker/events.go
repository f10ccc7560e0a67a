package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-service/internal/models"
	"marketplace-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing offer lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOfferSubmitted publishes an OfferSubmitted event
func (ep *EventPublisher) PublishOfferSubmitted(ctx context.Context, event *models.OfferSubmittedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOfferAccepted publishes an OfferAccepted event
func (ep *EventPublisher) PublishOfferAccepted(ctx context.Context, event *models.OfferAcceptedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOfferRejected publishes an OfferRejected event
func (ep *EventPublisher) PublishOfferRejected(ctx context.Context, event *models.OfferRejectedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSaleRecorded publishes a SaleRecorded event
func (ep *EventPublisher) PublishSaleRecorded(ctx context.Context, event *models.SaleRecordedEvent) error {
	key := fmt.Sprintf("offer-%d", event.OfferID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onOfferAccepted func(context.Context, *models.OfferAcceptedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOfferAccepted registers a handler for OfferAccepted events
func (eh *EventHandler) OnOfferAccepted(handler func(context.Context, *models.OfferAcceptedEvent) error) {
	eh.onOfferAccepted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOfferAccepted:
		if eh.onOfferAccepted != nil {
			var event models.OfferAcceptedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferAccepted event: %w", err)
			}
			return eh.onOfferAccepted(ctx, &event)
		}

	default:
		// Submitted and Rejected events have no in-process consumer yet
	}

	return nil
}

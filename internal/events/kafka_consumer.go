package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-rental/pkg/events"
	"github.com/Kilat-Pet-Delivery/service-rental/pkg/kafka"
)

// CarBookingCanceller cancels the outstanding bookings of a car.
type CarBookingCanceller interface {
	CancelCarBookings(ctx context.Context, carID, reason string) (int, error)
}

// FleetEventConsumer listens to fleet events and releases bookings on retired cars.
type FleetEventConsumer struct {
	consumer *kafka.Consumer
	service  CarBookingCanceller
	logger   *zap.Logger
}

// NewFleetEventConsumer creates a new FleetEventConsumer.
func NewFleetEventConsumer(
	brokers []string,
	groupID string,
	service CarBookingCanceller,
	logger *zap.Logger,
) *FleetEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicFleetEvents, logger)
	return &FleetEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming fleet events. This blocks until the context is cancelled.
func (c *FleetEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *FleetEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *FleetEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from fleet topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.FleetCarRetired:
		return c.handleCarRetired(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled fleet event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *FleetEventConsumer) handleCarRetired(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.CarRetiredEvent
	if err := cloudEvent.ParseData(&evt); err != nil || evt.CarID == "" {
		c.logger.Error("failed to parse CarRetiredEvent data",
			zap.String("event_id", cloudEvent.ID),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	reason := "car retired from fleet"
	if evt.Reason != "" {
		reason = reason + ": " + evt.Reason
	}

	n, err := c.service.CancelCarBookings(ctx, evt.CarID, reason)
	if err != nil {
		c.logger.Error("failed to cancel bookings for retired car",
			zap.String("car_id", evt.CarID),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("bookings cancelled for retired car",
		zap.String("car_id", evt.CarID),
		zap.Int("cancelled", n),
	)
	return nil
}

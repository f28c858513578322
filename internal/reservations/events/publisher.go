package events

import (
	"context"
	"time"

	"fleetbook/pkg/kafka"
	"fleetbook/pkg/logger"
	"fleetbook/pkg/model"
)

// Event types published on the reservations topic.
const (
	TypeReservationCreated       = "reservation.created"
	TypeReservationUpdated       = "reservation.updated"
	TypeReservationStatusChanged = "reservation.status_changed"
	TypeReservationCancelled     = "reservation.cancelled"

	source = "reservations-service"
)

// Publisher emits reservation lifecycle events. Publishing is best effort,
// the reservation is already persisted when an event goes out, so failures
// are logged and never bubble back to the caller.
type Publisher interface {
	ReservationCreated(ctx context.Context, reservation *model.Reservation)
	ReservationUpdated(ctx context.Context, reservation *model.Reservation)
	ReservationStatusChanged(ctx context.Context, reservation *model.Reservation, from model.Status)
	ReservationCancelled(ctx context.Context, reservation *model.Reservation, reason string)
	Close() error
}

type reservationEvent struct {
	ReservationID string       `json:"reservation_id"`
	CustomerID    string       `json:"customer_id"`
	VehicleID     string       `json:"vehicle_id"`
	StartDate     time.Time    `json:"start_date"`
	EndDate       time.Time    `json:"end_date"`
	TotalAmount   float64      `json:"total_amount"`
	Status        model.Status `json:"status"`
	FromStatus    model.Status `json:"from_status,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

type kafkaPublisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaPublisher(producer *kafka.Producer, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func (p *kafkaPublisher) ReservationCreated(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, TypeReservationCreated, payload(reservation))
}

func (p *kafkaPublisher) ReservationUpdated(ctx context.Context, reservation *model.Reservation) {
	p.publish(ctx, TypeReservationUpdated, payload(reservation))
}

func (p *kafkaPublisher) ReservationStatusChanged(ctx context.Context, reservation *model.Reservation, from model.Status) {
	event := payload(reservation)
	event.FromStatus = from
	p.publish(ctx, TypeReservationStatusChanged, event)
}

func (p *kafkaPublisher) ReservationCancelled(ctx context.Context, reservation *model.Reservation, reason string) {
	event := payload(reservation)
	event.Reason = reason
	p.publish(ctx, TypeReservationCancelled, event)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

func (p *kafkaPublisher) publish(ctx context.Context, eventType string, event reservationEvent) {
	msg, err := kafka.NewEventMessage(eventType, event.ReservationID, source, event)
	if err != nil {
		p.log.Error("Failed to build reservation event",
			"event_type", eventType,
			"reservation_id", event.ReservationID,
			"error", err)
		return
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish reservation event",
			"event_type", eventType,
			"reservation_id", event.ReservationID,
			"error", err)
	}
}

func payload(reservation *model.Reservation) reservationEvent {
	return reservationEvent{
		ReservationID: reservation.ID,
		CustomerID:    reservation.CustomerID,
		VehicleID:     reservation.VehicleID,
		StartDate:     reservation.StartDate,
		EndDate:       reservation.EndDate,
		TotalAmount:   reservation.TotalAmount,
		Status:        reservation.Status,
	}
}

// NoopPublisher is used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) ReservationCreated(context.Context, *model.Reservation)                     {}
func (NoopPublisher) ReservationUpdated(context.Context, *model.Reservation)                     {}
func (NoopPublisher) ReservationStatusChanged(context.Context, *model.Reservation, model.Status) {}
func (NoopPublisher) ReservationCancelled(context.Context, *model.Reservation, string)           {}
func (NoopPublisher) Close() error                                                               { return nil }

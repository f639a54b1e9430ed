package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

// Publisher writes confirmation events onto the queue. Callers treat
// enqueue failures as non-fatal: the booking is already committed.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a publisher over the given queue.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// EnqueueBookingConfirmed publishes a booking_confirmed.v1 event.
func (p *Publisher) EnqueueBookingConfirmed(ctx context.Context, evt BookingConfirmed) error {
	body, err := json.Marshal(envelope{
		ID:      uuid.NewString(),
		Kind:    BookingConfirmedKind,
		Booking: &evt,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return err
	}
	p.logger.Debug("booking confirmation enqueued", "appointment_id", evt.AppointmentID)
	return nil
}

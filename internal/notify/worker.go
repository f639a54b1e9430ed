package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/brightsmile/dental-ai-platform/pkg/logging"
)

const (
	defaultWorkers         = 1
	defaultReceiveWait     = 2 // seconds
	defaultReceiveMax      = 5 // messages
	defaultReceiveErrDelay = time.Second
)

// Worker drains the confirmation queue and delivers emails. Failed
// deliveries are left on the queue for redelivery; malformed payloads
// are deleted so they cannot poison the loop.
type Worker struct {
	queue  Queue
	sender EmailSender
	logger *logging.Logger

	workers         int
	receiveWait     int
	receiveMax      int
	receiveErrDelay time.Duration

	wg sync.WaitGroup
}

// WorkerOption configures the worker pool.
type WorkerOption func(*Worker)

// WithWorkerCount overrides the number of queue polling goroutines.
func WithWorkerCount(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithReceiveWait overrides the long-poll wait in seconds.
func WithReceiveWait(seconds int) WorkerOption {
	return func(w *Worker) {
		if seconds >= 0 {
			w.receiveWait = seconds
		}
	}
}

// NewWorker creates a confirmation delivery worker.
func NewWorker(queue Queue, sender EmailSender, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	w := &Worker{
		queue:           queue,
		sender:          sender,
		logger:          logger,
		workers:         defaultWorkers,
		receiveWait:     defaultReceiveWait,
		receiveMax:      defaultReceiveMax,
		receiveErrDelay: defaultReceiveErrDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling goroutines. They exit when ctx is canceled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.poll(ctx)
		}()
	}
}

// Wait blocks until all polling goroutines have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.receiveMax, w.receiveWait)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Pause before re-polling so a broken queue endpoint
			// does not spin the loop.
			w.logger.Error("confirmation queue receive failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.receiveErrDelay):
			}
			continue
		}

		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Body), &env); err != nil {
		w.logger.Error("dropping malformed confirmation payload", "error", err, "message_id", msg.ID)
		w.deleteMessage(ctx, msg)
		return
	}

	switch env.Kind {
	case BookingConfirmedKind:
		if env.Booking == nil {
			w.logger.Error("booking_confirmed event missing body", "message_id", msg.ID)
			w.deleteMessage(ctx, msg)
			return
		}
		if err := w.sender.Send(ctx, ConfirmationEmail(*env.Booking)); err != nil {
			w.logger.Error("confirmation email failed, leaving for retry",
				"error", err, "appointment_id", env.Booking.AppointmentID)
			return
		}
		w.logger.Info("confirmation email delivered",
			"appointment_id", env.Booking.AppointmentID, "to", env.Booking.PatientEmail)
	default:
		w.logger.Warn("unknown confirmation event kind", "kind", env.Kind, "message_id", msg.ID)
	}

	w.deleteMessage(ctx, msg)
}

func (w *Worker) deleteMessage(ctx context.Context, msg Message) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("failed to delete queue message", "error", err, "message_id", msg.ID)
	}
}

// ConfirmationEmail renders the booking confirmation for a patient.
func ConfirmationEmail(evt BookingConfirmed) EmailMessage {
	name := evt.PatientName
	if name == "" {
		name = "there"
	}
	reason := evt.Reason
	if reason == "" {
		reason = "your visit"
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour appointment with %s is confirmed for %s at %s.\n\nReason: %s\n\nIf you need to reschedule, please cancel this appointment and book a new slot.\n\nBrightSmile Dental",
		name, evt.DentistName, evt.Date, evt.TimeLabel, reason,
	)
	return EmailMessage{
		To:      evt.PatientEmail,
		ToName:  evt.PatientName,
		Subject: fmt.Sprintf("Appointment confirmed for %s at %s", evt.Date, evt.TimeLabel),
		Body:    body,
	}
}

package mail

import (
	"context"
	"log/slog"
)

// Worker decouples user-facing latency from mail-transport latency:
// handlers enqueue and move on, delivery happens on background
// goroutines. Failures are logged and dropped; every flow that sends
// mail has a user-facing resend path, which is the retry policy.
type Worker struct {
	sender Sender
	queue  chan Message
}

func NewWorker(sender Sender, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Worker{sender: sender, queue: make(chan Message, buffer)}
}

// Start launches n delivery goroutines that drain the queue until ctx
// is cancelled.
func (w *Worker) Start(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go w.run(ctx)
	}
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.queue:
			if err := w.sender.Send(msg); err != nil {
				slog.Error("mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
			}
		}
	}
}

// Enqueue hands a message to the delivery queue. When the queue is full
// the message is dropped with a log line rather than blocking a request.
func (w *Worker) Enqueue(msg Message) {
	select {
	case w.queue <- msg:
	default:
		slog.Warn("mail queue full, dropping message", "to", msg.To, "subject", msg.Subject)
	}
}

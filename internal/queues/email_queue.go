// Package queues implements the outbound email path as a NATS-backed
// outbox: settlement code enqueues jobs and returns immediately, a
// dispatcher goroutine consumes them and delivers with bounded retries.
// Email failures never propagate back into the settlement transaction.
package queues

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

const emailSubject = "email.jobs"

// EmailJob is one queued outbound email.
type EmailJob struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Name      string `json:"name"`
	TargetURL string `json:"target_url"`
	Content   string `json:"content"`
}

// EmailSender performs the actual delivery.
type EmailSender interface {
	Send(job EmailJob) error
}

// EmailQueue publishes email jobs to NATS.
type EmailQueue struct {
	conn *nats.Conn
}

func NewEmailQueue(natsURL string) (*EmailQueue, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &EmailQueue{conn: conn}, nil
}

// Enqueue publishes one job. The context is accepted for interface symmetry;
// publishing is a buffered fire-and-forget.
func (q *EmailQueue) Enqueue(ctx context.Context, job EmailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal email job: %w", err)
	}
	if err := q.conn.Publish(emailSubject, data); err != nil {
		return fmt.Errorf("failed to publish email job: %w", err)
	}
	return nil
}

// Close drains the connection.
func (q *EmailQueue) Close() {
	q.conn.Close()
}

// EmailDispatcher consumes email jobs and delivers them through a sender,
// retrying with backoff before giving up.
type EmailDispatcher struct {
	conn       *nats.Conn
	sub        *nats.Subscription
	sender     EmailSender
	maxRetries int
	backoff    time.Duration
}

func NewEmailDispatcher(natsURL string, sender EmailSender) (*EmailDispatcher, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &EmailDispatcher{
		conn:       conn,
		sender:     sender,
		maxRetries: 3,
		backoff:    10 * time.Second,
	}, nil
}

// Start subscribes and blocks until the context is cancelled.
func (d *EmailDispatcher) Start(ctx context.Context) error {
	sub, err := d.conn.Subscribe(emailSubject, func(msg *nats.Msg) {
		d.handleMessage(msg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", emailSubject, err)
	}
	d.sub = sub
	log.Printf("[EmailDispatcher] Subscribed to %s", emailSubject)

	<-ctx.Done()
	if err := d.sub.Unsubscribe(); err != nil {
		log.Printf("[EmailDispatcher] Unsubscribe error: %v", err)
	}
	d.conn.Close()
	return nil
}

func (d *EmailDispatcher) handleMessage(msg *nats.Msg) {
	var job EmailJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Printf("[EmailDispatcher] Dropping malformed job: %v", err)
		return
	}

	var err error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.backoff * time.Duration(attempt))
		}
		if err = d.sender.Send(job); err == nil {
			return
		}
		log.Printf("[EmailDispatcher] Send to %s failed (attempt %d/%d): %v",
			job.To, attempt+1, d.maxRetries+1, err)
	}
	log.Printf("[EmailDispatcher] Giving up on email to %s: %v", job.To, err)
}

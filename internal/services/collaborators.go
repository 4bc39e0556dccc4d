package services

import (
	"context"
	"log"

	"fxchange/internal/notify"
	"fxchange/internal/queues"

	"github.com/google/uuid"
)

// Notifier is the realtime notification dispatcher. Delivery is
// best-effort: services log failures and continue.
type Notifier interface {
	Notify(ctx context.Context, input notify.Input) error
}

// EmailQueue enqueues outbound email for asynchronous delivery.
type EmailQueue interface {
	Enqueue(ctx context.Context, job queues.EmailJob) error
}

// ConversationService unlinks chat conversations from a stuff once it
// transacts. Chat itself lives outside this core.
type ConversationService interface {
	DetachStuffByStuffID(ctx context.Context, stuffID uuid.UUID) error
}

// ParticipantTracker keeps advisory auction viewer counts.
type ParticipantTracker interface {
	Push(ctx context.Context, stuffID uuid.UUID) (int64, error)
	Pop(ctx context.Context, stuffID uuid.UUID) (int64, error)
	Count(ctx context.Context, stuffID uuid.UUID) (int64, error)
}

// NoopConversations satisfies ConversationService when no chat backend is
// wired (tests, standalone deployments).
type NoopConversations struct{}

func (NoopConversations) DetachStuffByStuffID(ctx context.Context, stuffID uuid.UUID) error {
	return nil
}

// notifyBestEffort dispatches a notification and logs instead of failing.
func notifyBestEffort(ctx context.Context, n Notifier, input notify.Input) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, input); err != nil {
		log.Printf("Notification dispatch failed: %v", err)
	}
}

// enqueueEmailBestEffort enqueues an email job and logs instead of failing.
func enqueueEmailBestEffort(ctx context.Context, q EmailQueue, job queues.EmailJob) {
	if q == nil {
		return
	}
	if err := q.Enqueue(ctx, job); err != nil {
		log.Printf("Email enqueue failed: %v", err)
	}
}

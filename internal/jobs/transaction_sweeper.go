package jobs

import (
	"context"
	"log"
	"time"

	"fxchange/internal/services"
)

// TransactionSweeper runs the periodic transaction maintenance: deadline
// reminder emails and auto-completion of overdue non-pickup exchanges.
type TransactionSweeper struct {
	transactionService *services.TransactionService
	interval           time.Duration
	stopChan           chan struct{}
}

// NewTransactionSweeper creates a new transaction sweeper job
func NewTransactionSweeper(transactionService *services.TransactionService, interval time.Duration) *TransactionSweeper {
	return &TransactionSweeper{
		transactionService: transactionService,
		interval:           interval,
		stopChan:           make(chan struct{}),
	}
}

// Start begins the sweep loop
func (tw *TransactionSweeper) Start() {
	log.Printf("[TransactionSweeper] Starting transaction sweep job (interval: %v)", tw.interval)

	ticker := time.NewTicker(tw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.sweep()
		case <-tw.stopChan:
			log.Println("[TransactionSweeper] Stopping transaction sweep job")
			return
		}
	}
}

// Stop stops the sweep loop
func (tw *TransactionSweeper) Stop() {
	close(tw.stopChan)
}

// sweep sends the day-ahead reminders and completes overdue exchanges
func (tw *TransactionSweeper) sweep() {
	ctx := context.Background()

	reminded, err := tw.transactionService.SendExpiryReminders(ctx)
	if err != nil {
		log.Printf("[TransactionSweeper] Error sending expiry reminders: %v", err)
	} else if reminded > 0 {
		log.Printf("[TransactionSweeper] Sent expiry reminders for %d transactions", reminded)
	}

	completed, err := tw.transactionService.AutoCompleteExpired(ctx)
	if err != nil {
		log.Printf("[TransactionSweeper] Error completing expired transactions: %v", err)
	} else if completed > 0 {
		log.Printf("[TransactionSweeper] Auto-completed %d expired transactions", completed)
	}
}

package jobs

import (
	"context"
	"log"
	"time"

	"fxchange/internal/services"
)

const expiredAuctionBatch = 100

// AuctionCloser sweeps STARTED auctions whose deadline has passed and
// finishes them. The auction service arms an in-process timer per start;
// this sweep is the durable backstop for timers lost to a restart.
type AuctionCloser struct {
	auctionService *services.AuctionService
	interval       time.Duration
	stopChan       chan struct{}
}

// NewAuctionCloser creates a new auction closer job
func NewAuctionCloser(auctionService *services.AuctionService, interval time.Duration) *AuctionCloser {
	return &AuctionCloser{
		auctionService: auctionService,
		interval:       interval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins the auction closing loop
func (ac *AuctionCloser) Start() {
	log.Printf("[AuctionCloser] Starting auction closer job (interval: %v)", ac.interval)

	ticker := time.NewTicker(ac.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ac.closeExpiredAuctions()
		case <-ac.stopChan:
			log.Println("[AuctionCloser] Stopping auction closer job")
			return
		}
	}
}

// Stop stops the auction closing loop
func (ac *AuctionCloser) Stop() {
	close(ac.stopChan)
}

// closeExpiredAuctions finds and finishes all expired auctions
func (ac *AuctionCloser) closeExpiredAuctions() {
	ctx := context.Background()

	expired, err := ac.auctionService.ExpiredStarted(ctx, expiredAuctionBatch)
	if err != nil {
		log.Printf("[AuctionCloser] Error fetching expired auctions: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	log.Printf("[AuctionCloser] Finishing %d expired auctions", len(expired))

	for _, auction := range expired {
		if _, err := ac.auctionService.Finish(ctx, auction.StuffID); err != nil {
			log.Printf("[AuctionCloser] Error finishing auction %s: %v", auction.StuffID, err)
			continue
		}
		log.Printf("[AuctionCloser] Finished auction %s", auction.StuffID)
	}
}

package services

import (
	"context"
	"testing"

	"fxchange/internal/models"
	"fxchange/internal/repository"

	"github.com/google/uuid"
)

// fakeTracker keeps viewer counts in a map for testing the presence path.
type fakeTracker struct {
	counts map[uuid.UUID]int64
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{counts: make(map[uuid.UUID]int64)}
}

func (f *fakeTracker) Push(_ context.Context, stuffID uuid.UUID) (int64, error) {
	f.counts[stuffID]++
	return f.counts[stuffID], nil
}

func (f *fakeTracker) Pop(_ context.Context, stuffID uuid.UUID) (int64, error) {
	if f.counts[stuffID] > 0 {
		f.counts[stuffID]--
	}
	return f.counts[stuffID], nil
}

func (f *fakeTracker) Count(_ context.Context, stuffID uuid.UUID) (int64, error) {
	return f.counts[stuffID], nil
}

// startedAuction creates and walks an auction to STARTED through the
// service: owner lists it, a moderator approves, the owner starts it.
func startedAuction(t *testing.T, as *AuctionService, repo *repository.Repository, owner, mod *models.User, initial, step int64) *models.Auction {
	t.Helper()
	ctx := context.Background()

	auction, err := as.Create(ctx, owner.ID, CreateAuctionInput{
		StuffName:    "Vintage camera",
		InitialPrice: initial,
		StepPrice:    step,
		Duration:     60,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := as.Approve(ctx, mod.ID, auction.StuffID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	started, err := as.Start(ctx, auction.StuffID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return started
}

func TestApproveAuction(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 0)
	mod := createTestUser(t, repo, models.RoleModerator, 0)

	auction, err := as.Create(ctx, owner.ID, CreateAuctionInput{
		StuffName:    "Lamp",
		InitialPrice: 100,
		StepPrice:    10,
		Duration:     30,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stuff, err := repo.GetStuffByID(ctx, auction.StuffID)
	if err != nil {
		t.Fatalf("failed to load stuff: %v", err)
	}
	if stuff.Status != models.StuffStatusInactive {
		t.Errorf("expected new lot inactive, got %d", stuff.Status)
	}

	// A regular member cannot approve
	_, err = as.Approve(ctx, owner.ID, auction.StuffID)
	assertAppError(t, err, "INVALID_ACTION")

	// Bidding before approval and start is rejected
	bidder := createTestUser(t, repo, models.RoleMember, 1000)
	_, err = as.PlaceBid(ctx, bidder.ID, auction.StuffID, 150)
	assertAppError(t, err, "INVALID_AUCTION")

	approved, err := as.Approve(ctx, mod.ID, auction.StuffID)
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != models.AuctionStatusReady {
		t.Errorf("expected READY, got %s", approved.Status)
	}
	if approved.ApprovedByID == nil || *approved.ApprovedByID != mod.ID {
		t.Error("expected approving moderator recorded")
	}

	stuff, _ = repo.GetStuffByID(ctx, auction.StuffID)
	if stuff.Status != models.StuffStatusActive {
		t.Errorf("expected approved lot active, got %d", stuff.Status)
	}

	// Re-approving before start is a no-op
	if _, err := as.Approve(ctx, mod.ID, auction.StuffID); err != nil {
		t.Fatalf("re-approve before start failed: %v", err)
	}

	if _, err := as.Start(ctx, auction.StuffID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Once running the approval stage is over
	_, err = as.Approve(ctx, mod.ID, auction.StuffID)
	assertAppError(t, err, "AUCTION_ALREADY_APPROVED")
}

func TestStartRequiresApproval(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 0)
	auction, err := as.Create(ctx, owner.ID, CreateAuctionInput{
		StuffName:    "Chair",
		InitialPrice: 50,
		StepPrice:    5,
		Duration:     30,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = as.Start(ctx, auction.StuffID)
	assertAppError(t, err, "AUCTION_NOT_APPROVED")
}

func TestPlaceBidValidation(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 1000)
	mod := createTestUser(t, repo, models.RoleModerator, 0)
	alice := createTestUser(t, repo, models.RoleMember, 1000)
	bob := createTestUser(t, repo, models.RoleMember, 1000)
	broke := createTestUser(t, repo, models.RoleMember, 5)

	auction := startedAuction(t, as, repo, owner, mod, 100, 10)
	stuffID := auction.StuffID

	// Balance gate comes first
	_, err := as.PlaceBid(ctx, broke.ID, stuffID, 110)
	assertAppError(t, err, "ERROR_AUCTION_AMOUNT")

	// Unknown auction
	_, err = as.PlaceBid(ctx, alice.ID, uuid.New(), 110)
	assertAppError(t, err, "AUCTION_NOT_FOUND")

	// The owner cannot bid on their own lot
	_, err = as.PlaceBid(ctx, owner.ID, stuffID, 110)
	assertAppError(t, err, "INVALID_AUCTION")

	// Must clear the initial price
	_, err = as.PlaceBid(ctx, alice.ID, stuffID, 100)
	assertAppError(t, err, "BAD_BIDDING_PRICE")

	// Must clear the step over the initial price
	_, err = as.PlaceBid(ctx, alice.ID, stuffID, 105)
	assertAppError(t, err, "BAD_BIDDING_PRICE")

	bid, err := as.PlaceBid(ctx, alice.ID, stuffID, 110)
	if err != nil {
		t.Fatalf("valid bid rejected: %v", err)
	}
	if bid.BidPrice != 110 {
		t.Errorf("expected bid price 110, got %d", bid.BidPrice)
	}

	// The leading bidder cannot outbid themselves
	_, err = as.PlaceBid(ctx, alice.ID, stuffID, 130)
	assertAppError(t, err, "INVALID_AUCTION")

	// The step now applies over the last bid
	_, err = as.PlaceBid(ctx, bob.ID, stuffID, 115)
	assertAppError(t, err, "BAD_BIDDING_PRICE")

	if _, err := as.PlaceBid(ctx, bob.ID, stuffID, 120); err != nil {
		t.Fatalf("valid outbid rejected: %v", err)
	}

	history, err := as.BiddingHistory(ctx, stuffID)
	if err != nil {
		t.Fatalf("BiddingHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 bids, got %d", len(history))
	}
}

func TestPlaceBidOnReadyAuction(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 0)
	mod := createTestUser(t, repo, models.RoleModerator, 0)
	bidder := createTestUser(t, repo, models.RoleMember, 1000)

	auction, err := as.Create(ctx, owner.ID, CreateAuctionInput{
		StuffName:    "Bike",
		InitialPrice: 100,
		StepPrice:    10,
		Duration:     30,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := as.Approve(ctx, mod.ID, auction.StuffID); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	_, err = as.PlaceBid(ctx, bidder.ID, auction.StuffID, 150)
	assertAppError(t, err, "ERROR_AUCTION_READY")
}

func TestFinishAuction(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 0)
	mod := createTestUser(t, repo, models.RoleModerator, 0)
	alice := createTestUser(t, repo, models.RoleMember, 1000)
	bob := createTestUser(t, repo, models.RoleMember, 1000)

	auction := startedAuction(t, as, repo, owner, mod, 500, 50)
	stuffID := auction.StuffID

	if _, err := as.PlaceBid(ctx, alice.ID, stuffID, 550); err != nil {
		t.Fatalf("bid failed: %v", err)
	}
	if _, err := as.PlaceBid(ctx, bob.ID, stuffID, 600); err != nil {
		t.Fatalf("bid failed: %v", err)
	}

	finished, err := as.Finish(ctx, stuffID)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if finished.Status != models.AuctionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", finished.Status)
	}
	if finished.WinnerID == nil || *finished.WinnerID != bob.ID {
		t.Error("expected bob as winner")
	}
	if finished.FinalPrice == nil || *finished.FinalPrice != 600 {
		t.Error("expected final price 600")
	}

	// Winner paid, runner-up untouched
	if got := userPoint(t, repo, bob.ID); got != 400 {
		t.Errorf("expected winner balance 400, got %d", got)
	}
	if got := userPoint(t, repo, alice.ID); got != 1000 {
		t.Errorf("expected loser balance 1000, got %d", got)
	}

	stuff, _ := repo.GetStuffByID(ctx, stuffID)
	if stuff.Status != models.StuffStatusSold {
		t.Errorf("expected lot sold, got %d", stuff.Status)
	}
	if stuff.Price != 600 {
		t.Errorf("expected lot price 600, got %d", stuff.Price)
	}

	// The pickup transaction escrows the sale
	tx, err := repo.GetTransactionByStuffID(ctx, stuffID)
	if err != nil || tx == nil {
		t.Fatalf("expected pickup transaction, got %v", err)
	}
	if tx.Status != models.TransactionStatusPending || !tx.IsPickup {
		t.Errorf("expected PENDING pickup transaction, got %s pickup=%v", tx.Status, tx.IsPickup)
	}
	if tx.CustomerID != bob.ID || tx.StuffOwnerID != owner.ID || tx.Amount != 600 {
		t.Error("pickup transaction parties or amount wrong")
	}

	// A duplicate timer fire cannot settle twice
	_, err = as.Finish(ctx, stuffID)
	assertAppError(t, err, "AUCTION_NOT_STARTED")
	if got := userPoint(t, repo, bob.ID); got != 400 {
		t.Errorf("double finish changed winner balance to %d", got)
	}

	// No further bids on the settled auction
	_, err = as.PlaceBid(ctx, alice.ID, stuffID, 700)
	assertAppError(t, err, "ERROR_AUCTION_COMPLETED")
}

func TestUpdateParticipant(t *testing.T) {
	repo := newTestRepo(t)
	tracker := newFakeTracker()
	as := NewAuctionService(repo, nil, tracker)
	ctx := context.Background()

	viewer := createTestUser(t, repo, models.RoleMember, 0)
	other := createTestUser(t, repo, models.RoleMember, 0)
	stuffID := uuid.New()

	if got := as.UpdateParticipant(ctx, viewer.ID, stuffID, "push"); got != 1 {
		t.Errorf("expected count 1 after first join, got %d", got)
	}
	if got := as.UpdateParticipant(ctx, other.ID, stuffID, "push"); got != 2 {
		t.Errorf("expected count 2 after second join, got %d", got)
	}
	if got := as.UpdateParticipant(ctx, viewer.ID, stuffID, "pop"); got != 1 {
		t.Errorf("expected count 1 after leave, got %d", got)
	}
	if got := as.Participants(ctx, stuffID); got != 1 {
		t.Errorf("expected count 1 from read, got %d", got)
	}

	// Unknown actions are ignored
	if got := as.UpdateParticipant(ctx, viewer.ID, stuffID, "wave"); got != 0 {
		t.Errorf("expected 0 for unknown action, got %d", got)
	}
}

func TestFinishAuctionClampsWinnerBalance(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 0)
	mod := createTestUser(t, repo, models.RoleModerator, 0)
	bidder := createTestUser(t, repo, models.RoleMember, 1000)

	auction := startedAuction(t, as, repo, owner, mod, 500, 50)
	if _, err := as.PlaceBid(ctx, bidder.ID, auction.StuffID, 600); err != nil {
		t.Fatalf("bid failed: %v", err)
	}

	// The balance drops below the bid before settlement
	if _, err := repo.AdjustUserPoint(ctx, bidder.ID, -900); err != nil {
		t.Fatalf("failed to drain balance: %v", err)
	}

	if _, err := as.Finish(ctx, auction.StuffID); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	// Debiting 600 from 100 floors at zero, never negative
	if got := userPoint(t, repo, bidder.ID); got != 0 {
		t.Errorf("expected winner balance clamped to 0, got %d", got)
	}
}

func TestFinishAuctionWithoutBids(t *testing.T) {
	repo := newTestRepo(t)
	as := NewAuctionService(repo, nil, nil)
	ctx := context.Background()

	owner := createTestUser(t, repo, models.RoleMember, 0)
	mod := createTestUser(t, repo, models.RoleModerator, 0)

	auction := startedAuction(t, as, repo, owner, mod, 100, 10)

	finished, err := as.Finish(ctx, auction.StuffID)
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if finished.Status != models.AuctionStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", finished.Status)
	}
	if finished.WinnerID != nil {
		t.Error("expected no winner")
	}

	// No sale, no transaction
	tx, err := repo.GetTransactionByStuffID(ctx, auction.StuffID)
	if err != nil {
		t.Fatalf("transaction lookup failed: %v", err)
	}
	if tx != nil {
		t.Error("expected no transaction for a winnerless auction")
	}
}

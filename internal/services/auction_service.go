package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"fxchange/internal/apperrors"
	"fxchange/internal/models"
	"fxchange/internal/notify"
	"fxchange/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	pickupWindow    = 3 * 24 * time.Hour
	finishTxTimeout = 10 * time.Second
	auctionTypeSlug = "stuff"
	transactionSlug = "transaction"
	participantPush = "push"
	participantPop  = "pop"
)

type AuctionService struct {
	repo     *repository.Repository
	notifier Notifier
	presence ParticipantTracker

	// lockFor serializes the read-validate-insert bid path per auction.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex

	timerMu sync.Mutex
	timers  map[uuid.UUID]*time.Timer
}

func NewAuctionService(repo *repository.Repository, notifier Notifier, presence ParticipantTracker) *AuctionService {
	return &AuctionService{
		repo:     repo,
		notifier: notifier,
		presence: presence,
		locks:    make(map[uuid.UUID]*sync.Mutex),
		timers:   make(map[uuid.UUID]*time.Timer),
	}
}

func (as *AuctionService) lockFor(stuffID uuid.UUID) *sync.Mutex {
	as.mu.Lock()
	defer as.mu.Unlock()
	l, ok := as.locks[stuffID]
	if !ok {
		l = &sync.Mutex{}
		as.locks[stuffID] = l
	}
	return l
}

// CreateAuctionInput describes a new auction listing request.
type CreateAuctionInput struct {
	StuffName      string `json:"stuff_name"`
	Description    string `json:"description"`
	ConditionScore int16  `json:"condition_score"`
	Media          string `json:"media"`
	Tags           string `json:"tags"`
	InitialPrice   int64  `json:"initial_price"`
	StepPrice      int64  `json:"step_price"`
	Duration       int    `json:"duration"` // minutes
}

// Create lists a new auction lot. The lot stays inactive and the auction
// unapproved until a moderator approves it.
func (as *AuctionService) Create(ctx context.Context, ownerID uuid.UUID, input CreateAuctionInput) (*models.Auction, error) {
	if input.InitialPrice <= 0 || input.StepPrice <= 0 || input.Duration <= 0 {
		return nil, apperrors.BadRequest("INVALID_AUCTION_INPUT", "Initial price, step price and duration must be positive")
	}

	stuff := &models.Stuff{
		ID:             uuid.New(),
		AuthorID:       ownerID,
		Name:           input.StuffName,
		Description:    input.Description,
		Type:           models.StuffTypeAuction,
		Status:         models.StuffStatusInactive,
		Price:          input.InitialPrice,
		ConditionScore: input.ConditionScore,
		Media:          input.Media,
		Tags:           input.Tags,
	}
	auction := &models.Auction{
		StuffID:      stuff.ID,
		IsApproved:   false,
		InitialPrice: input.InitialPrice,
		StepPrice:    input.StepPrice,
		Duration:     input.Duration,
	}

	err := as.repo.InTx(ctx, finishTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.CreateStuff(ctx, stuff); err != nil {
			return err
		}
		return txRepo.CreateAuction(ctx, auction)
	})
	if err != nil {
		log.Printf("Error creating auction: %v", err)
		return nil, apperrors.BadRequest("FAILED_TO_CREATE_AUCTION", "Failed to create auction")
	}
	return auction, nil
}

// Approve marks an auction as approved and activates its lot. Only
// moderators and admins may approve. Re-approving an auction that already
// left the approval stage is rejected.
func (as *AuctionService) Approve(ctx context.Context, modID, stuffID uuid.UUID) (*models.Auction, error) {
	if _, err := requireMod(ctx, as.repo, modID); err != nil {
		return nil, err
	}

	auction, err := as.getAuction(ctx, stuffID)
	if err != nil {
		return nil, err
	}
	if auction.IsApproved && auction.Status != models.AuctionStatusReady {
		return nil, apperrors.New(409, "AUCTION_ALREADY_APPROVED", "Auction is already approved")
	}
	if auction.IsApproved {
		return auction, nil
	}

	stuff, err := as.repo.GetStuffByID(ctx, stuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stuff: %w", err)
	}

	auction.IsApproved = true
	auction.Status = models.AuctionStatusReady
	auction.ApprovedByID = &modID

	err = as.repo.InTx(ctx, finishTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.UpdateAuction(ctx, auction); err != nil {
			return err
		}
		return txRepo.UpdateStuffStatus(ctx, stuffID, models.StuffStatusActive)
	})
	if err != nil {
		log.Printf("Error approving auction %s: %v", stuffID, err)
		return nil, apperrors.BadRequest("FAILED_TO_APPROVE_AUCTION", "Cannot approve auction")
	}

	notifyBestEffort(ctx, as.notifier, notify.Input{
		Content:   fmt.Sprintf("Your auction request for %s has been approved. You can start it at any time.", stuff.Name),
		ActorID:   modID,
		TargetID:  stuffID.String(),
		Type:      auctionTypeSlug,
		Receivers: []uuid.UUID{stuff.AuthorID},
	})
	return auction, nil
}

// Start opens an approved auction for bidding: stamps the start time,
// computes the expiry from the configured duration, and schedules the
// deferred finish. The in-process timer is advisory; the closer job sweeps
// expired auctions in case the timer is lost.
func (as *AuctionService) Start(ctx context.Context, stuffID uuid.UUID) (*models.Auction, error) {
	auction, err := as.getAuction(ctx, stuffID)
	if err != nil {
		return nil, err
	}
	if !auction.IsApproved {
		return nil, apperrors.BadRequest("AUCTION_NOT_APPROVED", "Auction is not approved")
	}

	stuff, err := as.repo.GetStuffByID(ctx, stuffID)
	if err != nil {
		log.Printf("Error during start auction %s: %v", stuffID, err)
		return nil, apperrors.BadRequest("FAILED_TO_START_AUCTION", "Failed to start auction")
	}

	now := time.Now()
	expireAt := now.Add(time.Duration(auction.Duration) * time.Minute)
	auction.StartAt = &now
	auction.ExpireAt = &expireAt
	auction.Status = models.AuctionStatusStarted

	if err := as.repo.UpdateAuction(ctx, auction); err != nil {
		log.Printf("Error during start auction %s: %v", stuffID, err)
		return nil, apperrors.BadRequest("FAILED_TO_START_AUCTION", "Failed to start auction")
	}

	as.scheduleFinish(stuffID, expireAt)

	notifyBestEffort(ctx, as.notifier, notify.Input{
		Content:      fmt.Sprintf("The auction for %s has started.", stuff.Name),
		ActorID:      stuff.AuthorID,
		TargetID:     stuffID.String(),
		Type:         auctionTypeSlug,
		ForModerator: true,
	})
	return auction, nil
}

// scheduleFinish arms a one-shot timer for the auction expiry. A duplicate
// fire is harmless: Finish refuses anything that is not STARTED.
func (as *AuctionService) scheduleFinish(stuffID uuid.UUID, expireAt time.Time) {
	as.timerMu.Lock()
	defer as.timerMu.Unlock()
	if t, ok := as.timers[stuffID]; ok {
		t.Stop()
	}
	as.timers[stuffID] = time.AfterFunc(time.Until(expireAt), func() {
		if _, err := as.Finish(context.Background(), stuffID); err != nil {
			log.Printf("Scheduled finish for auction %s failed: %v", stuffID, err)
		}
	})
}

// PlaceBid validates and records a bid. The whole read-validate-insert
// sequence holds the per-auction lock so two concurrent bids can never both
// validate against the same stale last bid.
func (as *AuctionService) PlaceBid(ctx context.Context, uid, stuffID uuid.UUID, biddingPrice int64) (*models.BiddingHistory, error) {
	l := as.lockFor(stuffID)
	l.Lock()
	defer l.Unlock()

	bidder, err := as.repo.GetUserByID(ctx, uid)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("USER_NOT_EXIST", "User not exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bidder: %w", err)
	}
	if biddingPrice > bidder.Point {
		return nil, apperrors.BadRequest("ERROR_AUCTION_AMOUNT", "Cannot bid. Your amount is not available")
	}

	auction, err := as.repo.GetAuctionByStuffID(ctx, stuffID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.BadRequest("AUCTION_NOT_FOUND", "Auction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	if auction.Status == models.AuctionStatusCompleted {
		return nil, apperrors.BadRequest("ERROR_AUCTION_COMPLETED", "Cannot bid. Auction is already finished")
	}
	if auction.Status == models.AuctionStatusReady {
		return nil, apperrors.BadRequest("ERROR_AUCTION_READY", "Cannot bid. Auction has not started yet")
	}

	stuff, err := as.repo.GetStuffByID(ctx, stuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stuff: %w", err)
	}
	lastBid, err := as.repo.GetLastBid(ctx, stuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last bid: %w", err)
	}

	if (lastBid != nil && lastBid.AuctionID != auction.StuffID) ||
		auction.Status != models.AuctionStatusStarted ||
		(lastBid != nil && lastBid.AuthorID == uid) ||
		uid == stuff.AuthorID {
		return nil, apperrors.BadRequest("INVALID_AUCTION", "Invalid bidding action")
	}

	floor := auction.InitialPrice
	if lastBid != nil && lastBid.BidPrice > floor {
		floor = lastBid.BidPrice
	}
	step := biddingPrice - floor
	if (lastBid != nil && biddingPrice <= lastBid.BidPrice) ||
		biddingPrice <= auction.InitialPrice ||
		step < auction.StepPrice {
		return nil, apperrors.BadRequest("BAD_BIDDING_PRICE", "Bad bidding price")
	}

	bid := &models.BiddingHistory{
		ID:        uuid.New(),
		AuctionID: stuffID,
		AuthorID:  uid,
		BidPrice:  biddingPrice,
		CreatedAt: time.Now(),
	}
	if err := as.repo.CreateBid(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to record bid: %w", err)
	}
	return bid, nil
}

// Finish settles a STARTED auction inside a single database transaction:
// it determines the winner from the last bid, debits the winner, marks the
// lot sold and spawns the pickup transaction. Notifications go out after
// commit, best-effort. Requiring STARTED makes duplicate invocations safe.
func (as *AuctionService) Finish(ctx context.Context, stuffID uuid.UUID) (*models.Auction, error) {
	stuff, err := as.repo.GetStuffByID(ctx, stuffID)
	if err != nil {
		log.Printf("Error during finish auction %s: %v", stuffID, err)
		return nil, apperrors.BadRequest("FAILED_TO_FINISH_AUCTION", "Failed to finish auction")
	}

	var auction *models.Auction
	var lastBid *models.BiddingHistory

	err = as.repo.InTx(ctx, finishTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		var err error
		auction, err = txRepo.GetAuctionByStuffID(ctx, stuffID)
		if err != nil {
			return err
		}
		if auction.Status != models.AuctionStatusStarted {
			return apperrors.BadRequest("AUCTION_NOT_STARTED", "Cannot finish auction")
		}

		lastBid, err = txRepo.GetLastBid(ctx, stuffID)
		if err != nil {
			return err
		}

		auction.Status = models.AuctionStatusCompleted
		if lastBid == nil {
			return txRepo.UpdateAuction(ctx, auction)
		}

		finalPrice := lastBid.BidPrice
		winnerID := lastBid.AuthorID
		auction.FinalPrice = &finalPrice
		auction.WinnerID = &winnerID
		if err := txRepo.UpdateAuction(ctx, auction); err != nil {
			return err
		}

		note := fmt.Sprintf("Won auction for %s, paid %d", stuff.Name, finalPrice)
		if _, err := adjustPoints(ctx, txRepo, winnerID, -finalPrice, note); err != nil {
			return err
		}
		if err := txRepo.UpdateStuffSold(ctx, stuffID, finalPrice); err != nil {
			return err
		}

		expireAt := time.Now().Add(pickupWindow)
		pickup := &models.Transaction{
			ID:           uuid.New(),
			StuffID:      stuffID,
			CustomerID:   winnerID,
			StuffOwnerID: stuff.AuthorID,
			Amount:       finalPrice,
			IsPickup:     true,
			Status:       models.TransactionStatusPending,
			ExpireAt:     &expireAt,
		}
		return txRepo.CreateTransaction(ctx, pickup)
	})
	if err != nil {
		if appErr := apperrors.From(err, nil); appErr != nil {
			return nil, appErr
		}
		log.Printf("Error during finish auction %s: %v", stuffID, err)
		return nil, apperrors.BadRequest("FAILED_TO_FINISH_AUCTION", "Failed to finish auction")
	}

	as.cancelTimer(stuffID)

	if lastBid == nil {
		notifyBestEffort(ctx, as.notifier, notify.Input{
			Content:   fmt.Sprintf("No winner at the auction for %s", stuff.Name),
			ActorID:   stuff.AuthorID,
			TargetID:  stuffID.String(),
			Type:      auctionTypeSlug,
			Receivers: []uuid.UUID{stuff.AuthorID},
		})
	} else {
		notifyBestEffort(ctx, as.notifier, notify.Input{
			Content:   fmt.Sprintf("Congratulations, you won the auction for %s", stuff.Name),
			ActorID:   stuff.AuthorID,
			TargetID:  stuffID.String(),
			Type:      auctionTypeSlug,
			Receivers: []uuid.UUID{lastBid.AuthorID},
		})
		notifyBestEffort(ctx, as.notifier, notify.Input{
			Content:   fmt.Sprintf("The auction for %s has ended. A deposit request was created. Please bring the item for deposit within 3 days.", stuff.Name),
			ActorID:   stuff.AuthorID,
			TargetID:  "",
			Type:      transactionSlug,
			Receivers: []uuid.UUID{stuff.AuthorID},
		})
	}
	notifyBestEffort(ctx, as.notifier, notify.Input{
		Content:      fmt.Sprintf("The auction for %s has ended. A deposit request was created.", stuff.Name),
		ActorID:      stuff.AuthorID,
		TargetID:     stuffID.String(),
		Type:         auctionTypeSlug,
		ForModerator: true,
	})

	return auction, nil
}

func (as *AuctionService) cancelTimer(stuffID uuid.UUID) {
	as.timerMu.Lock()
	defer as.timerMu.Unlock()
	if t, ok := as.timers[stuffID]; ok {
		t.Stop()
		delete(as.timers, stuffID)
	}
}

// FindByStuffID retrieves an auction by its stuff ID
func (as *AuctionService) FindByStuffID(ctx context.Context, stuffID uuid.UUID) (*models.Auction, error) {
	return as.getAuction(ctx, stuffID)
}

// FindAll retrieves auctions, optionally filtered by approval state
func (as *AuctionService) FindAll(ctx context.Context, isApproved *bool) ([]*models.Auction, error) {
	return as.repo.GetAuctions(ctx, isApproved)
}

// FindAllAvailable retrieves approved auctions open for viewing or bidding
func (as *AuctionService) FindAllAvailable(ctx context.Context) ([]*models.Auction, error) {
	return as.repo.GetAvailableAuctions(ctx)
}

// ExpiredStarted retrieves STARTED auctions whose deadline has passed
func (as *AuctionService) ExpiredStarted(ctx context.Context, limit int) ([]*models.Auction, error) {
	return as.repo.GetExpiredStartedAuctions(ctx, time.Now(), limit)
}

// BiddingHistory retrieves all bids on an auction, newest first
func (as *AuctionService) BiddingHistory(ctx context.Context, stuffID uuid.UUID) ([]*models.BiddingHistory, error) {
	return as.repo.GetBiddingHistory(ctx, stuffID)
}

// UpdateParticipant tracks auction room joins and leaves. Purely advisory:
// any failure is logged and swallowed so it can never affect bidding.
func (as *AuctionService) UpdateParticipant(ctx context.Context, uid, stuffID uuid.UUID, action string) int64 {
	if as.presence == nil {
		return 0
	}
	var count int64
	var err error
	switch action {
	case participantPush:
		count, err = as.presence.Push(ctx, stuffID)
	case participantPop:
		count, err = as.presence.Pop(ctx, stuffID)
	default:
		return 0
	}
	if err != nil {
		log.Printf("Error updating auction %s participants: %v", stuffID, err)
		return 0
	}
	return count
}

// Participants reads the current advisory viewer count of an auction room.
func (as *AuctionService) Participants(ctx context.Context, stuffID uuid.UUID) int64 {
	if as.presence == nil {
		return 0
	}
	count, err := as.presence.Count(ctx, stuffID)
	if err != nil {
		log.Printf("Error reading auction %s participants: %v", stuffID, err)
		return 0
	}
	return count
}

// RescheduleStarted re-arms finish timers for STARTED auctions, used on
// startup so deadlines survive process restarts.
func (as *AuctionService) RescheduleStarted(ctx context.Context) error {
	auctions, err := as.repo.GetExpiredStartedAuctions(ctx, time.Now().Add(365*24*time.Hour), 1000)
	if err != nil {
		return fmt.Errorf("failed to list started auctions: %w", err)
	}
	for _, a := range auctions {
		if a.ExpireAt == nil {
			continue
		}
		as.scheduleFinish(a.StuffID, *a.ExpireAt)
	}
	return nil
}

func (as *AuctionService) getAuction(ctx context.Context, stuffID uuid.UUID) (*models.Auction, error) {
	auction, err := as.repo.GetAuctionByStuffID(ctx, stuffID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.BadRequest("AUCTION_NOT_FOUND", "Auction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}
	return auction, nil
}

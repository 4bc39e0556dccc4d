package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"fxchange/internal/apperrors"
	"fxchange/internal/models"
	"fxchange/internal/notify"
	"fxchange/internal/queues"
	"fxchange/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ongoingWindow = 2 * 24 * time.Hour
	issueWindow   = 7 * 24 * time.Hour
)

type TransactionService struct {
	repo          *repository.Repository
	notifier      Notifier
	emails        EmailQueue
	conversations ConversationService
	appURL        string
}

func NewTransactionService(repo *repository.Repository, notifier Notifier, emails EmailQueue, conversations ConversationService, appURL string) *TransactionService {
	if conversations == nil {
		conversations = NoopConversations{}
	}
	return &TransactionService{
		repo:          repo,
		notifier:      notifier,
		emails:        emails,
		conversations: conversations,
		appURL:        appURL,
	}
}

// CreateTransactionInput describes a transaction request against a listed
// stuff.
type CreateTransactionInput struct {
	StuffID         uuid.UUID  `json:"stuff_id"`
	ExchangeStuffID *uuid.UUID `json:"exchange_stuff_id"`
	IsPickup        bool       `json:"is_pickup"`
	ExpireAt        *time.Time `json:"expire_at"`
}

// Create opens a transaction on a stuff. Exchange listings are accepted by
// the listing owner against a counteroffer item; market listings are bought
// by the customer, with the price escrowed from their balance up front.
// Auction transactions are never created here, the auction finish spawns
// them.
func (ts *TransactionService) Create(ctx context.Context, proposerID uuid.UUID, input CreateTransactionInput) (*models.Transaction, error) {
	proposer, err := ts.repo.GetUserByID(ctx, proposerID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("USER_NOT_EXIST", "User not exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposer: %w", err)
	}
	if proposer.Phone == "" {
		return nil, apperrors.BadRequest("PHONE_NOT_EXIST", "A phone number is required before requesting a transaction")
	}

	stuff, err := ts.repo.GetStuffByID(ctx, input.StuffID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.BadRequest("STUFF_IS_NOT_AVAILABLE", "Stuff is not available")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stuff: %w", err)
	}
	if stuff.Status != models.StuffStatusActive {
		return nil, apperrors.BadRequest("STUFF_IS_NOT_AVAILABLE", "Stuff is not available")
	}

	existing, err := ts.repo.GetTransactionByStuffID(ctx, input.StuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing transaction: %w", err)
	}
	if existing != nil && existing.Status != models.TransactionStatusCanceled {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}

	now := time.Now()
	tx := &models.Transaction{
		ID:       uuid.New(),
		StuffID:  input.StuffID,
		IsPickup: input.IsPickup,
	}
	var exchangeStuff *models.Stuff

	switch stuff.Type {
	case models.StuffTypeExchange:
		if input.ExchangeStuffID == nil {
			return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "An exchange transaction requires a counteroffer item")
		}
		// The listing owner accepts a counteroffer, so the proposer must
		// own the listed stuff and the counteroffer owner becomes the
		// customer.
		if proposerID != stuff.AuthorID {
			return nil, apperrors.New(http.StatusForbidden, "INVALID_ACTION", "Invalid action")
		}
		exchangeStuff, err = ts.repo.GetStuffByID(ctx, *input.ExchangeStuffID)
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.BadRequest("STUFF_IS_NOT_AVAILABLE", "Stuff is not available")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get exchange stuff: %w", err)
		}
		if exchangeStuff.Type != models.StuffTypeExchange && exchangeStuff.Type != models.StuffTypeArchived {
			return nil, apperrors.BadRequest("TYPE_NOT_VALID", "Counteroffer item type is not valid")
		}
		if exchangeStuff.Status != models.StuffStatusActive || exchangeStuff.AuthorID == proposerID {
			return nil, apperrors.BadRequest("STUFF_IS_NOT_AVAILABLE", "Stuff is not available")
		}

		tx.ExchangeStuffID = input.ExchangeStuffID
		tx.CustomerID = exchangeStuff.AuthorID
		tx.StuffOwnerID = stuff.AuthorID
		if input.IsPickup {
			tx.Status = models.TransactionStatusPending
			expireAt := now.Add(pickupWindow)
			tx.ExpireAt = &expireAt
		} else {
			tx.Status = models.TransactionStatusOngoing
			tx.ExpireAt = input.ExpireAt
		}

	case models.StuffTypeMarket:
		if proposerID == stuff.AuthorID {
			return nil, apperrors.New(http.StatusForbidden, "INVALID_ACTION", "Invalid action")
		}
		if !input.IsPickup {
			return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Market purchases settle through deposit pickup")
		}
		if proposer.Point < stuff.Price {
			return nil, apperrors.BadRequest("POINT_NOT_ENOUGH", "Your point is not enough")
		}
		tx.CustomerID = proposerID
		tx.StuffOwnerID = stuff.AuthorID
		tx.Amount = stuff.Price
		tx.Status = models.TransactionStatusPending
		expireAt := now.Add(pickupWindow)
		tx.ExpireAt = &expireAt

	default:
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}

	err = ts.repo.InTx(ctx, settlementTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.CreateTransaction(ctx, tx); err != nil {
			return err
		}
		if tx.Amount > 0 {
			note := fmt.Sprintf("Purchase of %s", stuff.Name)
			if _, err := adjustPoints(ctx, txRepo, tx.CustomerID, -tx.Amount, note); err != nil {
				return err
			}
		}
		if err := txRepo.UpdateStuffStatus(ctx, stuff.ID, models.StuffStatusSold); err != nil {
			return err
		}
		if exchangeStuff != nil {
			if err := txRepo.UpdateStuffStatus(ctx, exchangeStuff.ID, models.StuffStatusSold); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if appErr := apperrors.From(err, nil); appErr != nil {
			return nil, appErr
		}
		log.Printf("Error creating transaction for stuff %s: %v", stuff.ID, err)
		return nil, apperrors.BadRequest("FAILED_TO_CREATE_TRANSACTION", "Failed to create transaction")
	}

	if err := ts.conversations.DetachStuffByStuffID(ctx, stuff.ID); err != nil {
		log.Printf("Failed to detach conversations from stuff %s: %v", stuff.ID, err)
	}
	if exchangeStuff != nil {
		if err := ts.conversations.DetachStuffByStuffID(ctx, exchangeStuff.ID); err != nil {
			log.Printf("Failed to detach conversations from stuff %s: %v", exchangeStuff.ID, err)
		}
	}

	counterpartID := tx.CustomerID
	if proposerID == tx.CustomerID {
		counterpartID = tx.StuffOwnerID
	}
	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:   fmt.Sprintf("A transaction for %s has been created", stuff.Name),
		ActorID:   proposerID,
		TargetID:  tx.ID.String(),
		Type:      transactionSlug,
		Receivers: []uuid.UUID{counterpartID},
	})
	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:      fmt.Sprintf("A new transaction for %s needs handling", stuff.Name),
		ActorID:      proposerID,
		TargetID:     tx.ID.String(),
		Type:         transactionSlug,
		ForModerator: true,
	})
	ts.emailParticipant(ctx, counterpartID, tx,
		"Transaction created",
		fmt.Sprintf("A transaction for %s has been created. Check the details and deadlines.", stuff.Name))

	return tx, nil
}

// MODConfirmReceivedStuff records the seller's deposit of a pickup item:
// the moderator attaches evidence, the transaction moves PENDING to ONGOING
// and the customer gets a pickup deadline.
func (ts *TransactionService) MODConfirmReceivedStuff(ctx context.Context, modID, transactionID uuid.UUID, media string) (*models.Transaction, error) {
	if _, err := requireMod(ctx, ts.repo, modID); err != nil {
		return nil, err
	}
	tx, err := ts.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.IsPickup || (tx.Status != models.TransactionStatusPending && tx.Status != models.TransactionStatusOngoing) {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}
	hasEvidence, err := ts.repo.HasTransactionEvidence(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check evidence: %w", err)
	}
	if hasEvidence {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Deposit is already confirmed")
	}

	// The pickup window stacks on the existing deadline, the customer
	// keeps whatever deposit time was left.
	expireAt := time.Now().Add(ongoingWindow)
	if tx.ExpireAt != nil {
		expireAt = tx.ExpireAt.Add(ongoingWindow)
	}
	tx.Status = models.TransactionStatusOngoing
	tx.ExpireAt = &expireAt

	err = ts.repo.InTx(ctx, settlementTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
		return txRepo.CreateTransactionEvidence(ctx, &models.TransactionEvidence{
			ID:            uuid.New(),
			TransactionID: transactionID,
			AuthorID:      modID,
			Media:         media,
		})
	})
	if err != nil {
		log.Printf("Error confirming deposit for transaction %s: %v", transactionID, err)
		return nil, apperrors.BadRequest("INVALID_TRANSACTION", "Failed to confirm deposit")
	}

	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:   "The item has been deposited. Please pick it up within 2 days.",
		ActorID:   modID,
		TargetID:  tx.ID.String(),
		Type:      transactionSlug,
		Receivers: []uuid.UUID{tx.CustomerID, tx.StuffOwnerID},
	})
	ts.emailParticipant(ctx, tx.CustomerID, tx,
		"Item deposited",
		"The item you requested has been deposited. Please pick it up within 2 days.")
	return tx, nil
}

// MODConfirmPickup records the customer taking the item and completes the
// transaction. Both parties earn fulfillment reputation; on a market or
// auction sale without an open dispute the seller is credited the escrowed
// amount. Deposit evidence must already exist.
func (ts *TransactionService) MODConfirmPickup(ctx context.Context, modID, transactionID uuid.UUID, media string) (*models.Transaction, error) {
	if _, err := requireMod(ctx, ts.repo, modID); err != nil {
		return nil, err
	}
	tx, err := ts.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !tx.IsPickup || tx.Status.IsTerminal() || tx.Status == models.TransactionStatusPending {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}
	hasEvidence, err := ts.repo.HasTransactionEvidence(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check evidence: %w", err)
	}
	if !hasEvidence {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Deposit evidence is missing")
	}

	stuff, err := ts.repo.GetStuffByID(ctx, tx.StuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stuff: %w", err)
	}
	hadIssue, err := ts.repo.HasTransactionIssue(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check issues: %w", err)
	}

	tx.Status = models.TransactionStatusCompleted
	err = ts.repo.InTx(ctx, settlementTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.UpdateTransaction(ctx, tx); err != nil {
			return err
		}
		if err := txRepo.CreateTransactionEvidence(ctx, &models.TransactionEvidence{
			ID:            uuid.New(),
			TransactionID: transactionID,
			AuthorID:      modID,
			Media:         media,
		}); err != nil {
			return err
		}
		if err := plusReputation(ctx, txRepo, tx.CustomerID); err != nil {
			return err
		}
		if err := plusReputation(ctx, txRepo, tx.StuffOwnerID); err != nil {
			return err
		}
		if tx.Amount > 0 && !hadIssue {
			note := fmt.Sprintf("Sale of %s", stuff.Name)
			if _, err := adjustPoints(ctx, txRepo, tx.StuffOwnerID, tx.Amount, note); err != nil {
				return err
			}
		}
		// The customer always rates the deal; on a barter both sides do.
		raters := []uuid.UUID{tx.CustomerID}
		if tx.ExchangeStuffID != nil {
			raters = append(raters, tx.StuffOwnerID)
		}
		for _, authorID := range raters {
			if err := txRepo.CreateFeedback(ctx, &models.Feedback{
				ID:            uuid.New(),
				TransactionID: transactionID,
				AuthorID:      authorID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Error completing transaction %s: %v", transactionID, err)
		return nil, apperrors.BadRequest("INVALID_TRANSACTION", "Failed to complete transaction")
	}

	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:   fmt.Sprintf("The transaction for %s is complete. Please leave feedback.", stuff.Name),
		ActorID:   modID,
		TargetID:  tx.ID.String(),
		Type:      transactionSlug,
		Receivers: []uuid.UUID{tx.CustomerID, tx.StuffOwnerID},
	})
	ts.emailParticipant(ctx, tx.CustomerID, tx,
		"Transaction complete",
		fmt.Sprintf("The transaction for %s is complete. Thank you.", stuff.Name))
	ts.emailParticipant(ctx, tx.StuffOwnerID, tx,
		"Transaction complete",
		fmt.Sprintf("The transaction for %s is complete. Thank you.", stuff.Name))
	return tx, nil
}

// HandleIssue resolves a previously raised issue. Only the moderator who
// opened the issue may resolve it; the transaction resumes as ONGOING.
func (ts *TransactionService) HandleIssue(ctx context.Context, modID, issueID uuid.UUID) (*models.TransactionIssue, error) {
	if _, err := requireMod(ctx, ts.repo, modID); err != nil {
		return nil, err
	}
	issue, err := ts.repo.GetTransactionIssueByID(ctx, issueID)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("ISSUE_NOT_FOUND", "Issue not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	if issue.ModID == nil || *issue.ModID != modID {
		return nil, apperrors.New(http.StatusForbidden, "INVALID_ACTION", "Invalid action")
	}
	if issue.IsSolved {
		return issue, nil
	}

	tx, err := ts.GetByID(ctx, issue.TransactionID)
	if err != nil {
		return nil, err
	}

	issue.IsSolved = true
	issue.IssueSolved = true
	err = ts.repo.InTx(ctx, settlementTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.UpdateTransactionIssue(ctx, issue); err != nil {
			return err
		}
		if tx.Status == models.TransactionStatusWait {
			tx.Status = models.TransactionStatusOngoing
			return txRepo.UpdateTransaction(ctx, tx)
		}
		return nil
	})
	if err != nil {
		log.Printf("Error resolving issue %s: %v", issueID, err)
		return nil, apperrors.BadRequest("INVALID_TRANSACTION", "Failed to resolve issue")
	}

	if issue.IssueTagUser != nil {
		notifyBestEffort(ctx, ts.notifier, notify.Input{
			Content:   "The issue on your transaction has been resolved.",
			ActorID:   modID,
			TargetID:  tx.ID.String(),
			Type:      transactionSlug,
			Receivers: []uuid.UUID{*issue.IssueTagUser},
		})
	}
	return issue, nil
}

// UpdateMeetingDate moves the deadline of a non-pickup exchange. Only a
// participant or a moderator may move it and only into the future.
func (ts *TransactionService) UpdateMeetingDate(ctx context.Context, uid, transactionID uuid.UUID, date time.Time) (*models.Transaction, error) {
	tx, err := ts.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if uid != tx.CustomerID && uid != tx.StuffOwnerID {
		caller, err := ts.repo.GetUserByID(ctx, uid)
		if err != nil || !caller.IsMod() {
			return nil, apperrors.New(http.StatusForbidden, "INVALID_ACTION", "Invalid action")
		}
	}
	if tx.Status.IsTerminal() || tx.IsPickup {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}
	if !date.After(time.Now()) {
		return nil, apperrors.BadRequest("INVALID_MEETING_DATE", "Meeting date must be in the future")
	}

	tx.ExpireAt = &date
	if err := ts.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to update meeting date: %w", err)
	}

	other := tx.CustomerID
	if uid == tx.CustomerID {
		other = tx.StuffOwnerID
	}
	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:   fmt.Sprintf("The meeting date was moved to %s", date.Format("2006-01-02 15:04")),
		ActorID:   uid,
		TargetID:  tx.ID.String(),
		Type:      transactionSlug,
		Receivers: []uuid.UUID{other},
	})
	return tx, nil
}

// GetByID retrieves a transaction by ID
func (ts *TransactionService) GetByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := ts.repo.GetTransactionByID(ctx, id)
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.NotFound("TRANSACTION_NOT_FOUND", "Transaction not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

// GetByUserID retrieves all transactions a user participates in
func (ts *TransactionService) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	return ts.repo.GetTransactionsByUserID(ctx, userID)
}

// GetByStuffID retrieves the latest transaction on a stuff, or nil
func (ts *TransactionService) GetByStuffID(ctx context.Context, stuffID uuid.UUID) (*models.Transaction, error) {
	return ts.repo.GetTransactionByStuffID(ctx, stuffID)
}

// FilterTransactions lists transactions filtered on the pickup flag, for
// the moderator desk. A nil filter returns everything.
func (ts *TransactionService) FilterTransactions(ctx context.Context, isPickup *bool) ([]*models.Transaction, error) {
	return ts.repo.GetTransactionsByPickup(ctx, isPickup)
}

// IssuesByTransactionID lists every issue raised against a transaction.
func (ts *TransactionService) IssuesByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*models.TransactionIssue, error) {
	if _, err := ts.GetByID(ctx, transactionID); err != nil {
		return nil, err
	}
	return ts.repo.GetIssuesByTransactionID(ctx, transactionID)
}

// PickupTransactions lists the deposit-based transactions awaiting
// moderator handling.
func (ts *TransactionService) PickupTransactions(ctx context.Context) ([]*models.Transaction, error) {
	pickup := true
	return ts.repo.GetTransactionsByPickup(ctx, &pickup)
}

// SendExpiryReminders emails both parties of every unsettled transaction
// whose deadline falls within the next day. Returns the number of
// transactions reminded.
func (ts *TransactionService) SendExpiryReminders(ctx context.Context) (int, error) {
	now := time.Now()
	txs, err := ts.repo.GetTransactionsExpiringBetween(ctx, now, now.Add(24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring transactions: %w", err)
	}
	for _, tx := range txs {
		ts.emailParticipant(ctx, tx.CustomerID, tx,
			"Transaction deadline approaching",
			"Your transaction expires within a day. Please act before the deadline.")
		ts.emailParticipant(ctx, tx.StuffOwnerID, tx,
			"Transaction deadline approaching",
			"Your transaction expires within a day. Please act before the deadline.")
	}
	return len(txs), nil
}

// AutoCompleteExpired finalizes non-pickup exchanges whose meeting deadline
// has passed without a cancellation request. Returns the number completed.
func (ts *TransactionService) AutoCompleteExpired(ctx context.Context) (int64, error) {
	return ts.repo.CompleteExpiredNonPickup(ctx, time.Now())
}

// emailParticipant enqueues a transaction email for one participant,
// best-effort. A participant without a user row or email is skipped.
func (ts *TransactionService) emailParticipant(ctx context.Context, userID uuid.UUID, tx *models.Transaction, subject, content string) {
	if ts.emails == nil {
		return
	}
	user, err := ts.repo.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("Failed to load user %s for email: %v", userID, err)
		return
	}
	if user.Email == "" {
		return
	}
	enqueueEmailBestEffort(ctx, ts.emails, queues.EmailJob{
		To:        user.Email,
		Subject:   subject,
		Name:      user.FullName,
		TargetURL: fmt.Sprintf("%s/transactions/%s", ts.appURL, tx.ID),
		Content:   content,
	})
}

package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"fxchange/internal/apperrors"
	"fxchange/internal/calculation"
	"fxchange/internal/models"
	"fxchange/internal/notify"
	"fxchange/internal/repository"

	"github.com/google/uuid"
)

const settlementTxTimeout = 10 * time.Second

// UserRequestCancel cancels a live transaction at a participant's request.
// The canceling party takes the reputation penalty and the stage-dependent
// point penalty; escrowed funds return to the customer; the item(s) return
// to the listings.
func (ts *TransactionService) UserRequestCancel(ctx context.Context, uid, transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	tx, err := ts.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if uid != tx.CustomerID && uid != tx.StuffOwnerID {
		return nil, apperrors.New(http.StatusForbidden, "INVALID_ACTION", "Invalid action")
	}
	if tx.Status.IsTerminal() {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}

	stuff, err := ts.repo.GetStuffByID(ctx, tx.StuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stuff: %w", err)
	}

	err = ts.repo.InTx(ctx, settlementTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		if err := txRepo.CreateTransactionIssue(ctx, &models.TransactionIssue{
			ID:            uuid.New(),
			TransactionID: transactionID,
			IssueOwnerID:  &uid,
			Issue:         reason,
			IssueTagUser:  &uid,
			IsSolved:      true,
		}); err != nil {
			return err
		}
		return settleCancellation(ctx, txRepo, tx, stuff, uid)
	})
	if err != nil {
		log.Printf("Error canceling transaction %s: %v", transactionID, err)
		return nil, apperrors.BadRequest("INVALID_TRANSACTION", "Failed to cancel transaction")
	}

	other := tx.CustomerID
	if uid == tx.CustomerID {
		other = tx.StuffOwnerID
	}
	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:   fmt.Sprintf("The transaction for %s has been canceled by the other party", stuff.Name),
		ActorID:   uid,
		TargetID:  tx.ID.String(),
		Type:      transactionSlug,
		Receivers: []uuid.UUID{other},
	})
	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:      fmt.Sprintf("The transaction for %s has been canceled on request", stuff.Name),
		ActorID:      uid,
		TargetID:     tx.ID.String(),
		Type:         transactionSlug,
		ForModerator: true,
	})
	ts.emailParticipant(ctx, other, tx,
		"Transaction canceled",
		fmt.Sprintf("The transaction for %s has been canceled. Any escrowed points were returned.", stuff.Name))
	return tx, nil
}

// CreateIssueInput describes a moderator-raised issue, usually a party
// failing to show up for a deposit or pickup.
type CreateIssueInput struct {
	Issue        string     `json:"issue"`
	IssueTagUser *uuid.UUID `json:"issue_tag_user"`
	IssueSolved  bool       `json:"issue_solved"`
}

// MODCreateIssue raises a dispute against a live transaction. A PENDING
// transaction cancels outright against the tagged party. An ONGOING one
// either settles immediately or parks as WAIT with a one week grace window,
// depending on the listing kind and who is at fault.
func (ts *TransactionService) MODCreateIssue(ctx context.Context, modID, transactionID uuid.UUID, input CreateIssueInput) (*models.TransactionIssue, error) {
	if _, err := requireMod(ctx, ts.repo, modID); err != nil {
		return nil, err
	}
	tx, err := ts.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return nil, apperrors.BadRequest("CANNOT_REQUEST_TRANSACTION", "Cannot request transaction")
	}
	if input.IssueTagUser != nil && *input.IssueTagUser != tx.CustomerID && *input.IssueTagUser != tx.StuffOwnerID {
		return nil, apperrors.BadRequest("INVALID_ACTION", "Tagged user is not part of the transaction")
	}

	stuff, err := ts.repo.GetStuffByID(ctx, tx.StuffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stuff: %w", err)
	}

	issue := &models.TransactionIssue{
		ID:            uuid.New(),
		TransactionID: transactionID,
		ModID:         &modID,
		Issue:         input.Issue,
		IssueTagUser:  input.IssueTagUser,
		IssueSolved:   input.IssueSolved,
	}

	exchange := tx.ExchangeStuffID != nil

	err = ts.repo.InTx(ctx, settlementTxTimeout, func(ctx context.Context, txRepo *repository.Repository) error {
		switch {
		case tx.Status == models.TransactionStatusPending:
			// Nobody showed up for the deposit. Settle against the
			// tagged party right away.
			issue.IsSolved = true
			if input.IssueTagUser != nil {
				if err := settleCancellation(ctx, txRepo, tx, stuff, *input.IssueTagUser); err != nil {
					return err
				}
			} else {
				if err := reopenListings(ctx, txRepo, tx); err != nil {
					return err
				}
				if err := refundEscrow(ctx, txRepo, tx, stuff); err != nil {
					return err
				}
				tx.Status = models.TransactionStatusCanceled
				if err := txRepo.UpdateTransaction(ctx, tx); err != nil {
					return err
				}
			}

		case exchange:
			// Meeting-stage barter dispute. A solved issue settles
			// immediately at the steeper ongoing rate; an open one
			// parks the transaction for a week.
			if input.IssueSolved && input.IssueTagUser != nil {
				issue.IsSolved = true
				if err := settleCancellation(ctx, txRepo, tx, stuff, *input.IssueTagUser); err != nil {
					return err
				}
			} else {
				expireAt := time.Now().Add(issueWindow)
				tx.Status = models.TransactionStatusWait
				tx.ExpireAt = &expireAt
				if err := txRepo.UpdateTransaction(ctx, tx); err != nil {
					return err
				}
			}

		default:
			// Market or auction pickup dispute after deposit.
			if input.IssueTagUser != nil && *input.IssueTagUser == tx.StuffOwnerID {
				issue.IsSolved = true
				if err := settleCancellation(ctx, txRepo, tx, stuff, tx.StuffOwnerID); err != nil {
					return err
				}
			} else {
				// The customer failed to pick up. The seller already
				// deposited the item, so they are paid out now and
				// the customer gets a grace window.
				if tx.Amount > 0 {
					note := fmt.Sprintf("Sale of %s", stuff.Name)
					if _, err := adjustPoints(ctx, txRepo, tx.StuffOwnerID, tx.Amount, note); err != nil {
						return err
					}
				}
				expireAt := time.Now().Add(issueWindow)
				tx.Status = models.TransactionStatusWait
				tx.ExpireAt = &expireAt
				if err := txRepo.UpdateTransaction(ctx, tx); err != nil {
					return err
				}
			}
		}

		return txRepo.CreateTransactionIssue(ctx, issue)
	})
	if err != nil {
		log.Printf("Error raising issue on transaction %s: %v", transactionID, err)
		return nil, apperrors.BadRequest("INVALID_TRANSACTION", "Failed to raise issue")
	}

	notifyBestEffort(ctx, ts.notifier, notify.Input{
		Content:   fmt.Sprintf("An issue was raised on the transaction for %s", stuff.Name),
		ActorID:   modID,
		TargetID:  tx.ID.String(),
		Type:      transactionSlug,
		Receivers: []uuid.UUID{tx.CustomerID, tx.StuffOwnerID},
	})
	if input.IssueTagUser != nil {
		ts.emailParticipant(ctx, *input.IssueTagUser, tx,
			"Transaction issue raised",
			fmt.Sprintf("An issue was raised against you on the transaction for %s: %s", stuff.Name, input.Issue))
	}
	return issue, nil
}

// settleCancellation applies the full cancellation settlement against one
// party inside an open transaction scope: the stage-dependent point
// penalty, the reputation penalty, the escrow refund and the listing
// reactivation, then marks the transaction CANCELED.
//
// Market and auction penalties anchor on the escrowed price: 10% while
// PENDING, 20% once ONGOING. A canceling customer is refunded the remainder;
// a canceling seller pays the penalty out of pocket and the customer is
// refunded in full. Barter penalties anchor on the canceler's balance scaled
// by their reputation, since no price exists.
func settleCancellation(ctx context.Context, txRepo *repository.Repository, tx *models.Transaction, stuff *models.Stuff, cancelerID uuid.UUID) error {
	canceler, err := txRepo.GetUserByID(ctx, cancelerID)
	if err != nil {
		return fmt.Errorf("failed to get canceling user: %w", err)
	}

	pending := tx.Status == models.TransactionStatusPending

	if tx.ExchangeStuffID != nil {
		var penalty int64
		if pending {
			penalty = calculation.ReduceExchangePending(canceler.Reputation, canceler.Point)
		} else {
			penalty = calculation.ReduceExchangeOngoing(canceler.Reputation, canceler.Point)
		}
		if penalty > 0 {
			note := fmt.Sprintf("Cancellation penalty for %s", stuff.Name)
			if _, err := adjustPoints(ctx, txRepo, cancelerID, -penalty, note); err != nil {
				return err
			}
		}
	} else if tx.Amount > 0 {
		var penalty int64
		if pending {
			penalty = calculation.ReduceMarketPending(tx.Amount)
		} else {
			penalty = calculation.ReduceMarketOngoing(tx.Amount)
		}
		if cancelerID == tx.CustomerID {
			note := fmt.Sprintf("Refund for canceled purchase of %s", stuff.Name)
			if _, err := adjustPoints(ctx, txRepo, tx.CustomerID, tx.Amount-penalty, note); err != nil {
				return err
			}
		} else {
			note := fmt.Sprintf("Refund for canceled purchase of %s", stuff.Name)
			if _, err := adjustPoints(ctx, txRepo, tx.CustomerID, tx.Amount, note); err != nil {
				return err
			}
			note = fmt.Sprintf("Cancellation penalty for %s", stuff.Name)
			if _, err := adjustPoints(ctx, txRepo, cancelerID, -penalty, note); err != nil {
				return err
			}
		}
	}

	if err := reduceReputation(ctx, txRepo, cancelerID); err != nil {
		return err
	}
	if err := reopenListings(ctx, txRepo, tx); err != nil {
		return err
	}

	tx.Status = models.TransactionStatusCanceled
	return txRepo.UpdateTransaction(ctx, tx)
}

// refundEscrow returns the full escrowed amount to the customer without a
// penalty, used when a dispute cancels with nobody at fault.
func refundEscrow(ctx context.Context, txRepo *repository.Repository, tx *models.Transaction, stuff *models.Stuff) error {
	if tx.Amount == 0 {
		return nil
	}
	note := fmt.Sprintf("Refund for canceled purchase of %s", stuff.Name)
	_, err := adjustPoints(ctx, txRepo, tx.CustomerID, tx.Amount, note)
	return err
}

// reopenListings puts the transacted item(s) back on the market.
func reopenListings(ctx context.Context, txRepo *repository.Repository, tx *models.Transaction) error {
	if err := txRepo.UpdateStuffStatus(ctx, tx.StuffID, models.StuffStatusActive); err != nil {
		return err
	}
	if tx.ExchangeStuffID != nil {
		return txRepo.UpdateStuffStatus(ctx, *tx.ExchangeStuffID, models.StuffStatusActive)
	}
	return nil
}

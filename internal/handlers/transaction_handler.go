package handlers

import (
	"net/http"
	"time"

	"fxchange/internal/auth"
	"fxchange/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// CreateTransaction opens a transaction on a stuff
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateTransactionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.transactionService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// GetMyTransactions lists the caller's transactions
func (h *TransactionHandler) GetMyTransactions(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	txs, err := h.transactionService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    txs,
		"count":   len(txs),
	})
}

// GetTransactionByID returns one transaction
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	tx, err := h.transactionService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// GetTransactionByStuffID returns the latest transaction on a stuff
func (h *TransactionHandler) GetTransactionByStuffID(c *gin.Context) {
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stuff id"})
		return
	}

	tx, err := h.transactionService.GetByStuffID(c.Request.Context(), stuffID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// FilterTransactions lists transactions for the moderator desk
func (h *TransactionHandler) FilterTransactions(c *gin.Context) {
	var isPickup *bool
	switch c.Query("is_pickup") {
	case "true":
		t := true
		isPickup = &t
	case "false":
		f := false
		isPickup = &f
	}

	txs, err := h.transactionService.FilterTransactions(c.Request.Context(), isPickup)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    txs,
		"count":   len(txs),
	})
}

// GetPickupTransactions lists deposit-based transactions for the moderator
// desk
func (h *TransactionHandler) GetPickupTransactions(c *gin.Context) {
	txs, err := h.transactionService.PickupTransactions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    txs,
		"count":   len(txs),
	})
}

// ConfirmDeposit records the seller's item deposit (moderator only)
func (h *TransactionHandler) ConfirmDeposit(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var req struct {
		Media string `json:"media" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.transactionService.MODConfirmReceivedStuff(c.Request.Context(), userID, id, req.Media)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// ConfirmPickup records the customer's pickup and completes the transaction
// (moderator only)
func (h *TransactionHandler) ConfirmPickup(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var req struct {
		Media string `json:"media" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.transactionService.MODConfirmPickup(c.Request.Context(), userID, id, req.Media)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// CancelTransaction cancels at a participant's request
func (h *TransactionHandler) CancelTransaction(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.transactionService.UserRequestCancel(c.Request.Context(), userID, id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

// CreateIssue raises a dispute against a transaction (moderator only)
func (h *TransactionHandler) CreateIssue(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var req services.CreateIssueInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	issue, err := h.transactionService.MODCreateIssue(c.Request.Context(), userID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issue)
}

// GetTransactionIssues lists the issues raised against a transaction
func (h *TransactionHandler) GetTransactionIssues(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	issues, err := h.transactionService.IssuesByTransactionID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    issues,
		"count":   len(issues),
	})
}

// ResolveIssue marks an issue handled and resumes the transaction
// (moderator only)
func (h *TransactionHandler) ResolveIssue(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	issueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid issue id"})
		return
	}

	issue, err := h.transactionService.HandleIssue(c.Request.Context(), userID, issueID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, issue)
}

// UpdateMeetingDate moves the deadline of a non-pickup exchange
func (h *TransactionHandler) UpdateMeetingDate(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	var req struct {
		Date time.Time `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.transactionService.UpdateMeetingDate(c.Request.Context(), userID, id, req.Date)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tx)
}

package handlers

import (
	"net/http"

	"fxchange/internal/auth"
	"fxchange/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AuctionHandler struct {
	auctionService *services.AuctionService
}

func NewAuctionHandler(auctionService *services.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

// CreateAuction lists a new auction lot
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req services.CreateAuctionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	auction, err := h.auctionService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, auction)
}

// ApproveAuction approves a pending auction (moderator only)
func (h *AuctionHandler) ApproveAuction(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	auction, err := h.auctionService.Approve(c.Request.Context(), userID, stuffID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, auction)
}

// StartAuction opens an approved auction for bidding
func (h *AuctionHandler) StartAuction(c *gin.Context) {
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	auction, err := h.auctionService.Start(c.Request.Context(), stuffID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, auction)
}

// PlaceBid records a bid on a started auction
func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	var req struct {
		BiddingPrice int64 `json:"bidding_price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bid, err := h.auctionService.PlaceBid(c.Request.Context(), userID, stuffID, req.BiddingPrice)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, bid)
}

// FinishAuction settles a started auction ahead of its deadline
func (h *AuctionHandler) FinishAuction(c *gin.Context) {
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	auction, err := h.auctionService.Finish(c.Request.Context(), stuffID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, auction)
}

// GetAuctions lists auctions with optional approval filtering
func (h *AuctionHandler) GetAuctions(c *gin.Context) {
	var isApproved *bool
	switch c.Query("is_approved") {
	case "true":
		t := true
		isApproved = &t
	case "false":
		f := false
		isApproved = &f
	}

	auctions, err := h.auctionService.FindAll(c.Request.Context(), isApproved)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    auctions,
		"count":   len(auctions),
	})
}

// GetAvailableAuctions lists approved auctions open for viewing or bidding
func (h *AuctionHandler) GetAvailableAuctions(c *gin.Context) {
	auctions, err := h.auctionService.FindAllAvailable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    auctions,
		"count":   len(auctions),
	})
}

// GetAuctionByID returns one auction
func (h *AuctionHandler) GetAuctionByID(c *gin.Context) {
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	auction, err := h.auctionService.FindByStuffID(c.Request.Context(), stuffID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, auction)
}

// GetBiddingHistory returns the bid log of an auction
func (h *AuctionHandler) GetBiddingHistory(c *gin.Context) {
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	bids, err := h.auctionService.BiddingHistory(c.Request.Context(), stuffID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bids,
		"count":   len(bids),
	})
}

// GetParticipants returns the advisory viewer count of an auction room
func (h *AuctionHandler) GetParticipants(c *gin.Context) {
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	count := h.auctionService.Participants(c.Request.Context(), stuffID)
	respondOK(c, gin.H{"participants": count})
}

// UpdateParticipant tracks auction room joins and leaves
func (h *AuctionHandler) UpdateParticipant(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	stuffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid auction id"})
		return
	}

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count := h.auctionService.UpdateParticipant(c.Request.Context(), userID, stuffID, req.Action)
	respondOK(c, gin.H{"participants": count})
}

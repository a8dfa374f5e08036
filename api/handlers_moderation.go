package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gavel/auction"
)

// requireSellerOrAdmin 確認呼叫者是該刊登商品的賣家或管理員
func (impl *ServerImpl) requireSellerOrAdmin(c *gin.Context, listingID uuid.UUID) bool {
	if callerToken(c).Role == RoleAdmin {
		return true
	}
	listing, err := impl.service.GetListing(c.Request.Context(), listingID)
	if err != nil {
		abortWithError(c, err)
		return false
	}
	if listing.SellerID != callerID(c) {
		abortWithError(c, auction.NewError(auction.CodeForbidden, "only the listing seller or an admin can perform this action"))
		return false
	}
	return true
}

// BlockBidder 將出價者加入刊登商品的封鎖名單
// (POST /auction/listings/{listingID}/blacklist)
func (impl *ServerImpl) BlockBidder(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	var request BlockBidderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: err.Error(),
		})
		return
	}
	if !impl.requireSellerOrAdmin(c, listingID) {
		return
	}
	entry, err := impl.service.BlockBidder(c.Request.Context(), listingID, request.BidderID, callerID(c), time.Now())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBlacklistEntryResponse(entry))
}

// ListBlacklist 查詢刊登商品的封鎖名單
// (GET /auction/listings/{listingID}/blacklist)
func (impl *ServerImpl) ListBlacklist(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	if !impl.requireSellerOrAdmin(c, listingID) {
		return
	}
	page := parsePage(c)
	entries, total, err := impl.service.ListBlacklist(c.Request.Context(), listingID, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]BlacklistEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, toBlacklistEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, newPageResponse(items, page, total))
}

// VerifyBidRequest 由賣家核可未受評價出價者的出價申請
// (POST /auction/listings/{listingID}/bid-requests/{bidderID}/verify)
func (impl *ServerImpl) VerifyBidRequest(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	bidderID, err := uuid.Parse(c.Param("bidderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    string(auction.CodeValidationFailed),
			Message: "invalid bidder id",
		})
		return
	}
	req, err := impl.service.VerifyBidRequest(c.Request.Context(), listingID, bidderID, callerID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBidRequestResponse(req))
}

// ListBidRequests 查詢刊登商品的出價申請
// (GET /auction/listings/{listingID}/bid-requests)
func (impl *ServerImpl) ListBidRequests(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	if !impl.requireSellerOrAdmin(c, listingID) {
		return
	}
	page := parsePage(c)
	requests, total, err := impl.service.ListBidRequests(c.Request.Context(), listingID, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	items := make([]BidRequestResponse, 0, len(requests))
	for i := range requests {
		items = append(items, toBidRequestResponse(&requests[i]))
	}
	c.JSON(http.StatusOK, newPageResponse(items, page, total))
}

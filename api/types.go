package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gavel/auction"
	"gavel/models"
)

type CreateListingRequest struct {
	Name              string           `json:"name" binding:"required"`
	ThumbnailURL      string           `json:"thumbnailUrl" binding:"required"`
	Description       string           `json:"description"`
	StartPrice        decimal.Decimal  `json:"startPrice"`
	BuyNowPrice       *decimal.Decimal `json:"buyNowPrice"`
	MinimumBidStep    decimal.Decimal  `json:"minimumBidStep"`
	AutoExtendEnabled bool             `json:"autoExtendEnabled"`
	EndAt             time.Time        `json:"endAt" binding:"required"`
}

type PlaceBidRequest struct {
	MaxPrice decimal.Decimal `json:"maxPrice" binding:"required"`
}

type BlockBidderRequest struct {
	BidderID uuid.UUID `json:"bidderId" binding:"required"`
}

// ListingResponse 不包含任何出價者的代理出價上限
type ListingResponse struct {
	ID                uuid.UUID        `json:"id"`
	SellerID          uuid.UUID        `json:"sellerId"`
	Name              string           `json:"name"`
	ThumbnailURL      string           `json:"thumbnailUrl"`
	Description       string           `json:"description"`
	StartPrice        decimal.Decimal  `json:"startPrice"`
	CurrentPrice      decimal.Decimal  `json:"currentPrice"`
	BuyNowPrice       *decimal.Decimal `json:"buyNowPrice"`
	MinimumBidStep    decimal.Decimal  `json:"minimumBidStep"`
	TopBidderID       *uuid.UUID       `json:"topBidderId"`
	BidCount          int              `json:"bidCount"`
	AutoExtendEnabled bool             `json:"autoExtendEnabled"`
	EndAt             time.Time        `json:"endAt"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// ProxyBidResponse 的 MaxPrice 只在查詢者是出價者本人或管理員時填入
type ProxyBidResponse struct {
	BidderID  uuid.UUID        `json:"bidderId"`
	MaxPrice  *decimal.Decimal `json:"maxPrice,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type BidHistoryResponse struct {
	BidderName string          `json:"bidderName"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type BidRequestResponse struct {
	ListingID uuid.UUID `json:"listingId"`
	BidderID  uuid.UUID `json:"bidderId"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

type BlacklistEntryResponse struct {
	ListingID uuid.UUID `json:"listingId"`
	BidderID  uuid.UUID `json:"bidderId"`
	CreatedBy uuid.UUID `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type CanBidResponse struct {
	Allowed bool   `json:"allowed"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type PageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

func newPageResponse[T any](items []T, page auction.Page, total int64) PageResponse[T] {
	size := page.Size
	if size <= 0 {
		size = len(items)
	}
	var totalPages int64
	if size > 0 {
		totalPages = (total + int64(size) - 1) / int64(size)
	}
	return PageResponse[T]{
		Items:      items,
		Page:       page.Page,
		Size:       size,
		TotalItems: total,
		TotalPages: totalPages,
	}
}

func toListingResponse(listing *models.Listing) ListingResponse {
	return ListingResponse{
		ID:                listing.ID,
		SellerID:          listing.SellerID,
		Name:              listing.Name,
		ThumbnailURL:      listing.ThumbnailURL,
		Description:       listing.Description,
		StartPrice:        listing.StartPrice,
		CurrentPrice:      listing.CurrentPrice,
		BuyNowPrice:       listing.BuyNowPrice,
		MinimumBidStep:    listing.MinimumBidStep,
		TopBidderID:       listing.TopBidderID,
		BidCount:          listing.BidCount,
		AutoExtendEnabled: listing.AutoExtendEnabled,
		EndAt:             listing.EndAt,
		CreatedAt:         listing.CreatedAt,
	}
}

func toBidRequestResponse(req *models.BidRequest) BidRequestResponse {
	return BidRequestResponse{
		ListingID: req.ListingID,
		BidderID:  req.BidderID,
		Verified:  req.Verified,
		CreatedAt: req.CreatedAt,
	}
}

func toBlacklistEntryResponse(entry *models.BlacklistEntry) BlacklistEntryResponse {
	return BlacklistEntryResponse{
		ListingID: entry.ListingID,
		BidderID:  entry.BidderID,
		CreatedBy: entry.CreatedBy,
		CreatedAt: entry.CreatedAt,
	}
}

type pageQuery struct {
	Page int `form:"page"`
	Size int `form:"size"`
}

func parsePage(c *gin.Context) auction.Page {
	page := auction.Page{Page: 1, Size: 20}
	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return page
	}
	if query.Page > 0 {
		page.Page = query.Page
	}
	if query.Size > 0 {
		page.Size = query.Size
	}
	return page
}

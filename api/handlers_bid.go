package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"gavel/adapters/userdir"
	"gavel/auction"
)

// PlaceBid 對刊登商品出價，同一個商品的出價透過分散式鎖序列化處理
// (POST /auction/listings/{listingID}/bids)
func (impl *ServerImpl) PlaceBid(c *gin.Context) {
	const op = "PlaceBid"
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	var request PlaceBidRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: err.Error(),
		})
		return
	}
	// 取得該商品的分散式鎖，避免多個實例同時結算出價
	lock := impl.locker.For(listingID)
	lockCtx, err := lock.Lock(c.Request.Context())
	if err != nil {
		slog.Warn("Fail to acquire listing lock", slog.String("op", op), slog.String("listingID", listingID.String()), slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Code:    "DEPENDENCY_UNAVAILABLE",
			Message: "listing is busy, retry later",
		})
		return
	}
	defer lock.Unlock()

	bid, err := impl.service.PlaceProxyBid(lockCtx, listingID, callerID(c), request.MaxPrice, time.Now())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ProxyBidResponse{
		BidderID:  bid.BidderID,
		MaxPrice:  lo.ToPtr(bid.MaxPrice),
		CreatedAt: bid.CreatedAt,
		UpdatedAt: bid.UpdatedAt,
	})
}

// CheckCanBid 預先檢查呼叫者是否具備出價資格，不會改變商品狀態
// (GET /auction/listings/{listingID}/can-bid)
func (impl *ServerImpl) CheckCanBid(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	err := impl.service.CanBid(c.Request.Context(), listingID, callerID(c), time.Now())
	if err == nil {
		c.JSON(http.StatusOK, CanBidResponse{Allowed: true})
		return
	}
	var coreErr *auction.Error
	if errors.As(err, &coreErr) && coreErr.Code != auction.CodeIntegrityFault {
		c.JSON(http.StatusOK, CanBidResponse{
			Allowed: false,
			Code:    string(coreErr.Code),
			Message: coreErr.Message,
		})
		return
	}
	abortWithError(c, err)
}

// ListBidHistory 查詢刊登商品的價格變動紀錄，出價者名稱經過遮罩處理
// (GET /auction/listings/{listingID}/bid-history)
func (impl *ServerImpl) ListBidHistory(c *gin.Context) {
	const op = "ListBidHistory"
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	page := parsePage(c)
	records, total, err := impl.service.ListBidHistory(c.Request.Context(), listingID, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	// 同一頁的出價者名稱只查詢一次
	names := make(map[uuid.UUID]string)
	items := make([]BidHistoryResponse, 0, len(records))
	for _, record := range records {
		name, found := names[record.BidderID]
		if !found {
			profile, err := impl.users.Profile(c.Request.Context(), record.BidderID)
			if err != nil || profile == nil {
				slog.Warn("Fail to resolve bidder name", slog.String("op", op), slog.String("bidderID", record.BidderID.String()), slog.Any("error", err))
				name = "***"
			} else {
				name = userdir.MaskFullname(profile.DisplayName)
			}
			names[record.BidderID] = name
		}
		items = append(items, BidHistoryResponse{
			BidderName: name,
			Price:      record.Price,
			CreatedAt:  record.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, newPageResponse(items, page, total))
}

// ListProxyBids 查詢刊登商品的代理出價
// MaxPrice 只會回傳給出價者本人或管理員
// (GET /auction/listings/{listingID}/proxy-bids)
func (impl *ServerImpl) ListProxyBids(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	page := parsePage(c)
	bids, total, err := impl.service.ListProxyBids(c.Request.Context(), listingID, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	caller := callerID(c)
	isAdmin := callerToken(c).Role == RoleAdmin
	items := make([]ProxyBidResponse, 0, len(bids))
	for _, bid := range bids {
		item := ProxyBidResponse{
			BidderID:  bid.BidderID,
			CreatedAt: bid.CreatedAt,
			UpdatedAt: bid.UpdatedAt,
		}
		if isAdmin || bid.BidderID == caller {
			item.MaxPrice = lo.ToPtr(bid.MaxPrice)
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, newPageResponse(items, page, total))
}

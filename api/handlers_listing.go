package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gavel/models"
)

// CreateListing 建立刊登商品
// (POST /auction/listings)
func (impl *ServerImpl) CreateListing(c *gin.Context) {
	var request CreateListingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: err.Error(),
		})
		return
	}
	listing := models.Listing{
		SellerID:     callerID(c),
		Name:         request.Name,
		ThumbnailURL: request.ThumbnailURL,
		// 描述允許使用者提供的HTML，儲存前先過濾腳本
		Description:       impl.htmlChecker.Sanitize(request.Description),
		StartPrice:        request.StartPrice,
		BuyNowPrice:       request.BuyNowPrice,
		MinimumBidStep:    request.MinimumBidStep,
		AutoExtendEnabled: request.AutoExtendEnabled,
		EndAt:             request.EndAt,
	}
	if err := impl.service.CreateListing(c.Request.Context(), &listing); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toListingResponse(&listing))
}

// GetListing 查詢刊登商品，回應絕不包含任何人的代理出價上限
// (GET /auction/listings/{listingID})
func (impl *ServerImpl) GetListing(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	listing, err := impl.service.GetListing(c.Request.Context(), listingID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(listing))
}

// StreamListingEvents 追蹤刊登商品的即時價格變動
// (GET /auction/listings/{listingID}/events)
func (impl *ServerImpl) StreamListingEvents(c *gin.Context) {
	listingID, ok := listingIDParam(c)
	if !ok {
		return
	}
	// 檢查刊登商品是否存在
	listing, err := impl.service.GetListing(c.Request.Context(), listingID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	// 檢查拍賣是否已經結束
	if time.Now().After(listing.EndAt) {
		c.JSON(http.StatusGone, errorResponse{
			Code:    "AUCTION_ENDED",
			Message: "auction has ended",
		})
		return
	}
	// SSE請求合法，開始初始化串流
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	ch, err := impl.sseManager.Subscribe(listingID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	for {
		select {
		case <-w.CloseNotify():
			impl.sseManager.Unsubscribe(listingID, ch)
			return
		case event := <-ch:
			c.SSEvent("bid", event)
			w.Flush()
		// 30秒沒有事件就發送一個空行，確保瀏覽器和Cloudflare不會斷開連線
		case <-time.After(30 * time.Second):
			w.WriteString("\n\n")
			w.Flush()
		}
	}
}

package auction

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gavel/models"
)

// pricePoint 代表結算後要寫入 BidHistory 的一筆價格紀錄
type pricePoint struct {
	BidderID uuid.UUID
	Price    decimal.Decimal
}

// resolution 是一次出價結算的結果，由呼叫端原子性地寫回 Listing
type resolution struct {
	CurrentPrice decimal.Decimal
	TopBidderID  uuid.UUID
	CountDelta   int
	History      []pricePoint
	BuyNow       bool
}

// validateBid 檢查出價金額與拍賣狀態，失敗時不得有任何狀態變動
//   - 拍賣已結束: Conflict
//   - 第一次出價低於起標價: ValidationFailed
//   - 後續出價低於目前價格加最小加價幅度: ValidationFailed
//   - BidCount為負值: IntegrityFault，代表資料已毀損
func validateBid(listing *models.Listing, maxPrice decimal.Decimal, now time.Time) error {
	if now.After(listing.EndAt) {
		return NewError(CodeConflict, "auction has ended")
	}
	switch {
	case listing.BidCount == 0:
		if maxPrice.LessThan(listing.StartPrice) {
			return NewError(CodeValidationFailed, "max price must be at least equal to start price %s", listing.StartPrice)
		}
	case listing.BidCount > 0:
		minRequired := listing.CurrentPrice.Add(listing.MinimumBidStep)
		if maxPrice.LessThan(minRequired) {
			return NewError(CodeValidationFailed, "max price must be at least current price + bid step (%s)", minRequired)
		}
	default:
		return NewError(CodeIntegrityFault, "listing %s has negative bid count %d", listing.ID, listing.BidCount)
	}
	return nil
}

// triggersBuyNow 判斷出價是否達到直購價
func triggersBuyNow(listing *models.Listing, maxPrice decimal.Decimal) bool {
	return listing.BuyNowPrice != nil && maxPrice.GreaterThanOrEqual(*listing.BuyNowPrice)
}

// resolveBuyNow 處理直購: 價格固定為直購價，拍賣立即結束，只寫一筆歷史紀錄
func resolveBuyNow(listing *models.Listing, bidderID uuid.UUID) resolution {
	return resolution{
		CurrentPrice: *listing.BuyNowPrice,
		TopBidderID:  bidderID,
		CountDelta:   1,
		History:      []pricePoint{{BidderID: bidderID, Price: *listing.BuyNowPrice}},
		BuyNow:       true,
	}
}

// resolveProxyBid 是代理出價的核心結算
// incumbentCeiling 是現任最高出價者的代理上限，沒有最高出價者時為nil
//
// 四種情況:
//   - 沒有最高出價者: 新出價者以自己的上限直接成為最高出價者
//   - 新上限低於現任上限: 挑戰失敗，但可見價格被推升到挑戰者的上限，
//     寫兩筆歷史紀錄(挑戰者一筆、現任者在同價位重新確認一筆)
//   - 新上限高於現任上限: 挑戰者成為最高出價者，價格只升到
//     min(挑戰者上限, 現任上限+最小加價幅度)，保護挑戰者的真實上限
//   - 兩者相等: 先出價者優先，價格升到該上限，挑戰者留下一筆歷史紀錄
func resolveProxyBid(listing *models.Listing, incumbentCeiling *decimal.Decimal, bidderID uuid.UUID, maxPrice decimal.Decimal) (resolution, error) {
	if listing.TopBidderID == nil {
		return resolution{
			CurrentPrice: maxPrice,
			TopBidderID:  bidderID,
			CountDelta:   1,
			History:      []pricePoint{{BidderID: bidderID, Price: maxPrice}},
		}, nil
	}

	if incumbentCeiling == nil {
		return resolution{}, NewError(CodeIntegrityFault, "proxy bid for top bidder %s not found on listing %s", listing.TopBidderID, listing.ID)
	}

	incumbent := *listing.TopBidderID
	ceiling := *incumbentCeiling

	switch {
	case maxPrice.LessThan(ceiling):
		return resolution{
			CurrentPrice: maxPrice,
			TopBidderID:  incumbent,
			CountDelta:   2,
			History: []pricePoint{
				{BidderID: bidderID, Price: maxPrice},
				{BidderID: incumbent, Price: maxPrice},
			},
		}, nil
	case maxPrice.GreaterThan(ceiling):
		raised := ceiling.Add(listing.MinimumBidStep)
		newPrice := decimal.Min(maxPrice, raised)
		return resolution{
			CurrentPrice: newPrice,
			TopBidderID:  bidderID,
			CountDelta:   1,
			History:      []pricePoint{{BidderID: bidderID, Price: newPrice}},
		}, nil
	default:
		// 平手時現任者保有優先權
		return resolution{
			CurrentPrice: ceiling,
			TopBidderID:  incumbent,
			CountDelta:   1,
			History:      []pricePoint{{BidderID: bidderID, Price: ceiling}},
		}, nil
	}
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// BidRequest 代表未受評價的出價者向賣家申請出價資格的紀錄
// Verified 只會從 false 轉為 true 一次，且只能由該刊登商品的賣家執行
type BidRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bid_requests_listing_bidder;<-:create"`
	BidderID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bid_requests_listing_bidder;<-:create"`
	SellerID  uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	Verified  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"type:timestamp with time zone;not null;<-:create"`
}

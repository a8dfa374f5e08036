package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProxyBid 代表出價者在某個刊登商品上的代理出價上限
// 每個 (ListingID, BidderID) 只會有一筆，重複出價時覆寫 MaxPrice
// MaxPrice 是出價者的私人上限，不可洩漏給其他出價者
type ProxyBid struct {
	gorm.Model

	ID        uuid.UUID       `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	ListingID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_proxy_bids_listing_bidder;<-:create"`
	BidderID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_proxy_bids_listing_bidder;<-:create"`
	MaxPrice  decimal.Decimal `gorm:"type:numeric(15,5);not null"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistEntry 代表某個出價者在特定刊登商品上的封鎖紀錄
// 每個 (ListingID, BidderID) 只會有一筆，重複封鎖視為衝突錯誤
type BlacklistEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	ListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blacklist_listing_bidder;<-:create"`
	BidderID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blacklist_listing_bidder;<-:create"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	CreatedAt time.Time `gorm:"type:timestamp with time zone;not null;<-:create"`
}

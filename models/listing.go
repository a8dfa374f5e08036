package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Listing 代表拍賣系統中的一個刊登商品
// 包含起標價、目前價格、直購價、最高出價者與結標時間等資訊
// CurrentPrice 在建立時即設為 StartPrice，之後只能由出價結算流程更新
type Listing struct {
	gorm.Model

	ID                uuid.UUID        `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	SellerID          uuid.UUID        `gorm:"type:uuid;not null;<-:create"`
	Name              string           `gorm:"type:varchar(255);not null"`
	ThumbnailURL      string           `gorm:"type:text;not null"`
	Description       string           `gorm:"type:text;not null"`
	StartPrice        decimal.Decimal  `gorm:"type:numeric(15,5);not null;<-:create"`
	CurrentPrice      decimal.Decimal  `gorm:"type:numeric(15,5);not null"`
	BuyNowPrice       *decimal.Decimal `gorm:"type:numeric(15,5)"`
	MinimumBidStep    decimal.Decimal  `gorm:"type:numeric(15,5);not null;<-:create"`
	TopBidderID       *uuid.UUID       `gorm:"type:uuid"`
	BidCount          int              `gorm:"type:integer;not null;default:0"`
	AutoExtendEnabled bool             `gorm:"not null;default:false"`
	EndAt             time.Time        `gorm:"type:timestamp with time zone;not null"`

	// 外鍵關聯
	ProxyBids  []ProxyBid   `gorm:"foreignKey:ListingID"`
	BidRecords []BidHistory `gorm:"foreignKey:ListingID"`
}

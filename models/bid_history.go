package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidHistory 代表刊登商品的價格變動紀錄
// 只新增不修改，作為拍賣過程的永久稽核軌跡
type BidHistory struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	ListingID uuid.UUID       `gorm:"type:uuid;not null;index;<-:create"`
	BidderID  uuid.UUID       `gorm:"type:uuid;not null;<-:create"`
	Price     decimal.Decimal `gorm:"type:numeric(15,5);not null;<-:create"`
	CreatedAt time.Time       `gorm:"type:timestamp with time zone;not null;<-:create"`
}

package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image 代表使用者上傳的刊登商品圖片紀錄
// 用於計算上傳頻率限制
type Image struct {
	gorm.Model

	ID         uuid.UUID `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	UploaderID uuid.UUID `gorm:"type:uuid;not null;<-:create"`
	URL        string    `gorm:"type:text;not null;<-:create"`
}

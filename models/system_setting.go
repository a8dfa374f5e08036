package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SystemSetting 代表平台層級的設定項目
// Value 以 jsonb 儲存，由讀取端解析為型別化的設定結構
type SystemSetting struct {
	gorm.Model

	ID    uuid.UUID `gorm:"type:uuid;default:public.uuid_generate_v7();primaryKey;<-:false"`
	Key   string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	Value []byte    `gorm:"type:jsonb;not null"`
}

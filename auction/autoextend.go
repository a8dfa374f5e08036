package auction

import (
	"encoding/json"
	"fmt"
	"time"

	"gavel/models"
)

// 系統設定鍵值
const (
	// SettingAutoExtend 自動延長設定，value 形如
	// {"format":"minute","timeExtend":5,"timeLeftToExtend":10}
	SettingAutoExtend = "autoExtendEnable"
	// SettingMinimumAssessment 最低評價門檻，value 形如 {"value":8}
	SettingMinimumAssessment = "minimumAssessment"
)

// ExtendUnit 自動延長的時間單位
type ExtendUnit string

const (
	UnitMinute ExtendUnit = "minute"
	UnitHour   ExtendUnit = "hour"
	UnitDay    ExtendUnit = "day"
)

// AutoExtendConfig 是型別化後的自動延長設定
// ExtendBy 為每次延長的時間，TriggerWindow 為觸發延長的剩餘時間窗
type AutoExtendConfig struct {
	Unit          ExtendUnit
	ExtendBy      time.Duration
	TriggerWindow time.Duration
}

type rawAutoExtendSetting struct {
	Format           string `json:"format"`
	TimeExtend       int    `json:"timeExtend"`
	TimeLeftToExtend int    `json:"timeLeftToExtend"`
}

func unitDuration(unit ExtendUnit) (time.Duration, bool) {
	switch unit {
	case UnitMinute:
		return time.Minute, true
	case UnitHour:
		return time.Hour, true
	case UnitDay:
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

// ParseAutoExtendConfig 將系統設定的 jsonb value 解析為型別化設定
// 未知的單位或缺少欄位視為設定無效，由呼叫端決定是否 fail open
func ParseAutoExtendConfig(raw []byte) (*AutoExtendConfig, error) {
	var setting rawAutoExtendSetting
	if err := json.Unmarshal(raw, &setting); err != nil {
		return nil, fmt.Errorf("invalid auto extend setting: %w", err)
	}
	base, ok := unitDuration(ExtendUnit(setting.Format))
	if !ok {
		return nil, fmt.Errorf("invalid auto extend unit: %q", setting.Format)
	}
	if setting.TimeExtend <= 0 || setting.TimeLeftToExtend <= 0 {
		return nil, fmt.Errorf("auto extend amounts must be positive, got extend=%d window=%d", setting.TimeExtend, setting.TimeLeftToExtend)
	}
	return &AutoExtendConfig{
		Unit:          ExtendUnit(setting.Format),
		ExtendBy:      time.Duration(setting.TimeExtend) * base,
		TriggerWindow: time.Duration(setting.TimeLeftToExtend) * base,
	}, nil
}

// applyAutoExtend 在剩餘時間落入觸發窗時延後結標時間
// 回傳是否有延長，呼叫端決定是否需要寫回
// 每次符合條件的出價都會再延長一次，形成 soft close 防狙擊機制
func applyAutoExtend(listing *models.Listing, cfg *AutoExtendConfig, now time.Time) bool {
	if cfg == nil || !listing.AutoExtendEnabled {
		return false
	}
	remaining := listing.EndAt.Sub(now)
	if remaining > cfg.TriggerWindow {
		return false
	}
	listing.EndAt = listing.EndAt.Add(cfg.ExtendBy)
	return true
}

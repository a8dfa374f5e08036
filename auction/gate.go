package auction

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

// Profile 是使用者目錄回傳的出價者基本資料
// Assessment 為 nil 代表該使用者尚未受評
type Profile struct {
	ID          uuid.UUID
	DisplayName string
	AvatarURL   string
	Assessment  *float64
}

// UserDirectory 是外部使用者目錄服務的介面
// 查無使用者時回傳 (nil, nil)，連線失敗時回傳錯誤
type UserDirectory interface {
	Profile(ctx context.Context, id uuid.UUID) (*Profile, error)
}

// checkEligibility 判斷出價者是否可以在指定商品上出價
// 檢查順序:
//  1. 賣家不能對自己的商品出價
//  2. 未受評的出價者走賣家驗證流程，必要時建立 BidRequest 後拒絕
//     (建立申請紀錄是唯一允許在拒絕時保留的副作用)
//  3. 已受評但低於最低門檻者拒絕
//  4. 被封鎖者拒絕
//
// 通過時不得有任何副作用
func (s *Service) checkEligibility(ctx context.Context, listing *models.Listing, bidderID uuid.UUID, now time.Time) error {
	if bidderID == listing.SellerID {
		return NewError(CodeForbidden, "seller %s cannot bid on their own listing %s", bidderID, listing.ID)
	}

	profile, err := s.users.Profile(ctx, bidderID)
	if err != nil {
		return WrapError(CodeDependencyUnavailable, err, "user directory is unavailable")
	}
	if profile == nil {
		return NewError(CodeNotFound, "bidder %s not found", bidderID)
	}

	if profile.Assessment == nil {
		req, err := s.store.GetBidRequest(ctx, listing.ID, bidderID)
		if err != nil {
			return err
		}
		switch {
		case req != nil && req.Verified:
			// 賣家已核可，略過後續評價檢查
		case req != nil:
			return NewError(CodeForbidden, "bid request is pending verification by seller")
		default:
			created := &models.BidRequest{
				ListingID: listing.ID,
				BidderID:  bidderID,
				SellerID:  listing.SellerID,
				Verified:  false,
				CreatedAt: now,
			}
			if err := s.store.CreateBidRequest(ctx, created); err != nil && !IsCode(err, CodeConflict) {
				return err
			}
			return NewError(CodeForbidden, "bidder has not been assessed, a bid request has been sent to the seller for verification")
		}
	} else if *profile.Assessment < s.minimumAssessment(ctx) {
		return NewError(CodeForbidden, "bidder assessment %.2f is below the minimum %.2f", *profile.Assessment, s.minimumAssessment(ctx))
	}

	blocked, err := s.store.IsBlacklisted(ctx, listing.ID, bidderID)
	if err != nil {
		return err
	}
	if blocked {
		return NewError(CodeForbidden, "bidder %s is blacklisted for listing %s", bidderID, listing.ID)
	}
	return nil
}

type minimumAssessmentSetting struct {
	Value float64 `json:"value"`
}

// minimumAssessment 取得最低評價門檻，系統設定優先，讀不到時退回啟動參數的預設值
func (s *Service) minimumAssessment(ctx context.Context) float64 {
	raw, err := s.store.GetSetting(ctx, SettingMinimumAssessment)
	if err != nil {
		s.logger.Warn("Fail to read minimum assessment setting, fallback to default", slog.Any("error", err))
		return s.cfg.DefaultMinimumAssessment
	}
	if raw == nil {
		return s.cfg.DefaultMinimumAssessment
	}
	var setting minimumAssessmentSetting
	if err := json.Unmarshal(raw, &setting); err != nil {
		s.logger.Warn("Invalid minimum assessment setting, fallback to default", slog.Any("error", err))
		return s.cfg.DefaultMinimumAssessment
	}
	return setting.Value
}

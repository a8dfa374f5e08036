package auction

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"gavel/models"
)

// BidEvent 是一次出價結算後對外發布的價格變動事件
type BidEvent struct {
	ListingID uuid.UUID       `json:"listingId"`
	BidderID  uuid.UUID       `json:"bidderId"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

// BidEventPublisher 將結算後的價格變動事件推送給下游(例如SSE串流)
type BidEventPublisher interface {
	Publish(event BidEvent) error
}

// Config 是核心模組的靜態設定
type Config struct {
	// DefaultMinimumAssessment 在系統設定缺失時使用的最低評價門檻
	DefaultMinimumAssessment float64
}

// Service 是代理出價拍賣的核心服務
// Listing 的狀態只能經由這裡的結算與封鎖重算流程變動
type Service struct {
	store  Store
	users  UserDirectory
	events BidEventPublisher
	logger *slog.Logger
	cfg    Config
}

type ServiceOption func(*Service)

// WithLogger 設置日誌記錄器
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEventPublisher 設置出價事件的發布者
func WithEventPublisher(publisher BidEventPublisher) ServiceOption {
	return func(s *Service) {
		s.events = publisher
	}
}

func NewService(store Store, users UserDirectory, cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		users:  users,
		logger: slog.Default(),
		cfg:    cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("caller", "AuctionService"))
	return s
}

// CreateListing 建立刊登商品，CurrentPrice 一律設為 StartPrice
func (s *Service) CreateListing(ctx context.Context, listing *models.Listing) error {
	if !listing.StartPrice.IsPositive() {
		return NewError(CodeValidationFailed, "start price must be positive")
	}
	if !listing.MinimumBidStep.IsPositive() {
		return NewError(CodeValidationFailed, "minimum bid step must be positive")
	}
	if listing.BuyNowPrice != nil && listing.BuyNowPrice.LessThan(listing.StartPrice) {
		return NewError(CodeValidationFailed, "buy now price must be greater than start price")
	}
	if !listing.EndAt.After(time.Now()) {
		return NewError(CodeValidationFailed, "end time must be in the future")
	}
	listing.CurrentPrice = listing.StartPrice
	listing.TopBidderID = nil
	listing.BidCount = 0
	return s.store.CreateListing(ctx, listing)
}

// GetListing 取得刊登商品，查無資料時回傳 NotFound
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	listing, err := s.store.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, NewError(CodeNotFound, "listing %s not found", id)
	}
	return listing, nil
}

// CanBid 執行資格檢查，等同於出價前的 dry-run
// 注意: 與實際出價一樣，未受評者第一次檢查會建立 BidRequest
func (s *Service) CanBid(ctx context.Context, listingID, bidderID uuid.UUID, now time.Time) error {
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	return s.checkEligibility(ctx, listing, bidderID, now)
}

// PlaceProxyBid 接受一筆代理出價並完成結算
// 整個結算在同一個交易內以行級鎖序列化，出價事件在提交後才發布
func (s *Service) PlaceProxyBid(ctx context.Context, listingID, bidderID uuid.UUID, maxPrice decimal.Decimal, now time.Time) (*models.ProxyBid, error) {
	if !maxPrice.IsPositive() {
		return nil, NewError(CodeValidationFailed, "max price must be positive")
	}

	// 資格檢查在交易外執行，BidRequest 的建立不受後續回滾影響
	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := s.checkEligibility(ctx, listing, bidderID, now); err != nil {
		return nil, err
	}

	var (
		bid *models.ProxyBid
		res resolution
	)
	err = s.store.InListingTx(ctx, listingID, func(tx Store, locked *models.Listing) error {
		if err := validateBid(locked, maxPrice, now); err != nil {
			return err
		}

		if triggersBuyNow(locked, maxPrice) {
			res = resolveBuyNow(locked, bidderID)
		} else {
			// 先取現任者的上限再覆寫代理出價
			// 現任者調整自己上限時，結算必須以調整前的上限為準
			var ceiling *decimal.Decimal
			if locked.TopBidderID != nil {
				topBid, err := tx.GetProxyBid(ctx, listingID, *locked.TopBidderID)
				if err != nil {
					return err
				}
				if topBid != nil {
					ceiling = &topBid.MaxPrice
				}
			}
			if bid, err = s.upsertProxyBid(ctx, tx, listingID, bidderID, maxPrice); err != nil {
				return err
			}
			if res, err = resolveProxyBid(locked, ceiling, bidderID, maxPrice); err != nil {
				return err
			}
		}

		locked.CurrentPrice = res.CurrentPrice
		locked.TopBidderID = lo.ToPtr(res.TopBidderID)
		locked.BidCount += res.CountDelta
		if res.BuyNow {
			// 直購立即結標
			locked.EndAt = now
			if bid, err = s.upsertProxyBid(ctx, tx, listingID, bidderID, maxPrice); err != nil {
				return err
			}
		}

		entries := make([]*models.BidHistory, len(res.History))
		for i, point := range res.History {
			entries[i] = &models.BidHistory{
				ListingID: listingID,
				BidderID:  point.BidderID,
				Price:     point.Price,
				CreatedAt: now,
			}
		}
		if err := tx.AppendBidHistory(ctx, entries...); err != nil {
			return err
		}

		// 直購後拍賣已結束，延長只對一般出價有意義
		if !res.BuyNow {
			s.maybeExtend(ctx, tx, locked, now)
		}

		return tx.SaveListing(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.publishBidEvents(listingID, res, now)
	return bid, nil
}

// BlockBidder 將出價者加入商品的封鎖名單
// 若被封者正是現任最高出價者，先重算最高出價者再寫入封鎖紀錄，兩者同一交易
func (s *Service) BlockBidder(ctx context.Context, listingID, bidderID, actorID uuid.UUID, now time.Time) (*models.BlacklistEntry, error) {
	profile, err := s.users.Profile(ctx, bidderID)
	if err != nil {
		return nil, WrapError(CodeDependencyUnavailable, err, "user directory is unavailable")
	}
	if profile == nil {
		return nil, NewError(CodeNotFound, "bidder %s not found", bidderID)
	}

	entry := &models.BlacklistEntry{
		ListingID: listingID,
		BidderID:  bidderID,
		CreatedBy: actorID,
		CreatedAt: now,
	}
	err = s.store.InListingTx(ctx, listingID, func(tx Store, listing *models.Listing) error {
		if !now.Before(listing.EndAt) {
			return NewError(CodeConflict, "cannot block bidder, auction has ended")
		}
		blocked, err := tx.IsBlacklisted(ctx, listingID, bidderID)
		if err != nil {
			return err
		}
		if blocked {
			return NewError(CodeConflict, "bidder %s is already blocked for listing %s", bidderID, listingID)
		}

		if listing.TopBidderID != nil && *listing.TopBidderID == bidderID {
			// 被封者是現任最高出價者，改由剩餘代理出價中上限最高者接手
			// BidCount 是單調遞增的稽核計數，不隨之回退
			next, err := tx.TopProxyBidExcluding(ctx, listingID, bidderID)
			if err != nil {
				return err
			}
			if next != nil {
				listing.TopBidderID = lo.ToPtr(next.BidderID)
				listing.CurrentPrice = next.MaxPrice
			} else {
				listing.TopBidderID = nil
				listing.CurrentPrice = listing.StartPrice
			}
			if err := tx.SaveListing(ctx, listing); err != nil {
				return err
			}
		}

		return tx.CreateBlacklistEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// VerifyBidRequest 由賣家核可出價申請，Verified 只能從 false 轉為 true 一次
func (s *Service) VerifyBidRequest(ctx context.Context, listingID, bidderID, sellerID uuid.UUID) (*models.BidRequest, error) {
	profile, err := s.users.Profile(ctx, bidderID)
	if err != nil {
		return nil, WrapError(CodeDependencyUnavailable, err, "user directory is unavailable")
	}
	if profile == nil {
		return nil, NewError(CodeNotFound, "bidder %s not found", bidderID)
	}

	listing, err := s.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, NewError(CodeForbidden, "only the listing seller can verify bid requests")
	}

	req, err := s.store.GetBidRequest(ctx, listingID, bidderID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, NewError(CodeNotFound, "bid request not found for bidder %s on listing %s", bidderID, listingID)
	}
	if req.Verified {
		return nil, NewError(CodeConflict, "bid request is already verified")
	}
	req.Verified = true
	if err := s.store.SaveBidRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListBidHistory 依建立時間新到舊回傳價格變動紀錄
func (s *Service) ListBidHistory(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BidHistory, int64, error) {
	return s.store.ListBidHistory(ctx, listingID, page)
}

// ListProxyBids 回傳商品上所有代理出價
// MaxPrice 的揭露規則由呼叫端負責(只有本人與平台管理者可見)
func (s *Service) ListProxyBids(ctx context.Context, listingID uuid.UUID, page Page) ([]models.ProxyBid, int64, error) {
	return s.store.ListProxyBids(ctx, listingID, page)
}

func (s *Service) ListBidRequests(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BidRequest, int64, error) {
	return s.store.ListBidRequests(ctx, listingID, page)
}

func (s *Service) ListBlacklist(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BlacklistEntry, int64, error) {
	return s.store.ListBlacklist(ctx, listingID, page)
}

func (s *Service) upsertProxyBid(ctx context.Context, tx Store, listingID, bidderID uuid.UUID, maxPrice decimal.Decimal) (*models.ProxyBid, error) {
	bid, err := tx.GetProxyBid(ctx, listingID, bidderID)
	if err != nil {
		return nil, err
	}
	if bid == nil {
		bid = &models.ProxyBid{
			ListingID: listingID,
			BidderID:  bidderID,
		}
	}
	// 無論提高或降低都覆寫為最新送出的上限
	bid.MaxPrice = maxPrice
	if err := tx.SaveProxyBid(ctx, bid); err != nil {
		return nil, err
	}
	return bid, nil
}

// maybeExtend 讀取自動延長設定並套用，設定缺失或格式錯誤時不阻擋出價
func (s *Service) maybeExtend(ctx context.Context, tx Store, listing *models.Listing, now time.Time) {
	if !listing.AutoExtendEnabled {
		return
	}
	raw, err := tx.GetSetting(ctx, SettingAutoExtend)
	if err != nil || raw == nil {
		if err != nil {
			s.logger.Warn("Fail to read auto extend setting", slog.Any("error", err))
		}
		return
	}
	cfg, err := ParseAutoExtendConfig(raw)
	if err != nil {
		s.logger.Warn("Invalid auto extend setting", slog.Any("error", err))
		return
	}
	if applyAutoExtend(listing, cfg, now) {
		s.logger.Info("Auction end time extended",
			slog.String("listingID", listing.ID.String()),
			slog.Time("newEndAt", listing.EndAt))
	}
}

func (s *Service) publishBidEvents(listingID uuid.UUID, res resolution, now time.Time) {
	if s.events == nil {
		return
	}
	for _, point := range res.History {
		event := BidEvent{
			ListingID: listingID,
			BidderID:  point.BidderID,
			Price:     point.Price,
			CreatedAt: now,
		}
		if err := s.events.Publish(event); err != nil {
			s.logger.Warn("Fail to publish bid event", slog.Any("error", err))
		}
	}
}

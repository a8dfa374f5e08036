package auction

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gavel/models"
)

// Page 為分頁參數，Page 從1開始
type Page struct {
	Page int
	Size int
}

func (p Page) normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Size
}

// Store 是核心模組的持久層介面
// Get 系列在查無資料時回傳 (nil, nil)，由呼叫端決定語意
type Store interface {
	CreateListing(ctx context.Context, listing *models.Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	SaveListing(ctx context.Context, listing *models.Listing) error

	GetProxyBid(ctx context.Context, listingID, bidderID uuid.UUID) (*models.ProxyBid, error)
	SaveProxyBid(ctx context.Context, bid *models.ProxyBid) error
	// TopProxyBidExcluding 回傳排除指定出價者後上限最高的代理出價
	// 封鎖名單上的出價者一律不列入，即使其代理出價紀錄仍保留
	// 同額時以建立時間較早者優先
	TopProxyBidExcluding(ctx context.Context, listingID, excludedBidder uuid.UUID) (*models.ProxyBid, error)
	ListProxyBids(ctx context.Context, listingID uuid.UUID, page Page) ([]models.ProxyBid, int64, error)

	AppendBidHistory(ctx context.Context, entries ...*models.BidHistory) error
	ListBidHistory(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BidHistory, int64, error)

	GetBidRequest(ctx context.Context, listingID, bidderID uuid.UUID) (*models.BidRequest, error)
	// CreateBidRequest 永遠在交易外寫入，即使外層交易回滾，申請紀錄也必須保留
	CreateBidRequest(ctx context.Context, req *models.BidRequest) error
	SaveBidRequest(ctx context.Context, req *models.BidRequest) error
	ListBidRequests(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BidRequest, int64, error)

	IsBlacklisted(ctx context.Context, listingID, bidderID uuid.UUID) (bool, error)
	CreateBlacklistEntry(ctx context.Context, entry *models.BlacklistEntry) error
	ListBlacklist(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BlacklistEntry, int64, error)

	GetSetting(ctx context.Context, key string) ([]byte, error)

	// InListingTx 開啟交易並鎖定指定的 Listing 後執行 fn
	// 同一個刊登商品上的出價結算與封鎖重算都必須透過這裡序列化
	InListingTx(ctx context.Context, listingID uuid.UUID, fn func(tx Store, listing *models.Listing) error) error
}

type gormStore struct {
	db *gorm.DB
	// root 保留原始連線，供必須跨交易存活的寫入使用
	root *gorm.DB
}

// NewGormStore 以 gorm 連線建立 Store
// 連線必須開啟 TranslateError，重複鍵才能轉為 gorm.ErrDuplicatedKey
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, root: db}
}

func (s *gormStore) CreateListing(ctx context.Context, listing *models.Listing) error {
	const op = "CreateListing"
	if result := s.db.WithContext(ctx).Create(listing); result.Error != nil {
		return fmt.Errorf("[%s] Fail to create listing, err=%w", op, result.Error)
	}
	return nil
}

func (s *gormStore) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	const op = "GetListing"
	listing := models.Listing{ID: id}
	if result := s.db.WithContext(ctx).First(&listing); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to find listing, err=%w", op, result.Error)
	}
	return &listing, nil
}

func (s *gormStore) SaveListing(ctx context.Context, listing *models.Listing) error {
	const op = "SaveListing"
	if result := s.db.WithContext(ctx).Save(listing); result.Error != nil {
		return fmt.Errorf("[%s] Fail to save listing, err=%w", op, result.Error)
	}
	return nil
}

func (s *gormStore) GetProxyBid(ctx context.Context, listingID, bidderID uuid.UUID) (*models.ProxyBid, error) {
	const op = "GetProxyBid"
	var bid models.ProxyBid
	result := s.db.WithContext(ctx).
		Where("listing_id = ? AND bidder_id = ?", listingID, bidderID).
		First(&bid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to find proxy bid, err=%w", op, result.Error)
	}
	return &bid, nil
}

func (s *gormStore) SaveProxyBid(ctx context.Context, bid *models.ProxyBid) error {
	const op = "SaveProxyBid"
	if result := s.db.WithContext(ctx).Save(bid); result.Error != nil {
		return fmt.Errorf("[%s] Fail to save proxy bid, err=%w", op, result.Error)
	}
	return nil
}

func (s *gormStore) TopProxyBidExcluding(ctx context.Context, listingID, excludedBidder uuid.UUID) (*models.ProxyBid, error) {
	const op = "TopProxyBidExcluding"
	// 已被封鎖的出價者即使保有代理出價紀錄，也永遠不能再被選為最高出價者
	blocked := s.db.Model(&models.BlacklistEntry{}).
		Select("bidder_id").
		Where("listing_id = ?", listingID)
	var bid models.ProxyBid
	result := s.db.WithContext(ctx).
		Where("listing_id = ? AND bidder_id != ?", listingID, excludedBidder).
		Where("bidder_id NOT IN (?)", blocked).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "max_price"}, Desc: true},
			{Column: clause.Column{Name: "created_at"}, Desc: false},
		}}).
		First(&bid)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to find top proxy bid, err=%w", op, result.Error)
	}
	return &bid, nil
}

func (s *gormStore) ListProxyBids(ctx context.Context, listingID uuid.UUID, page Page) ([]models.ProxyBid, int64, error) {
	const op = "ListProxyBids"
	page = page.normalize()
	query := s.db.WithContext(ctx).Model(&models.ProxyBid{}).Where("listing_id = ?", listingID)
	var total int64
	if result := query.Count(&total); result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to count proxy bids, err=%w", op, result.Error)
	}
	var bids []models.ProxyBid
	result := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: false}).
		Offset(page.offset()).Limit(page.Size).
		Find(&bids)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to list proxy bids, err=%w", op, result.Error)
	}
	return bids, total, nil
}

func (s *gormStore) AppendBidHistory(ctx context.Context, entries ...*models.BidHistory) error {
	const op = "AppendBidHistory"
	for _, entry := range entries {
		if result := s.db.WithContext(ctx).Create(entry); result.Error != nil {
			return fmt.Errorf("[%s] Fail to append bid history, err=%w", op, result.Error)
		}
	}
	return nil
}

func (s *gormStore) ListBidHistory(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BidHistory, int64, error) {
	const op = "ListBidHistory"
	page = page.normalize()
	query := s.db.WithContext(ctx).Model(&models.BidHistory{}).Where("listing_id = ?", listingID)
	var total int64
	if result := query.Count(&total); result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to count bid history, err=%w", op, result.Error)
	}
	var entries []models.BidHistory
	result := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Offset(page.offset()).Limit(page.Size).
		Find(&entries)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to list bid history, err=%w", op, result.Error)
	}
	return entries, total, nil
}

func (s *gormStore) GetBidRequest(ctx context.Context, listingID, bidderID uuid.UUID) (*models.BidRequest, error) {
	const op = "GetBidRequest"
	var req models.BidRequest
	result := s.db.WithContext(ctx).
		Where("listing_id = ? AND bidder_id = ?", listingID, bidderID).
		First(&req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to find bid request, err=%w", op, result.Error)
	}
	return &req, nil
}

func (s *gormStore) CreateBidRequest(ctx context.Context, req *models.BidRequest) error {
	const op = "CreateBidRequest"
	// 刻意使用root連線: 出價被拒絕時外層交易會回滾，但申請紀錄必須存活
	if result := s.root.WithContext(ctx).Create(req); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return NewError(CodeConflict, "bid request already exists for bidder %s on listing %s", req.BidderID, req.ListingID)
		}
		return fmt.Errorf("[%s] Fail to create bid request, err=%w", op, result.Error)
	}
	return nil
}

func (s *gormStore) SaveBidRequest(ctx context.Context, req *models.BidRequest) error {
	const op = "SaveBidRequest"
	if result := s.db.WithContext(ctx).Save(req); result.Error != nil {
		return fmt.Errorf("[%s] Fail to save bid request, err=%w", op, result.Error)
	}
	return nil
}

func (s *gormStore) ListBidRequests(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BidRequest, int64, error) {
	const op = "ListBidRequests"
	page = page.normalize()
	query := s.db.WithContext(ctx).Model(&models.BidRequest{}).Where("listing_id = ?", listingID)
	var total int64
	if result := query.Count(&total); result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to count bid requests, err=%w", op, result.Error)
	}
	var reqs []models.BidRequest
	result := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Offset(page.offset()).Limit(page.Size).
		Find(&reqs)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to list bid requests, err=%w", op, result.Error)
	}
	return reqs, total, nil
}

func (s *gormStore) IsBlacklisted(ctx context.Context, listingID, bidderID uuid.UUID) (bool, error) {
	const op = "IsBlacklisted"
	var count int64
	result := s.db.WithContext(ctx).Model(&models.BlacklistEntry{}).
		Where("listing_id = ? AND bidder_id = ?", listingID, bidderID).
		Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("[%s] Fail to check blacklist, err=%w", op, result.Error)
	}
	return count > 0, nil
}

func (s *gormStore) CreateBlacklistEntry(ctx context.Context, entry *models.BlacklistEntry) error {
	const op = "CreateBlacklistEntry"
	if result := s.db.WithContext(ctx).Create(entry); result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return NewError(CodeConflict, "bidder %s is already blocked for listing %s", entry.BidderID, entry.ListingID)
		}
		return fmt.Errorf("[%s] Fail to create blacklist entry, err=%w", op, result.Error)
	}
	return nil
}

func (s *gormStore) ListBlacklist(ctx context.Context, listingID uuid.UUID, page Page) ([]models.BlacklistEntry, int64, error) {
	const op = "ListBlacklist"
	page = page.normalize()
	query := s.db.WithContext(ctx).Model(&models.BlacklistEntry{}).Where("listing_id = ?", listingID)
	var total int64
	if result := query.Count(&total); result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to count blacklist entries, err=%w", op, result.Error)
	}
	var entries []models.BlacklistEntry
	result := query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}).
		Offset(page.offset()).Limit(page.Size).
		Find(&entries)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("[%s] Fail to list blacklist entries, err=%w", op, result.Error)
	}
	return entries, total, nil
}

func (s *gormStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	const op = "GetSetting"
	var setting models.SystemSetting
	result := s.db.WithContext(ctx).Where("key = ?", key).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("[%s] Fail to find system setting, err=%w", op, result.Error)
	}
	return setting.Value, nil
}

func (s *gormStore) InListingTx(ctx context.Context, listingID uuid.UUID, fn func(tx Store, listing *models.Listing) error) error {
	const op = "InListingTx"
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 行級鎖，同一商品上的並發結算在這裡排隊
		var listing models.Listing
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", listingID).
			First(&listing)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return NewError(CodeNotFound, "listing %s not found", listingID)
			}
			return fmt.Errorf("[%s] Fail to lock listing, err=%w", op, result.Error)
		}
		return fn(&gormStore{db: tx, root: s.root}, &listing)
	})
	return err
}

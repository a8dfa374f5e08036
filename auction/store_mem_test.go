package auction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gavel/models"
)

// memStore 是測試用的記憶體Store
// 以每個刊登商品一把鎖模擬資料庫的行級鎖，錯誤時還原交易前的快照
type memStore struct {
	mu           sync.Mutex
	listingLocks map[uuid.UUID]*sync.Mutex

	listings    map[uuid.UUID]*models.Listing
	proxyBids   map[uuid.UUID]map[uuid.UUID]*models.ProxyBid
	history     []models.BidHistory
	bidRequests map[pairKey]*models.BidRequest
	blacklist   map[pairKey]*models.BlacklistEntry
	settings    map[string][]byte

	now func() time.Time
}

type pairKey struct {
	listingID uuid.UUID
	bidderID  uuid.UUID
}

func newMemStore() *memStore {
	var tick int64
	return &memStore{
		listingLocks: make(map[uuid.UUID]*sync.Mutex),
		listings:     make(map[uuid.UUID]*models.Listing),
		proxyBids:    make(map[uuid.UUID]map[uuid.UUID]*models.ProxyBid),
		bidRequests:  make(map[pairKey]*models.BidRequest),
		blacklist:    make(map[pairKey]*models.BlacklistEntry),
		settings:     make(map[string][]byte),
		now: func() time.Time {
			tick++
			return time.Unix(0, tick)
		},
	}
}

func copyListing(listing *models.Listing) *models.Listing {
	clone := *listing
	if listing.TopBidderID != nil {
		id := *listing.TopBidderID
		clone.TopBidderID = &id
	}
	if listing.BuyNowPrice != nil {
		price := *listing.BuyNowPrice
		clone.BuyNowPrice = &price
	}
	return &clone
}

func copyProxyBid(bid *models.ProxyBid) *models.ProxyBid {
	clone := *bid
	return &clone
}

func (s *memStore) CreateListing(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listing.ID == uuid.Nil {
		listing.ID = uuid.New()
	}
	listing.CreatedAt = s.now()
	s.listings[listing.ID] = copyListing(listing)
	return nil
}

func (s *memStore) GetListing(_ context.Context, id uuid.UUID) (*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, nil
	}
	return copyListing(listing), nil
}

func (s *memStore) SaveListing(_ context.Context, listing *models.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings[listing.ID] = copyListing(listing)
	return nil
}

func (s *memStore) GetProxyBid(_ context.Context, listingID, bidderID uuid.UUID) (*models.ProxyBid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, ok := s.proxyBids[listingID][bidderID]
	if !ok {
		return nil, nil
	}
	return copyProxyBid(bid), nil
}

func (s *memStore) SaveProxyBid(_ context.Context, bid *models.ProxyBid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proxyBids[bid.ListingID] == nil {
		s.proxyBids[bid.ListingID] = make(map[uuid.UUID]*models.ProxyBid)
	}
	if existing, ok := s.proxyBids[bid.ListingID][bid.BidderID]; ok {
		bid.CreatedAt = existing.CreatedAt
	} else {
		if bid.ID == uuid.Nil {
			bid.ID = uuid.New()
		}
		bid.CreatedAt = s.now()
	}
	bid.UpdatedAt = s.now()
	s.proxyBids[bid.ListingID][bid.BidderID] = copyProxyBid(bid)
	return nil
}

func (s *memStore) TopProxyBidExcluding(_ context.Context, listingID, excludedBidder uuid.UUID) (*models.ProxyBid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var candidates []*models.ProxyBid
	for bidderID, bid := range s.proxyBids[listingID] {
		if bidderID == excludedBidder {
			continue
		}
		// 封鎖名單上的出價者不參與重算
		if _, blocked := s.blacklist[pairKey{listingID, bidderID}]; blocked {
			continue
		}
		candidates = append(candidates, bid)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].MaxPrice.Equal(candidates[j].MaxPrice) {
			return candidates[i].MaxPrice.GreaterThan(candidates[j].MaxPrice)
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return copyProxyBid(candidates[0]), nil
}

func (s *memStore) ListProxyBids(_ context.Context, listingID uuid.UUID, page Page) ([]models.ProxyBid, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []models.ProxyBid
	for _, bid := range s.proxyBids[listingID] {
		bids = append(bids, *bid)
	}
	sort.Slice(bids, func(i, j int) bool {
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return paginate(bids, page), int64(len(s.proxyBids[listingID])), nil
}

func (s *memStore) AppendBidHistory(_ context.Context, entries ...*models.BidHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		row := *entry
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		s.history = append(s.history, row)
	}
	return nil
}

func (s *memStore) ListBidHistory(_ context.Context, listingID uuid.UUID, page Page) ([]models.BidHistory, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.BidHistory
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].ListingID == listingID {
			entries = append(entries, s.history[i])
		}
	}
	return paginate(entries, page), int64(len(entries)), nil
}

func (s *memStore) GetBidRequest(_ context.Context, listingID, bidderID uuid.UUID) (*models.BidRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.bidRequests[pairKey{listingID, bidderID}]
	if !ok {
		return nil, nil
	}
	clone := *req
	return &clone, nil
}

func (s *memStore) CreateBidRequest(_ context.Context, req *models.BidRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{req.ListingID, req.BidderID}
	if _, ok := s.bidRequests[key]; ok {
		return NewError(CodeConflict, "bid request already exists")
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	clone := *req
	s.bidRequests[key] = &clone
	return nil
}

func (s *memStore) SaveBidRequest(_ context.Context, req *models.BidRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *req
	s.bidRequests[pairKey{req.ListingID, req.BidderID}] = &clone
	return nil
}

func (s *memStore) ListBidRequests(_ context.Context, listingID uuid.UUID, page Page) ([]models.BidRequest, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reqs []models.BidRequest
	for key, req := range s.bidRequests {
		if key.listingID == listingID {
			reqs = append(reqs, *req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return paginate(reqs, page), int64(len(reqs)), nil
}

func (s *memStore) IsBlacklisted(_ context.Context, listingID, bidderID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[pairKey{listingID, bidderID}]
	return ok, nil
}

func (s *memStore) CreateBlacklistEntry(_ context.Context, entry *models.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{entry.ListingID, entry.BidderID}
	if _, ok := s.blacklist[key]; ok {
		return NewError(CodeConflict, "bidder is already blocked")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	clone := *entry
	s.blacklist[key] = &clone
	return nil
}

func (s *memStore) ListBlacklist(_ context.Context, listingID uuid.UUID, page Page) ([]models.BlacklistEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var entries []models.BlacklistEntry
	for key, entry := range s.blacklist {
		if key.listingID == listingID {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return paginate(entries, page), int64(len(entries)), nil
}

func (s *memStore) GetSetting(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.settings[key]
	if !ok {
		return nil, nil
	}
	return raw, nil
}

func (s *memStore) InListingTx(ctx context.Context, listingID uuid.UUID, fn func(tx Store, listing *models.Listing) error) error {
	s.mu.Lock()
	lock, ok := s.listingLocks[listingID]
	if !ok {
		lock = &sync.Mutex{}
		s.listingLocks[listingID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	listing, exists := s.listings[listingID]
	if !exists {
		s.mu.Unlock()
		return NewError(CodeNotFound, "listing %s not found", listingID)
	}
	snapshot := s.snapshotLocked(listingID)
	locked := copyListing(listing)
	s.mu.Unlock()

	if err := fn(s, locked); err != nil {
		s.mu.Lock()
		s.restoreLocked(listingID, snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	listing    *models.Listing
	proxyBids  map[uuid.UUID]*models.ProxyBid
	historyLen int
	blacklist  map[pairKey]*models.BlacklistEntry
}

func (s *memStore) snapshotLocked(listingID uuid.UUID) memSnapshot {
	snap := memSnapshot{
		listing:    copyListing(s.listings[listingID]),
		proxyBids:  make(map[uuid.UUID]*models.ProxyBid),
		historyLen: len(s.history),
		blacklist:  make(map[pairKey]*models.BlacklistEntry),
	}
	for bidderID, bid := range s.proxyBids[listingID] {
		snap.proxyBids[bidderID] = copyProxyBid(bid)
	}
	for key, entry := range s.blacklist {
		if key.listingID == listingID {
			clone := *entry
			snap.blacklist[key] = &clone
		}
	}
	return snap
}

func (s *memStore) restoreLocked(listingID uuid.UUID, snap memSnapshot) {
	s.listings[listingID] = snap.listing
	s.proxyBids[listingID] = snap.proxyBids
	s.history = s.history[:snap.historyLen]
	for key := range s.blacklist {
		if key.listingID == listingID {
			delete(s.blacklist, key)
		}
	}
	for key, entry := range snap.blacklist {
		s.blacklist[key] = entry
	}
}

func paginate[T any](items []T, page Page) []T {
	page = page.normalize()
	start := page.offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

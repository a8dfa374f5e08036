package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type lockerOptions struct {
	keyPrefix     string
	expiry        time.Duration
	retryDelay    time.Duration
	renewInterval time.Duration
	skipLockError bool
}

type LockerOption func(*lockerOptions)

// WithLockerKeyPrefix 設置鎖在redis上的鍵值前綴
func WithLockerKeyPrefix(prefix string) LockerOption {
	return func(o *lockerOptions) {
		o.keyPrefix = prefix
	}
}

// WithLockerExpiry 設置鎖過期時間
func WithLockerExpiry(d time.Duration) LockerOption {
	return func(o *lockerOptions) {
		o.expiry = d
	}
}

// WithLockerRetryDelay 設置重試延遲
func WithLockerRetryDelay(d time.Duration) LockerOption {
	return func(o *lockerOptions) {
		o.retryDelay = d
	}
}

// WithLockerRenewInterval 設置自動續期間隔
func WithLockerRenewInterval(d time.Duration) LockerOption {
	return func(o *lockerOptions) {
		o.renewInterval = d
	}
}

// WithLockerSkipLockError 設置是否忽略所有鎖定錯誤
func WithLockerSkipLockError(skip bool) LockerOption {
	return func(o *lockerOptions) {
		o.skipLockError = skip
	}
}

// ListingLocker 以redsync為每個刊登商品建立跨實例的分散式鎖
// 資料庫的行級鎖負責正確性，這裡的鎖負責讓同商品的出價在實例之間排隊
// 避免熱門商品的並發出價互相卡在資料庫交易上
type ListingLocker struct {
	rs      *redsync.Redsync
	options lockerOptions
}

func NewListingLocker(client *redis.Client, opts ...LockerOption) *ListingLocker {
	// 默認選項
	options := lockerOptions{
		keyPrefix:     "listing-lock",
		expiry:        8 * time.Second,
		retryDelay:    500 * time.Millisecond,
		renewInterval: 0, // 會在下面根據expiry計算
		skipLockError: false,
	}
	for _, opt := range opts {
		opt(&options)
	}

	// 如果未設置續期間隔，使用過期時間的1/3
	if options.renewInterval <= 0 {
		options.renewInterval = options.expiry / 3
	}

	pool := goredis.NewPool(client)
	return &ListingLocker{
		rs:      redsync.New(pool),
		options: options,
	}
}

// For 回傳指定刊登商品的自動續期鎖
func (l *ListingLocker) For(listingID uuid.UUID) IListingLock {
	mutex := l.rs.NewMutex(
		fmt.Sprintf("%s:%s", l.options.keyPrefix, listingID),
		redsync.WithExpiry(l.options.expiry),
		redsync.WithTries(1),
		redsync.WithRetryDelay(l.options.retryDelay),
	)
	return &ListingLock{
		Mutex:   mutex,
		options: l.options,
	}
}

// ListingLock 是單一刊登商品的分散式鎖，持有期間會自動續期
// 長時間的結算不會因為鎖過期而被其他實例闖入
type ListingLock struct {
	*redsync.Mutex
	cancel   context.CancelFunc
	renewing bool
	mu       sync.Mutex
	wg       sync.WaitGroup
	options  lockerOptions
}

// Lock 獲取鎖並啟動自動續期，支持通過context取消
func (m *ListingLock) Lock(ctx context.Context) (context.Context, error) {
	timer := time.NewTimer(1)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			err := m.Mutex.LockContext(ctx)
			if err == nil {
				lockCtx, cancel := context.WithCancel(ctx)
				m.cancel = cancel
				m.startAutoRenew(lockCtx)
				return lockCtx, nil
			}
			// 只有在獲取鎖失敗或設置了忽略錯誤(skipLockError)時才重試
			var commErr *redsync.RedisError
			if !m.options.skipLockError && errors.As(err, &commErr) {
				return nil, fmt.Errorf("failed to acquire listing lock: %w", err)
			}
			// 重置計時器，準備下次重試
			timer.Reset(m.options.retryDelay)
		}
	}
}

// Unlock 停止自動續期並釋放鎖
func (m *ListingLock) Unlock() (bool, error) {
	m.stopAutoRenew()
	m.wg.Wait()
	return m.Mutex.Unlock()
}

// Valid 檢查鎖是否仍然有效，通過比較當前時間和過期時間判斷
func (m *ListingLock) Valid() bool {
	return time.Now().Before(m.Mutex.Until()) && m.renewing
}

func (m *ListingLock) startAutoRenew(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renewing {
		return
	}

	m.renewing = true
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.options.renewInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				success, err := m.Mutex.Extend()
				if err != nil || !success {
					m.stopAutoRenew()
					return
				}
			}
		}
	}()
}

func (m *ListingLock) stopAutoRenew() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.renewing {
		return
	}

	m.renewing = false
	if m.cancel != nil {
		m.cancel()
	}
}

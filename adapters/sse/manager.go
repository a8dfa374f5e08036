package sse

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"gavel/auction"
)

// EventSource 是上游出價事件的來源，通常由redis stream的訂閱者實作。
// 透過stream轉發讓多個服務實例都能廣播到自己的SSE連線。
type EventSource interface {
	Start()
	Subscribe() <-chan auction.BidEvent
	Close()
}

// IManager 定義了 Manager 的操作介面
type IManager interface {
	// Start 啟動 Manager，開始接收與廣播出價事件。
	// 應在呼叫其他方法前先呼叫此方法。
	Start()
	// Done 停止 Manager，釋放所有資源。
	Done()
	// Subscribe 訂閱指定刊登商品的出價事件。
	Subscribe(listingID uuid.UUID) (<-chan auction.BidEvent, error)
	// Unsubscribe 取消訂閱指定刊登商品。
	Unsubscribe(listingID uuid.UUID, ch <-chan auction.BidEvent)
}

// Manager 依刊登商品將出價事件分流給各自的SSE訂閱者。
type Manager struct {
	logger *slog.Logger

	mu     sync.RWMutex   // 保護 active 和 feeds 的讀寫
	wg     sync.WaitGroup // 用於等待廣播 goroutine 完成
	active bool           // 標記 manager 是否正在運作中

	source EventSource
	feeds  map[uuid.UUID]*Feed // 儲存所有有訂閱者的刊登商品
}

func NewManager(source EventSource, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger.With(slog.String("caller", "SSEManager")),
		source: source,
		feeds:  make(map[uuid.UUID]*Feed),
		active: true,
	}
}

// Start 啟動事件來源並開始廣播。
func (m *Manager) Start() {
	m.source.Start()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for event := range m.source.Subscribe() {
			m.mu.RLock()
			if feed, ok := m.feeds[event.ListingID]; ok {
				feed.Broadcast(event)
			}
			m.mu.RUnlock()
		}
	}()
}

// Done 停止 Manager 的運作並斷開所有訂閱者。
func (m *Manager) Done() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return
	}

	m.active = false
	m.source.Close()
	m.wg.Wait()
	for _, feed := range m.feeds {
		feed.UnsubscribeAll()
	}
	clear(m.feeds)
}

// Subscribe 訂閱指定刊登商品的出價事件。
func (m *Manager) Subscribe(listingID uuid.UUID) (<-chan auction.BidEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return nil, context.Canceled
	}

	feed, ok := m.feeds[listingID]
	if !ok {
		feed = NewFeed()
		m.feeds[listingID] = feed
	}
	return feed.Subscribe(), nil
}

// Unsubscribe 取消訂閱指定刊登商品，最後一個訂閱者離開時回收Feed。
func (m *Manager) Unsubscribe(listingID uuid.UUID, ch <-chan auction.BidEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[listingID]
	if !ok {
		return
	}

	feed.Unsubscribe(ch)
	if feed.IsIdle() {
		delete(m.feeds, listingID)
	}
}

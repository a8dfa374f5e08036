package sse

import (
	"sync"

	"gavel/auction"
)

// Feed 管理單一刊登商品的所有SSE訂閱者，
// 並將收到的出價事件廣播給所有訂閱者。
type Feed struct {
	subscribers map[<-chan auction.BidEvent]chan<- auction.BidEvent
	mu          sync.RWMutex
}

func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[<-chan auction.BidEvent]chan<- auction.BidEvent),
	}
}

// subscriberBuffer 是每個訂閱者通道的緩衝量，
// 寫滿代表訂閱者已跟不上事件速度。
const subscriberBuffer = 16

// Subscribe 建立一個新的訂閱並回傳唯讀通道給呼叫者。
func (f *Feed) Subscribe() <-chan auction.BidEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan auction.BidEvent, subscriberBuffer)
	f.subscribers[ch] = ch
	return ch
}

// Unsubscribe 從訂閱清單中移除指定的通道，並關閉該通道。
func (f *Feed) Unsubscribe(ch <-chan auction.BidEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if writeCh, exists := f.subscribers[ch]; exists {
		delete(f.subscribers, ch)
		close(writeCh)
	}
}

// UnsubscribeAll 關閉所有訂閱者的通道並清空訂閱清單。
func (f *Feed) UnsubscribeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, writeCh := range f.subscribers {
		close(writeCh)
	}
	clear(f.subscribers)
}

// Broadcast 將出價事件廣播給所有仍在訂閱清單中的通道。
// 廣播不能被個別訂閱者阻塞，通道寫滿時直接丟棄該訂閱者的這筆事件。
func (f *Feed) Broadcast(event auction.BidEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, writeCh := range f.subscribers {
		select {
		case writeCh <- event:
		default:
		}
	}
}

// IsIdle 判斷訂閱清單是否為空。
func (f *Feed) IsIdle() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) == 0
}

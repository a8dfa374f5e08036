package redis

import (
	"context"

	"gavel/auction"
)

// IEventPublisher 定義了 EventPublisher 的操作介面
type IEventPublisher interface {
	Start()
	Publish(event auction.BidEvent) error
	Close()
}

// IEventSubscriber 定義了 EventSubscriber 的操作介面
type IEventSubscriber interface {
	Start()
	Subscribe() <-chan auction.BidEvent
	Close()
}

// IListingLock 定義了 ListingLock 的操作介面
type IListingLock interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}

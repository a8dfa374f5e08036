package sse_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gavel/adapters/sse"
	"gavel/auction"
)

// fakeSource 是測試用的事件來源，直接以channel餵入事件
type fakeSource struct {
	events chan auction.BidEvent
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan auction.BidEvent, 10)}
}

func (s *fakeSource) Start() {}

func (s *fakeSource) Subscribe() <-chan auction.BidEvent {
	return s.events
}

func (s *fakeSource) Close() {
	close(s.events)
}

func TestManagerRoutesEventsByListing(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newFakeSource()
	manager := sse.NewManager(source, nil)
	manager.Start()
	defer manager.Done()

	listingA := uuid.New()
	listingB := uuid.New()

	subA, err := manager.Subscribe(listingA)
	require.NoError(t, err)
	subB, err := manager.Subscribe(listingB)
	require.NoError(t, err)

	event := newEvent(listingA)
	source.events <- event

	select {
	case received := <-subA:
		assert.Equal(t, listingA, received.ListingID)
	case <-time.After(time.Second):
		t.Fatal("subscriber A did not receive event in time")
	}

	// B商品的訂閱者不該收到A商品的事件
	select {
	case received := <-subB:
		t.Fatalf("unexpected event on listing B: %+v", received)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManagerUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newFakeSource()
	manager := sse.NewManager(source, nil)
	manager.Start()
	defer manager.Done()

	listingID := uuid.New()
	sub, err := manager.Subscribe(listingID)
	require.NoError(t, err)

	manager.Unsubscribe(listingID, sub)
	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")

	// 沒有訂閱者時事件直接丟棄，不會阻塞
	source.events <- newEvent(listingID)
}

func TestManagerDone(t *testing.T) {
	defer goleak.VerifyNone(t)

	source := newFakeSource()
	manager := sse.NewManager(source, nil)
	manager.Start()

	listingID := uuid.New()
	sub, err := manager.Subscribe(listingID)
	require.NoError(t, err)

	manager.Done()

	_, ok := <-sub
	assert.False(t, ok, "all subscribers are disconnected on shutdown")

	_, err = manager.Subscribe(listingID)
	assert.Error(t, err, "subscribe after shutdown should fail")

	// 重複Done為no-op
	manager.Done()
}

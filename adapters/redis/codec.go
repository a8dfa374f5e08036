package redis

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"

	"gavel/auction"
)

// wireEvent 是出價事件在stream上的傳輸格式
// 價格以字串傳輸，避免序列化過程中的浮點數誤差
type wireEvent struct {
	ListingID string `msgpack:"listingId"`
	BidderID  string `msgpack:"bidderId"`
	Price     string `msgpack:"price"`
	CreatedAt int64  `msgpack:"createdAt"`
}

// EncodeBidEvent 將出價事件序列化為stream訊息
func EncodeBidEvent(event auction.BidEvent) (map[string]any, error) {
	bytes, err := msgpack.Marshal(wireEvent{
		ListingID: event.ListingID.String(),
		BidderID:  event.BidderID.String(),
		Price:     event.Price.String(),
		CreatedAt: event.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("msgpack marshal error: %w", err)
	}
	return map[string]any{
		"data": base64.StdEncoding.EncodeToString(bytes),
	}, nil
}

// DecodeBidEvent 將stream訊息還原為出價事件
func DecodeBidEvent(message map[string]any) (auction.BidEvent, error) {
	var event auction.BidEvent

	dataStr, ok := message["data"].(string)
	if !ok {
		return event, fmt.Errorf("data field not found or invalid type")
	}
	bytes, err := base64.StdEncoding.DecodeString(dataStr)
	if err != nil {
		return event, fmt.Errorf("base64 decode error: %w", err)
	}
	var wire wireEvent
	if err := msgpack.Unmarshal(bytes, &wire); err != nil {
		return event, fmt.Errorf("msgpack unmarshal error: %w", err)
	}

	if event.ListingID, err = uuid.Parse(wire.ListingID); err != nil {
		return event, fmt.Errorf("invalid listing id: %w", err)
	}
	if event.BidderID, err = uuid.Parse(wire.BidderID); err != nil {
		return event, fmt.Errorf("invalid bidder id: %w", err)
	}
	if event.Price, err = decimal.NewFromString(wire.Price); err != nil {
		return event, fmt.Errorf("invalid price: %w", err)
	}
	event.CreatedAt = time.UnixMilli(wire.CreatedAt).UTC()
	return event, nil
}

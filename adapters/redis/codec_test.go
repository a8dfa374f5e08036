package redis

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBidEventCodec(t *testing.T) {
	t.Run("編碼後可還原", func(t *testing.T) {
		event := testEvent()

		message, err := EncodeBidEvent(event)
		require.NoError(t, err)
		require.Contains(t, message, "data")

		decoded, err := DecodeBidEvent(message)
		require.NoError(t, err)

		assert.Equal(t, event.ListingID, decoded.ListingID)
		assert.Equal(t, event.BidderID, decoded.BidderID)
		assert.True(t, event.Price.Equal(decoded.Price))
		assert.True(t, event.CreatedAt.Equal(decoded.CreatedAt))
	})

	t.Run("缺少data欄位", func(t *testing.T) {
		_, err := DecodeBidEvent(map[string]any{"other": "value"})
		assert.Error(t, err)
	})

	t.Run("非法的base64內容", func(t *testing.T) {
		_, err := DecodeBidEvent(map[string]any{"data": "not-base64!!"})
		assert.Error(t, err)
	})

	t.Run("非法的msgpack內容", func(t *testing.T) {
		_, err := DecodeBidEvent(map[string]any{
			"data": base64.StdEncoding.EncodeToString([]byte("garbage")),
		})
		assert.Error(t, err)
	})
}

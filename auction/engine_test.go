package auction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/models"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestValidateBid(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		listing  models.Listing
		maxPrice decimal.Decimal
		wantCode Code
	}{
		{
			name: "拍賣已結束",
			listing: models.Listing{
				StartPrice: dec("100"),
				EndAt:      now.Add(-time.Minute),
			},
			maxPrice: dec("200"),
			wantCode: CodeConflict,
		},
		{
			name: "第一次出價低於起標價",
			listing: models.Listing{
				StartPrice:   dec("100"),
				CurrentPrice: dec("100"),
				EndAt:        now.Add(time.Hour),
			},
			maxPrice: dec("99.99"),
			wantCode: CodeValidationFailed,
		},
		{
			name: "第一次出價等於起標價",
			listing: models.Listing{
				StartPrice:   dec("100"),
				CurrentPrice: dec("100"),
				EndAt:        now.Add(time.Hour),
			},
			maxPrice: dec("100"),
		},
		{
			name: "後續出價低於目前價格加最小加價幅度",
			listing: models.Listing{
				StartPrice:     dec("100"),
				CurrentPrice:   dec("150"),
				MinimumBidStep: dec("5"),
				BidCount:       2,
				EndAt:          now.Add(time.Hour),
			},
			maxPrice: dec("154"),
			wantCode: CodeValidationFailed,
		},
		{
			name: "後續出價剛好達到門檻",
			listing: models.Listing{
				StartPrice:     dec("100"),
				CurrentPrice:   dec("150"),
				MinimumBidStep: dec("5"),
				BidCount:       2,
				EndAt:          now.Add(time.Hour),
			},
			maxPrice: dec("155"),
		},
		{
			name: "出價次數為負值代表資料毀損",
			listing: models.Listing{
				StartPrice: dec("100"),
				BidCount:   -1,
				EndAt:      now.Add(time.Hour),
			},
			maxPrice: dec("200"),
			wantCode: CodeIntegrityFault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBid(&tt.listing, tt.maxPrice, now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, IsCode(err, tt.wantCode), "want code %s, got %v", tt.wantCode, err)
		})
	}
}

func TestResolveProxyBid(t *testing.T) {
	incumbentID := uuid.New()
	challengerID := uuid.New()

	base := models.Listing{
		ID:             uuid.New(),
		StartPrice:     dec("100"),
		MinimumBidStep: dec("5"),
	}

	t.Run("沒有最高出價者時直接以上限成為最高出價者", func(t *testing.T) {
		listing := base
		listing.CurrentPrice = dec("100")

		res, err := resolveProxyBid(&listing, nil, challengerID, dec("120"))
		require.NoError(t, err)

		assert.True(t, res.CurrentPrice.Equal(dec("120")))
		assert.Equal(t, challengerID, res.TopBidderID)
		assert.Equal(t, 1, res.CountDelta)
		require.Len(t, res.History, 1)
		assert.Equal(t, challengerID, res.History[0].BidderID)
		assert.True(t, res.History[0].Price.Equal(dec("120")))
	})

	t.Run("挑戰上限低於現任上限時價格被推升到挑戰者上限", func(t *testing.T) {
		listing := base
		listing.CurrentPrice = dec("100")
		listing.TopBidderID = lo.ToPtr(incumbentID)
		listing.BidCount = 1

		res, err := resolveProxyBid(&listing, lo.ToPtr(dec("200")), challengerID, dec("150"))
		require.NoError(t, err)

		assert.True(t, res.CurrentPrice.Equal(dec("150")))
		assert.Equal(t, incumbentID, res.TopBidderID, "現任者應保住最高出價者身分")
		assert.Equal(t, 2, res.CountDelta)
		require.Len(t, res.History, 2)
		assert.Equal(t, challengerID, res.History[0].BidderID)
		assert.Equal(t, incumbentID, res.History[1].BidderID)
		assert.True(t, res.History[1].Price.Equal(dec("150")))
	})

	t.Run("挑戰上限高於現任上限時價格只升到現任上限加一步", func(t *testing.T) {
		listing := base
		listing.CurrentPrice = dec("100")
		listing.TopBidderID = lo.ToPtr(incumbentID)
		listing.BidCount = 1

		res, err := resolveProxyBid(&listing, lo.ToPtr(dec("120")), challengerID, dec("300"))
		require.NoError(t, err)

		assert.True(t, res.CurrentPrice.Equal(dec("125")), "價格應為現任上限120+5，保護挑戰者的真實上限")
		assert.Equal(t, challengerID, res.TopBidderID)
		assert.Equal(t, 1, res.CountDelta)
		require.Len(t, res.History, 1)
	})

	t.Run("挑戰上限只比現任上限高不足一步時價格為挑戰者上限", func(t *testing.T) {
		listing := base
		listing.CurrentPrice = dec("100")
		listing.TopBidderID = lo.ToPtr(incumbentID)
		listing.BidCount = 1

		res, err := resolveProxyBid(&listing, lo.ToPtr(dec("120")), challengerID, dec("123"))
		require.NoError(t, err)

		assert.True(t, res.CurrentPrice.Equal(dec("123")), "min(123, 120+5)應取123")
		assert.Equal(t, challengerID, res.TopBidderID)
	})

	t.Run("平手時先出價者優先", func(t *testing.T) {
		listing := base
		listing.CurrentPrice = dec("110")
		listing.TopBidderID = lo.ToPtr(incumbentID)
		listing.BidCount = 1

		res, err := resolveProxyBid(&listing, lo.ToPtr(dec("200")), challengerID, dec("200"))
		require.NoError(t, err)

		assert.True(t, res.CurrentPrice.Equal(dec("200")))
		assert.Equal(t, incumbentID, res.TopBidderID)
		assert.Equal(t, 1, res.CountDelta)
		require.Len(t, res.History, 1)
		assert.Equal(t, challengerID, res.History[0].BidderID, "留下紀錄的是挑戰者")
	})

	t.Run("有最高出價者卻缺少代理出價紀錄時回報資料毀損", func(t *testing.T) {
		listing := base
		listing.TopBidderID = lo.ToPtr(incumbentID)
		listing.BidCount = 1

		_, err := resolveProxyBid(&listing, nil, challengerID, dec("150"))
		assert.True(t, IsCode(err, CodeIntegrityFault))
	})
}

func TestResolveBuyNow(t *testing.T) {
	bidderID := uuid.New()
	listing := models.Listing{
		ID:          uuid.New(),
		StartPrice:  dec("100"),
		BuyNowPrice: lo.ToPtr(dec("500")),
	}

	assert.False(t, triggersBuyNow(&listing, dec("499.99")))
	assert.True(t, triggersBuyNow(&listing, dec("500")))
	assert.True(t, triggersBuyNow(&listing, dec("600")))

	res := resolveBuyNow(&listing, bidderID)
	assert.True(t, res.BuyNow)
	assert.True(t, res.CurrentPrice.Equal(dec("500")), "成交價固定為直購價，即使出價更高")
	assert.Equal(t, bidderID, res.TopBidderID)
	assert.Equal(t, 1, res.CountDelta)
	require.Len(t, res.History, 1)
	assert.True(t, res.History[0].Price.Equal(dec("500")))

	noBuyNow := models.Listing{StartPrice: dec("100")}
	assert.False(t, triggersBuyNow(&noBuyNow, dec("1000")), "沒有設定直購價時永不觸發")
}

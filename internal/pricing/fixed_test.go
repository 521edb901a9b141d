package pricing

import (
	"context"
	"testing"

	"github.com/efreitasn/stockgame/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixed_GetPrice(t *testing.T) {
	src := NewFixedPriceSource(decimal.RequireFromString("179.5"), map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(100),
	})
	ctx := context.Background()

	p, err := src.GetPrice(ctx, "aapl")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.NewFromInt(100)))

	p, err = src.GetPrice(ctx, "TSLA")
	require.NoError(t, err)
	assert.True(t, p.Equal(decimal.RequireFromString("179.5")))

	_, err = src.GetPrice(ctx, "??")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestFixed_GetPrices(t *testing.T) {
	src := NewFixedPriceSource(decimal.NewFromInt(50), nil)

	prices := src.GetPrices(context.Background(), []string{"AAPL", "", "MSFT"})
	require.Len(t, prices, 3)
	assert.Nil(t, prices[""])
	require.NotNil(t, prices["AAPL"])
	assert.True(t, prices["AAPL"].Equal(decimal.NewFromInt(50)))
}

func TestFixed_Trend(t *testing.T) {
	src := NewFixedPriceSource(decimal.NewFromInt(50), nil)

	tr, err := src.Trend(context.Background(), "msft")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", tr.Symbol)
	assert.Equal(t, DirectionFlat, tr.Direction)
}

func TestNewTrend_Direction(t *testing.T) {
	tests := []struct {
		latest, previous int64
		want             Direction
	}{
		{110, 100, DirectionUp},
		{90, 100, DirectionDown},
		{100, 100, DirectionFlat},
	}
	for _, tt := range tests {
		got := NewTrend("X", decimal.NewFromInt(tt.latest), decimal.NewFromInt(tt.previous))
		assert.Equal(t, tt.want, got.Direction, "latest=%d previous=%d", tt.latest, tt.previous)
	}
}

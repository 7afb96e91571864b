package versus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		symbol   string
		fallback float64
		decimals int
	}{
		{"USDJPY", 0.01, 3},
		{"GBPJPY", 0.01, 3},
		{"BTCUSD", 1.0, 2},
		{"ETHUSD", 1.0, 2},
		{"XRPUSD", 0.01, 2},
		{"LTCUSD", 0.01, 2},
		{"BCHUSD", 0.01, 2},
		{"XAUUSD", 0.01, 2},
		{"XAGUSD", 0.01, 2},
		{"EURUSD", 0.0001, 5},
		{"GBPAUD", 0.0001, 5},
	}
	for _, tt := range tests {
		c := classify(tt.symbol)
		assert.Equal(t, tt.fallback, c.pipFallback, tt.symbol)
		assert.Equal(t, tt.decimals, c.decimals, tt.symbol)
	}
}

func TestPipSizePrefersReported(t *testing.T) {
	assert.Equal(t, 0.0002, pipSize("EURUSD", 0.0002))
	assert.Equal(t, 0.0001, pipSize("EURUSD", 0))
	assert.Equal(t, 0.01, pipSize("USDJPY", -1))
}

func TestUsdPerPip(t *testing.T) {
	// tick value 1.0, pip 0.0001, point 0.00001, 1 lot -> 10 USD per pip.
	assert.InDelta(t, 10.0, usdPerPip(1.0, 0.0001, 0.00001, 1), 1e-9)
	assert.InDelta(t, 5.0, usdPerPip(1.0, 0.0001, 0.00001, 0.5), 1e-9)
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 2.5, roundPips(2.49999))
	assert.Equal(t, 1.5, roundPips(1.54))
	assert.Equal(t, 1.10015, roundPrice(1.1001500001, 5))
	assert.Equal(t, 123.456, roundPrice(123.45649, 3))
}

func TestHalfLots(t *testing.T) {
	assert.Equal(t, 0.5, halfLots(1))
	assert.Equal(t, 0.05, halfLots(0.1))
	assert.Equal(t, 0.17, halfLots(0.33))
}

package oddsmath

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/clever-parlay/internal/models"
)

const tolerance = 1e-9

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"Positive odds +100", 100, 2.0},
		{"Positive odds +150", 150, 2.5},
		{"Positive odds +120", 120, 2.2},
		{"Negative odds -110", -110, 1.0 + 100.0/110.0},
		{"Negative odds -200", -200, 1.5},
		{"Signed string", "+120", 2.2},
		{"Negative string", "-110", 1.0 + 100.0/110.0},
		{"Padded string", "  150 ", 2.5},
		{"Integral decimal string", "200.0", 3.0},
		{"JSON number", json.Number("-150"), 1.0 + 100.0/150.0},
		{"Price value", models.Price{Text: "+300"}, 4.0},
		{"Numeric price truncated", models.NumericPriceOf("-110.5"), 1.0 + 100.0/110.0},
		{"Fractional JSON number truncated", json.Number("150.9"), 2.5},
		{"Price pointer", models.PriceOf("-120"), 1.0 + 100.0/120.0},
		{"Float truncated", 150.9, 2.5},
		{"int64", int64(250), 3.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AmericanToDecimal(tt.input)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, tolerance)
		})
	}
}

func TestAmericanToDecimalRejectsInvalid(t *testing.T) {
	var nilPrice *models.Price

	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"zero", 0},
		{"zero string", "0"},
		{"empty string", ""},
		{"text", "even"},
		{"fractional text", "110.5"},
		{"NaN", math.NaN()},
		{"infinity", math.Inf(1)},
		{"bool", true},
		{"nil price pointer", nilPrice},
		{"fractional quoted price", models.PriceOf("-110.5")},
		{"numeric price truncating to zero", models.NumericPriceOf("0.4")},
		{"float rounding to zero", 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AmericanToDecimal(tt.input)
			assert.False(t, ok)
			assert.Zero(t, got)
		})
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	for _, american := range []int{-10000, -500, -200, -150, -110, -101, 100, 101, 110, 150, 200, 500, 10000} {
		dec, ok := AmericanToDecimal(american)
		require.True(t, ok)

		back, err := DecimalToAmerican(dec)
		require.NoError(t, err)
		assert.Equal(t, american, back, "round trip for %d", american)
	}
}

func TestDecimalToAmericanInvalid(t *testing.T) {
	_, err := DecimalToAmerican(1.0)
	assert.Error(t, err)

	_, err = DecimalToAmerican(0.5)
	assert.Error(t, err)
}

func TestExpectedValueMonotonicInProbability(t *testing.T) {
	dec, ok := AmericanToDecimal(-110)
	require.True(t, ok)

	previous := ExpectedValue(0, dec)
	for p := 0.05; p <= 1.0; p += 0.05 {
		current := ExpectedValue(p, dec)
		assert.Greater(t, current, previous)
		previous = current
	}
}

func TestSelectionPriceFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    float64
		ok      bool
	}{
		{"integral number", `{"player":"A","market_price":-110}`, 1.0 + 100.0/110.0, true},
		{"fractional number truncates", `{"player":"A","market_price":-110.5}`, 1.0 + 100.0/110.0, true},
		{"positive fractional number", `{"player":"A","market_price":150.9}`, 2.5, true},
		{"signed string", `{"player":"A","market_price":"+120"}`, 2.2, true},
		{"fractional string", `{"player":"A","market_price":"-110.5"}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sel models.Selection
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &sel))
			require.NotNil(t, sel.MarketPrice)

			got, ok := AmericanToDecimal(sel.MarketPrice)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, tolerance)
		})
	}
}

func TestNumericPriceMatchesFloat(t *testing.T) {
	var sel models.Selection
	require.NoError(t, json.Unmarshal([]byte(`{"player":"A","market_price":-110.5}`), &sel))

	fromJSON, ok := AmericanToDecimal(sel.MarketPrice)
	require.True(t, ok)
	fromFloat, ok := AmericanToDecimal(-110.5)
	require.True(t, ok)
	assert.Equal(t, fromFloat, fromJSON)

	encoded, err := json.Marshal(sel.MarketPrice)
	require.NoError(t, err)
	assert.Equal(t, "-110.5", string(encoded))
}

// Package oddsmath converts between American and decimal odds formats.
package oddsmath

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourusername/clever-parlay/internal/models"
)

// ParseAmerican reads an American price from any numeric or textual form.
// Numbers, including JSON number tokens, are truncated toward zero;
// quoted text must hold an integral value.
// It reports false for unparseable input and for zero, which is not a price.
func ParseAmerican(v any) (int, bool) {
	var american int64

	switch value := v.(type) {
	case nil:
		return 0, false
	case int:
		american = int64(value)
	case int32:
		american = int64(value)
	case int64:
		american = value
	case float32:
		return ParseAmerican(float64(value))
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, false
		}
		american = int64(value)
	case json.Number:
		return parseAmericanNumber(string(value))
	case models.Price:
		return parsePrice(value)
	case *models.Price:
		if value == nil {
			return 0, false
		}
		return parsePrice(*value)
	case string:
		return parseAmericanText(value)
	default:
		return 0, false
	}

	if american == 0 {
		return 0, false
	}
	return int(american), true
}

func parsePrice(p models.Price) (int, bool) {
	if p.Numeric {
		return parseAmericanNumber(p.Text)
	}
	return parseAmericanText(p.Text)
}

// parseAmericanNumber truncates a numeric token toward zero, like a float cast
func parseAmericanNumber(text string) (int, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return toAmerican(d.Truncate(0))
}

func parseAmericanText(text string) (int, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "+")
	if text == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(text)
	if err != nil || !d.IsInteger() {
		return 0, false
	}
	return toAmerican(d)
}

func toAmerican(d decimal.Decimal) (int, bool) {
	if d.IsZero() || !d.BigInt().IsInt64() {
		return 0, false
	}
	return int(d.IntPart()), true
}

// AmericanToDecimal converts an American price to a decimal payout multiplier
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
// The second return is false when the price cannot be parsed.
func AmericanToDecimal(v any) (float64, bool) {
	american, ok := ParseAmerican(v)
	if !ok {
		return 0, false
	}

	if american > 0 {
		return 1.0 + float64(american)/100.0, true
	}
	return 1.0 + 100.0/float64(-american), true
}

// DecimalToAmerican converts decimal odds to American odds
// Decimal 2.50 → American +150
// Decimal 1.67 → American -150
func DecimalToAmerican(dec float64) (int, error) {
	if dec <= 1.0 {
		return 0, fmt.Errorf("invalid decimal odds: must be > 1.0")
	}

	if dec >= 2.0 {
		return int(math.Round((dec - 1.0) * 100.0)), nil
	}
	return int(math.Round(-100.0 / (dec - 1.0))), nil
}

// ExpectedValue returns the expected profit per unit staked
func ExpectedValue(probability, dec float64) float64 {
	return probability*dec - 1.0
}

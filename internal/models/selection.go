package models

import (
	"encoding/json"
	"regexp"
	"strings"
)

var jsonNumberPattern = regexp.MustCompile(`^-?\d+(\.\d+)?([eE][+-]?\d+)?$`)

// Price holds a market price exactly as the caller supplied it.
// It accepts a JSON number or a JSON string ("+120", "-110", "150").
// Numeric is set when the price arrived as a JSON number token.
type Price struct {
	Text    string
	Numeric bool
}

// UnmarshalJSON accepts both numeric and quoted prices
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price{Text: strings.TrimSpace(s)}
		return nil
	}
	*p = Price{Text: raw, Numeric: jsonNumberPattern.MatchString(raw)}
	return nil
}

// MarshalJSON writes numeric prices as numbers and anything else as a string
func (p Price) MarshalJSON() ([]byte, error) {
	if p.Numeric && jsonNumberPattern.MatchString(p.Text) {
		return []byte(p.Text), nil
	}
	return json.Marshal(p.Text)
}

// String returns the raw price text
func (p Price) String() string {
	return p.Text
}

// Selection is a single candidate parlay leg
type Selection struct {
	Player      string   `json:"player" validate:"required"`
	Market      string   `json:"market,omitempty"`
	ModelProb   *float64 `json:"model_prob" validate:"omitempty,gte=0,lte=1"`
	MarketPrice *Price   `json:"market_price"`
}

// EnrichedSelection is a Selection with its decimal payout and single-leg EV.
// Decimal and EVPerUnit stay nil when their inputs are missing or malformed.
type EnrichedSelection struct {
	Selection
	Decimal   *float64 `json:"decimal"`
	EVPerUnit *float64 `json:"ev_per_unit"`
}

// HasEV reports whether the selection carries a defined expected value
func (e *EnrichedSelection) HasEV() bool {
	return e.EVPerUnit != nil
}

func (e EnrichedSelection) clone() EnrichedSelection {
	e.ModelProb = copyFloat(e.ModelProb)
	e.Decimal = copyFloat(e.Decimal)
	e.EVPerUnit = copyFloat(e.EVPerUnit)
	if e.MarketPrice != nil {
		price := *e.MarketPrice
		e.MarketPrice = &price
	}
	return e
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float64(*v)
}

// GetModelProb returns the model probability or 0 if absent
func (e *EnrichedSelection) GetModelProb() float64 {
	if e.ModelProb == nil {
		return 0
	}
	return *e.ModelProb
}

// GetDecimal returns the decimal payout or 1.0 if absent, so a leg without a
// price contributes nothing multiplicatively to a parlay payout
func (e *EnrichedSelection) GetDecimal() float64 {
	if e.Decimal == nil || *e.Decimal == 0 {
		return 1.0
	}
	return *e.Decimal
}

// Float64 returns a pointer to v, used for optional numeric fields
func Float64(v float64) *float64 {
	return &v
}

// PriceOf returns a pointer to a Price built from its textual form
func PriceOf(v string) *Price {
	return &Price{Text: v}
}

// NumericPriceOf returns a pointer to a Price that arrived as a JSON number
func NumericPriceOf(v string) *Price {
	return &Price{Text: v, Numeric: true}
}

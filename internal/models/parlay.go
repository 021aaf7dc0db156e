package models

// Default request values for parlay suggestions
const (
	DefaultMaxLegs = 6
	DefaultTopK    = 20
)

// Combination is a distinct subset of enriched selections priced as one parlay
type Combination struct {
	Legs          []string `json:"legs"`
	ImpliedPayout float64  `json:"implied_payout"`
	JointProb     float64  `json:"joint_prob"`
	EVPerUnit     float64  `json:"ev_per_unit"`
}

// Size returns the number of legs in the combination
func (c *Combination) Size() int {
	return len(c.Legs)
}

// RankedResult is the response of a single suggestion request
type RankedResult struct {
	Selected          []EnrichedSelection `json:"selected"`
	ParlaySuggestions []Combination       `json:"parlay_suggestions"`
}

// EmptyRankedResult returns a result whose slices encode as [] rather than null
func EmptyRankedResult() RankedResult {
	return RankedResult{
		Selected:          []EnrichedSelection{},
		ParlaySuggestions: []Combination{},
	}
}

// Clone returns a deep copy that shares no slices or pointers with r.
// Nil slices stay nil so the encoded shape is unchanged.
func (r RankedResult) Clone() RankedResult {
	out := RankedResult{}
	if r.Selected != nil {
		out.Selected = make([]EnrichedSelection, len(r.Selected))
		for i, sel := range r.Selected {
			out.Selected[i] = sel.clone()
		}
	}
	if r.ParlaySuggestions != nil {
		out.ParlaySuggestions = make([]Combination, len(r.ParlaySuggestions))
		for i, combo := range r.ParlaySuggestions {
			combo.Legs = append([]string(nil), combo.Legs...)
			out.ParlaySuggestions[i] = combo
		}
	}
	return out
}

// SuggestRequest is the caller-facing request shape. Nil MaxLegs and TopK
// fall back to DefaultMaxLegs and DefaultTopK.
type SuggestRequest struct {
	Selections []Selection `json:"selections" validate:"dive"`
	MaxLegs    *int        `json:"max_legs,omitempty"`
	TopK       *int        `json:"top_k,omitempty"`
}

// GetMaxLegs returns the requested max legs or the default
func (r *SuggestRequest) GetMaxLegs() int {
	if r.MaxLegs == nil {
		return DefaultMaxLegs
	}
	return *r.MaxLegs
}

// GetTopK returns the requested top-k or the default
func (r *SuggestRequest) GetTopK() int {
	if r.TopK == nil {
		return DefaultTopK
	}
	return *r.TopK
}

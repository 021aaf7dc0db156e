// Package parlay builds and ranks multi-leg parlays from individual selections.
//
// Enumeration is combinatorial: n selections and m legs produce
// sum(C(n, r)) for r in 1..m combinations. Nothing in this package caps that;
// callers bound max legs and the number of selections.
package parlay

import (
	"sort"

	"github.com/yourusername/clever-parlay/internal/models"
	"github.com/yourusername/clever-parlay/internal/oddsmath"
)

// Suggest enriches the selections, enumerates every combination of up to
// maxLegs legs and returns the topK combinations by expected value.
// It performs no I/O and does not modify its input.
func Suggest(selections []models.Selection, maxLegs, topK int) models.RankedResult {
	if len(selections) == 0 {
		return models.EmptyRankedResult()
	}

	sorted := SortSelections(Enrich(selections))
	combos := Rank(Enumerate(sorted, maxLegs))

	return models.RankedResult{
		Selected:          sorted,
		ParlaySuggestions: truncate(combos, topK),
	}
}

// Enrich computes the decimal payout and single-leg EV of every selection.
// Missing or malformed inputs leave the derived fields nil.
func Enrich(selections []models.Selection) []models.EnrichedSelection {
	enriched := make([]models.EnrichedSelection, 0, len(selections))
	for _, s := range selections {
		e := models.EnrichedSelection{Selection: s}

		if s.MarketPrice != nil {
			if dec, ok := oddsmath.AmericanToDecimal(*s.MarketPrice); ok {
				e.Decimal = models.Float64(dec)
			}
		}
		if e.Decimal != nil && s.ModelProb != nil {
			e.EVPerUnit = models.Float64(oddsmath.ExpectedValue(*s.ModelProb, *e.Decimal))
		}

		enriched = append(enriched, e)
	}
	return enriched
}

// SortSelections orders selections with a defined EV first, highest EV first.
// Ties keep their arrival order. The input slice is not modified.
func SortSelections(enriched []models.EnrichedSelection) []models.EnrichedSelection {
	sorted := make([]models.EnrichedSelection, len(enriched))
	copy(sorted, enriched)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.HasEV() != b.HasEV() {
			return a.HasEV()
		}
		if !a.HasEV() {
			return false
		}
		return *a.EVPerUnit > *b.EVPerUnit
	})
	return sorted
}

// Enumerate prices every distinct subset of 1..min(maxLegs, len(sorted)) legs.
// Subsets are produced by size, then in lexicographic index order.
func Enumerate(sorted []models.EnrichedSelection, maxLegs int) []models.Combination {
	n := len(sorted)
	if maxLegs > n {
		maxLegs = n
	}
	if maxLegs < 1 {
		return []models.Combination{}
	}

	combos := make([]models.Combination, 0, CountCombinations(n, maxLegs))
	for r := 1; r <= maxLegs; r++ {
		forEachSubset(n, r, func(indices []int) {
			combos = append(combos, price(sorted, indices))
		})
	}
	return combos
}

// Rank orders combinations by descending EV. Equal EVs keep enumeration order.
func Rank(combos []models.Combination) []models.Combination {
	ranked := make([]models.Combination, len(combos))
	copy(ranked, combos)

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankKey(&ranked[i].EVPerUnit) > rankKey(&ranked[j].EVPerUnit)
	})
	return ranked
}

// CountCombinations returns sum(C(n, r)) for r in 1..min(m, n)
func CountCombinations(n, m int) int {
	if m > n {
		m = n
	}
	total := 0
	binom := 1
	for r := 1; r <= m; r++ {
		binom = binom * (n - r + 1) / r
		total += binom
	}
	return total
}

// rankKey places an undefined EV at break-even rather than dropping it
func rankKey(ev *float64) float64 {
	if ev == nil {
		return 0
	}
	return *ev
}

func price(sorted []models.EnrichedSelection, indices []int) models.Combination {
	legs := make([]string, 0, len(indices))
	jointProb := 1.0
	payout := 1.0

	for _, idx := range indices {
		leg := &sorted[idx]
		legs = append(legs, leg.Player)
		jointProb *= leg.GetModelProb()
		payout *= leg.GetDecimal()
	}

	return models.Combination{
		Legs:          legs,
		ImpliedPayout: payout,
		JointProb:     jointProb,
		EVPerUnit:     oddsmath.ExpectedValue(jointProb, payout),
	}
}

// forEachSubset calls fn with every r-subset of [0, n) in lexicographic order.
// The indices slice is reused between calls.
func forEachSubset(n, r int, fn func(indices []int)) {
	indices := make([]int, r)
	for i := range indices {
		indices[i] = i
	}

	for {
		fn(indices)

		i := r - 1
		for i >= 0 && indices[i] == n-r+i {
			i--
		}
		if i < 0 {
			return
		}
		indices[i]++
		for j := i + 1; j < r; j++ {
			indices[j] = indices[j-1] + 1
		}
	}
}

func truncate(combos []models.Combination, topK int) []models.Combination {
	if topK <= 0 {
		return []models.Combination{}
	}
	if topK < len(combos) {
		return combos[:topK]
	}
	return combos
}

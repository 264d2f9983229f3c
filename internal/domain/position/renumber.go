package position

import "github.com/shopspring/decimal"

// run is a contiguous index range [lo, hi] of a sorted sibling slice.
type run struct {
	lo, hi int
}

func (r run) size() int {
	return r.hi - r.lo + 1
}

// renumber respreads the run around the cramped pair [lo, hi]. The run first
// absorbs neighbors closer than MinSpacing, then widens until the fixed outer
// neighbors leave the spread spacing per slot. It reaches a collection end
// only when the interior cannot hold MinSpacing. Siblings outside the run
// keep their positions. sorted is updated in place and the changed siblings
// returned.
func renumber(sorted []Sibling, lo, hi int, params Params) []Sibling {
	r := absorb(sorted, run{lo: lo, hi: hi}, params.MinSpacing)
	target := params.spread()
	for {
		step, ok := spacing(sorted, r)
		if !ok || step.GreaterThanOrEqual(target) {
			break
		}
		next, interior, ok := widen(sorted, r)
		if !ok || (!interior && step.GreaterThanOrEqual(params.MinSpacing)) {
			break
		}
		r = next
	}
	return assign(sorted, r, params)
}

// absorb grows r over every adjacent sibling closer than limit, stopping
// one short of either collection end.
func absorb(sorted []Sibling, r run, limit decimal.Decimal) run {
	for {
		grown := false
		if r.lo > 1 && sorted[r.lo].Position.Sub(sorted[r.lo-1].Position).LessThan(limit) {
			r.lo--
			grown = true
		}
		if r.hi < len(sorted)-2 && sorted[r.hi+1].Position.Sub(sorted[r.hi].Position).LessThan(limit) {
			r.hi++
			grown = true
		}
		if !grown {
			return r
		}
	}
}

// spacing returns the even step available to r between its outer
// neighbors. ok is false when r touches either end of the collection.
func spacing(sorted []Sibling, r run) (decimal.Decimal, bool) {
	if r.lo == 0 || r.hi == len(sorted)-1 {
		return decimal.Zero, false
	}
	lower := sorted[r.lo-1].Position
	upper := sorted[r.hi+1].Position
	return upper.Sub(lower).Div(decimal.NewFromInt(int64(r.size() + 1))), true
}

// widen grows r by one sibling. interior reports that the grown run keeps
// both outer neighbors; among such options the one with the wider step wins.
func widen(sorted []Sibling, r run) (next run, interior, ok bool) {
	var candidates []run
	if r.lo > 0 {
		candidates = append(candidates, run{lo: r.lo - 1, hi: r.hi})
	}
	if r.hi < len(sorted)-1 {
		candidates = append(candidates, run{lo: r.lo, hi: r.hi + 1})
	}
	if len(candidates) == 0 {
		return r, false, false
	}

	best := -1
	var bestStep decimal.Decimal
	for i, c := range candidates {
		step, ok := spacing(sorted, c)
		if !ok {
			continue
		}
		if best < 0 || step.GreaterThan(bestStep) {
			best, bestStep = i, step
		}
	}
	if best < 0 {
		// Every option reaches an end; prefer spreading toward the top.
		return candidates[len(candidates)-1], false, true
	}
	return candidates[best], true, true
}

func assign(sorted []Sibling, r run, params Params) []Sibling {
	k := r.size()
	next := make([]decimal.Decimal, k)

	switch {
	case r.lo > 0 && r.hi < len(sorted)-1:
		lower := sorted[r.lo-1].Position
		step := sorted[r.hi+1].Position.Sub(lower).Div(decimal.NewFromInt(int64(k + 1)))
		for j := range k {
			next[j] = lower.Add(step.Mul(decimal.NewFromInt(int64(j + 1)))).Truncate(Scale)
		}
	case r.lo > 0:
		lower := sorted[r.lo-1].Position
		step := params.Gap
		if lower.Add(step.Mul(decimal.NewFromInt(int64(k + 1)))).GreaterThan(ceiling) {
			step = ceiling.Sub(lower).Div(decimal.NewFromInt(int64(k + 1)))
		}
		for j := range k {
			next[j] = lower.Add(step.Mul(decimal.NewFromInt(int64(j + 1)))).Truncate(Scale)
		}
	case r.hi < len(sorted)-1:
		upper := sorted[r.hi+1].Position
		step := params.Gap
		if upper.Sub(step.Mul(decimal.NewFromInt(int64(k + 1)))).LessThan(floor) {
			step = upper.Sub(floor).Div(decimal.NewFromInt(int64(k + 1)))
		}
		for j := range k {
			next[j] = upper.Sub(step.Mul(decimal.NewFromInt(int64(k - j)))).Truncate(Scale)
		}
	default:
		for j := range k {
			next[j] = params.Gap.Mul(decimal.NewFromInt(int64(j + 1)))
		}
	}

	var changed []Sibling
	for j := range k {
		idx := r.lo + j
		if sorted[idx].Position.Equal(next[j]) {
			continue
		}
		sorted[idx].Position = next[j]
		changed = append(changed, sorted[idx])
	}
	return changed
}

// Package position assigns fractional positions to items inside an ordered
// collection. Positions are fixed-point decimals with Scale fractional digits.
package position

import (
	"cmp"
	"errors"
	"slices"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits a position carries.
const Scale = 6

var (
	// Unit is the smallest representable distance between two positions.
	Unit = decimal.New(1, -Scale)
	// Epsilon is the smallest gap that still has a representable midpoint.
	Epsilon = decimal.New(2, -Scale)

	maxMagnitude = decimal.New(1, 12)
	// ceiling and floor are the largest and smallest storable positions.
	ceiling = maxMagnitude.Sub(Unit)
	floor   = ceiling.Neg()

	two         = decimal.NewFromInt(2)
	spreadParts = decimal.NewFromInt(4)
)

var (
	// ErrOutOfRange indicates a desired position outside the storable range.
	ErrOutOfRange = errors.New("position out of range")
	// ErrNoRoom indicates the last sibling already sits at the top of the range.
	ErrNoRoom = errors.New("no room after the last position")
)

// Params tunes spacing for appends and renumbering.
type Params struct {
	// Gap separates appended items and items spread past a collection end.
	Gap decimal.Decimal
	// MinSpacing is the smallest spacing a renumbered run may be left with.
	MinSpacing decimal.Decimal
}

// DefaultParams returns a gap of 1000 and a minimum renumber spacing of 1.
func DefaultParams() Params {
	return Params{
		Gap:        decimal.NewFromInt(1000),
		MinSpacing: decimal.NewFromInt(1),
	}
}

func (p Params) normalized() Params {
	def := DefaultParams()
	if p.Gap.LessThan(Epsilon) {
		p.Gap = def.Gap
	}
	if p.MinSpacing.LessThan(Epsilon) {
		p.MinSpacing = Epsilon
	}
	if p.MinSpacing.GreaterThan(p.Gap) {
		p.MinSpacing = p.Gap
	}
	return p
}

// spread is the spacing a renumbered run is widened toward.
func (p Params) spread() decimal.Decimal {
	return decimal.Max(p.Gap.Div(spreadParts), p.MinSpacing)
}

// Sibling is a positioned item already stored in the collection.
type Sibling struct {
	ID       string
	Position decimal.Decimal
}

// Placement is the outcome of placing one item.
type Placement struct {
	Position decimal.Decimal
	// Collided reports that the desired position was already held.
	Collided bool
	// Renumbered lists siblings whose stored position must change.
	Renumbered []Sibling
}

// Compare orders siblings by position, then by id.
func Compare(a, b Sibling) int {
	if c := a.Position.Cmp(b.Position); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Sort orders siblings in place by position, then by id.
func Sort(siblings []Sibling) {
	slices.SortFunc(siblings, Compare)
}

// Normalize truncates p to Scale and checks that it can be stored.
func Normalize(p decimal.Decimal) (decimal.Decimal, error) {
	p = p.Truncate(Scale)
	if p.Abs().GreaterThanOrEqual(maxMagnitude) {
		return decimal.Zero, ErrOutOfRange
	}
	return p, nil
}

// ToUnits converts a position to its integer storage form.
func ToUnits(p decimal.Decimal) int64 {
	return p.Shift(Scale).IntPart()
}

// FromUnits converts the integer storage form back to a position.
func FromUnits(units int64) decimal.Decimal {
	return decimal.New(units, -Scale)
}

// Append returns the position after the last sibling.
func Append(siblings []Sibling, params Params) (decimal.Decimal, error) {
	params = params.normalized()
	if len(siblings) == 0 {
		return params.Gap, nil
	}
	last := siblings[0].Position
	for _, s := range siblings[1:] {
		if s.Position.GreaterThan(last) {
			last = s.Position
		}
	}
	if ceiling.Sub(last).LessThan(Epsilon) {
		return decimal.Zero, ErrNoRoom
	}
	return after(last, params), nil
}

// Place resolves desired against siblings. The moving item must not be
// among siblings. A free desired position is returned unchanged. A held one
// ranks the item right after its holder, bisecting toward the next sibling
// and renumbering the cramped run at most once. Results stay within the
// storable range.
func Place(siblings []Sibling, desired decimal.Decimal, params Params) (Placement, error) {
	desired, err := Normalize(desired)
	if err != nil {
		return Placement{}, err
	}
	params = params.normalized()

	sorted := slices.Clone(siblings)
	Sort(sorted)

	holder := -1
	for i, s := range sorted {
		if s.Position.Equal(desired) {
			holder = i
		}
	}
	if holder < 0 {
		return Placement{Position: desired}, nil
	}

	if holder == len(sorted)-1 {
		placement := Placement{Collided: true}
		if ceiling.Sub(sorted[holder].Position).LessThan(Epsilon) {
			placement.Renumbered = renumber(sorted, holder, holder, params)
		}
		placement.Position = after(sorted[holder].Position, params)
		return placement, nil
	}

	placement := Placement{Collided: true}
	lower, upper := sorted[holder].Position, sorted[holder+1].Position
	if upper.Sub(lower).LessThan(Epsilon) {
		placement.Renumbered = renumber(sorted, holder, holder+1, params)
		lower, upper = sorted[holder].Position, sorted[holder+1].Position
	}
	placement.Position = midpoint(lower, upper)
	return placement, nil
}

// after returns the position one Gap past p, or halfway to the ceiling when
// a full Gap would leave the storable range.
func after(p decimal.Decimal, params Params) decimal.Decimal {
	if next := p.Add(params.Gap); next.LessThanOrEqual(ceiling) {
		return next
	}
	return midpoint(p, ceiling)
}

func midpoint(a, b decimal.Decimal) decimal.Decimal {
	return a.Add(b).Div(two).Truncate(Scale)
}

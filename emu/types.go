package emu

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error classes. Package-specific sentinels wrap one of these.
var (
	// ErrStructural marks an inconsistent model definition.
	// It is never retried: the analysis run must abort.
	ErrStructural = errors.New("emu: structural error")

	// ErrNumeric marks a failed numeric evaluation (singular system, NaN/Inf).
	// It is local to one flux trial.
	ErrNumeric = errors.New("emu: numeric error")

	// ErrBadUnit is returned for malformed unit names or masks.
	ErrBadUnit = fmt.Errorf("%w: malformed unit", ErrStructural)
)

// InputNetwork is the network index of the labeled-input table.
const InputNetwork = -1

// Unit is an elementary metabolite unit: a metabolite and the subset of its
// atoms being tracked. The mask is stored as a string of '0' and '1' so that
// Unit stays comparable.
type Unit struct {
	name string
	mask string
}

// NewUnit builds a unit from a metabolite name and a '0'/'1' mask.
func NewUnit(name, mask string) (Unit, error) {
	if name == "" || strings.ContainsAny(name, ": \t") {
		return Unit{}, fmt.Errorf("%w: name %q", ErrBadUnit, name)
	}
	if mask == "" {
		return Unit{}, fmt.Errorf("%w: empty mask for %q", ErrBadUnit, name)
	}
	for _, c := range mask {
		if c != '0' && c != '1' {
			return Unit{}, fmt.Errorf("%w: mask %q of %q", ErrBadUnit, mask, name)
		}
	}

	return Unit{name: name, mask: mask}, nil
}

// UnitFromPositions builds a unit of an n-atom metabolite tracking the given
// zero-based positions.
func UnitFromPositions(name string, n int, positions ...int) (Unit, error) {
	if n <= 0 {
		return Unit{}, fmt.Errorf("%w: %q has %d atoms", ErrBadUnit, name, n)
	}
	b := []byte(strings.Repeat("0", n))
	for _, p := range positions {
		if p < 0 || p >= n {
			return Unit{}, fmt.Errorf("%w: position %d outside %q[0,%d)", ErrBadUnit, p, name, n)
		}
		b[p] = '1'
	}

	return NewUnit(name, string(b))
}

// ParseUnit parses the text form "NAME:0101".
func ParseUnit(s string) (Unit, error) {
	name, mask, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q lacks ':'", ErrBadUnit, s)
	}

	return NewUnit(name, mask)
}

// Name returns the metabolite name.
func (u Unit) Name() string { return u.name }

// Mask returns the tracked-position mask.
func (u Unit) Mask() string { return u.mask }

// Len returns the number of atoms of the metabolite.
func (u Unit) Len() int { return len(u.mask) }

// Tracked reports whether atom i is tracked.
func (u Unit) Tracked(i int) bool { return i >= 0 && i < len(u.mask) && u.mask[i] == '1' }

// Size returns the number of tracked atoms.
func (u Unit) Size() int { return strings.Count(u.mask, "1") }

// IsZero reports whether u is the zero Unit.
func (u Unit) IsZero() bool { return u.name == "" }

// Less orders units by name, then by mask.
func (u Unit) Less(o Unit) bool {
	if u.name != o.name {
		return u.name < o.name
	}

	return u.mask < o.mask
}

// String returns "NAME:mask".
func (u Unit) String() string { return u.name + ":" + u.mask }

// Substrate is a unit with its stoichiometric coefficient.
type Substrate struct {
	Unit        Unit
	Coefficient float64
}

// Reaction is one EMU reaction: Right is produced from Left at
// Rate × flux[ID].
type Reaction struct {
	ID    int
	Left  []Substrate
	Right Substrate
	Rate  float64
}

// IsCondensation reports whether the reaction merges two or more units.
func (r Reaction) IsCondensation() bool { return len(r.Left) > 1 }

// Key returns the structural identity of r: id, left units and right unit.
// Two reactions with the same key differ only in rate.
func (r Reaction) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", r.ID)
	for i, s := range r.Left {
		if i > 0 {
			b.WriteByte('+')
		}
		b.WriteString(s.Unit.String())
	}
	b.WriteString(">")
	b.WriteString(r.Right.Unit.String())

	return b.String()
}

// String renders r as "#id A:01 + B:10 -> C:11 (rate)".
func (r Reaction) String() string {
	parts := make([]string, len(r.Left))
	for i, s := range r.Left {
		parts[i] = s.Unit.String()
	}

	return fmt.Sprintf("#%d %s -> %s (%g)", r.ID, strings.Join(parts, " + "), r.Right.Unit, r.Rate)
}

// SortLeft orders the left units canonically.
func (r *Reaction) SortLeft() {
	sort.SliceStable(r.Left, func(i, j int) bool { return r.Left[i].Unit.Less(r.Left[j].Unit) })
}

// Network is a list of EMU reactions whose products share one size.
type Network []Reaction

// Size returns the product size of the network, or 0 when empty.
func (n Network) Size() int {
	if len(n) == 0 {
		return 0
	}

	return n[0].Right.Unit.Size()
}

// SortUnits sorts a unit slice in place and returns it.
func SortUnits(units []Unit) []Unit {
	sort.Slice(units, func(i, j int) bool { return units[i].Less(units[j]) })

	return units
}

package derive

import (
	"context"
	"errors"
	"fmt"

	"github.com/katalvlaran/emuflux/emu"
)

// Sentinel errors for EMU reaction derivation.
var (
	// ErrAtomNotMapped is returned when a tracked product atom has no
	// precursor on the left side of its reaction.
	ErrAtomNotMapped = fmt.Errorf("%w: derive: atom has no precursor", emu.ErrStructural)

	// ErrMaskLength is returned when a unit's mask length differs from the
	// atom formula of the metabolite in a producing reaction.
	ErrMaskLength = fmt.Errorf("%w: derive: mask length does not match formula", emu.ErrStructural)

	// ErrUnitLimit is returned when more units than WithMaxUnits allows
	// are reached.
	ErrUnitLimit = errors.New("derive: unit limit exceeded")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("derive: invalid option supplied")
)

// Option configures derivation via functional arguments.
type Option func(*Options)

// Options holds parameters and callbacks for Reactions.
type Options struct {
	// Ctx allows cancellation of large walks.
	Ctx context.Context

	// OnVisit is called for every unit expanded, with its BFS depth from
	// the observed set. Returning an error aborts the walk.
	OnVisit func(u emu.Unit, depth int) error

	// Sources lists metabolites that are never expanded (labeled inputs).
	Sources map[string]bool

	// MaxUnits, if > 0, bounds the number of visited units.
	MaxUnits int

	err error
}

// DefaultOptions returns Options with a background context, no hooks, no
// sources and no unit limit.
func DefaultOptions() Options {
	return Options{
		Ctx:     context.Background(),
		OnVisit: func(emu.Unit, int) error { return nil },
		Sources: map[string]bool{},
	}
}

// WithContext sets a custom context for cancellation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithOnVisit registers a callback run for every expanded unit.
func WithOnVisit(fn func(u emu.Unit, depth int) error) Option {
	return func(o *Options) {
		if fn != nil {
			o.OnVisit = fn
		}
	}
}

// WithSources marks metabolites as labeled inputs: units of these
// metabolites are leaves of the walk even if some reaction produces them.
func WithSources(names ...string) Option {
	return func(o *Options) {
		for _, n := range names {
			o.Sources[n] = true
		}
	}
}

// WithMaxUnits bounds the number of visited units.
//
//	n > 0: limit to n units
//	n == 0: no limit
//	n < 0: invalid option → ErrOptionViolation
func WithMaxUnits(n int) Option {
	return func(o *Options) {
		if n < 0 {
			o.err = fmt.Errorf("%w: MaxUnits cannot be negative (%d)", ErrOptionViolation, n)
			return
		}
		o.MaxUnits = n
	}
}

package symbolic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/matrix"
)

// savedUnit records where a solved unit lives. useful is its index in the
// owning network's Useful list, -1 until a later network consumes it.
type savedUnit struct {
	network int
	row     int
	useful  int
}

// generator holds build-time state across networks.
type generator struct {
	params   Parameters
	known    map[emu.Unit]*savedUnit
	networks []NetworkData
	covered  []bool
}

// Generate compiles p into an immutable Model.
//
// Implementation:
//   - Stage 1: validate the flux layout and correction matrices.
//   - Stage 2: seed the known table with the inputs (all useful).
//   - Stage 3: per network, in order: classify units, build symbolic A/B,
//     map finals, differentiate, then publish the network's unknowns as
//     known for the networks that follow.
//   - Stage 4: fail if any measurement slot was never mapped.
//
// Errors: flux.ErrBadLayout, ErrBadCorrection, ErrUnknownFlux,
// ErrUnresolvedUnit, ErrDuplicateConvolution, ErrMeasurementNotSimulated.
func Generate(p Parameters) (*Model, error) {
	if err := p.Layout.Validate(); err != nil {
		return nil, err
	}
	for i, m := range p.Measurements {
		if err := checkCorrection(m); err != nil {
			return nil, fmt.Errorf("measurement %d: %w", i, err)
		}
	}

	g := &generator{
		params:   p,
		known:    make(map[emu.Unit]*savedUnit, len(p.Inputs)),
		networks: make([]NetworkData, 0, len(p.Networks)),
		covered:  make([]bool, len(p.Measurements)),
	}
	for i, u := range p.Inputs {
		if _, dup := g.known[u]; !dup {
			g.known[u] = &savedUnit{network: emu.InputNetwork, row: i, useful: i}
		}
	}

	for ni, net := range p.Networks {
		nd, err := g.network(ni, net)
		if err != nil {
			return nil, fmt.Errorf("network %d (size %d): %w", ni, net.Size(), err)
		}
		g.networks = append(g.networks, nd)
		for row, u := range nd.Unknown {
			if _, ok := g.known[u]; !ok {
				g.known[u] = &savedUnit{network: ni, row: row, useful: -1}
			}
		}
	}

	for slot, ok := range g.covered {
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMeasurementNotSimulated, p.Measurements[slot].Unit)
		}
	}

	measured := make([]emu.Unit, len(p.Measurements))
	for i, m := range p.Measurements {
		measured[i] = m.Unit
	}
	inputs := make([]emu.Unit, len(p.Inputs))
	copy(inputs, p.Inputs)

	return &Model{
		Networks:     g.networks,
		Inputs:       inputs,
		Measurements: measured,
		Layout:       p.Layout,
		Derivatives:  p.Derivatives,
	}, nil
}

// checkCorrection validates the shape and values of a correction matrix.
func checkCorrection(m Measurement) error {
	if m.Correction == nil {
		return nil
	}
	want := m.Unit.Size() + 1
	if m.Correction.Rows() != want || m.Correction.Cols() != want {
		return fmt.Errorf("%w: %s needs %dx%d, got %dx%d", ErrBadCorrection, m.Unit,
			want, want, m.Correction.Rows(), m.Correction.Cols())
	}
	if err := matrix.ValidateFinite(m.Correction); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBadCorrection, m.Unit, err)
	}

	return nil
}

// use marks s useful in its owning network and returns its position.
func (g *generator) use(s *savedUnit) Position {
	if s.useful < 0 {
		owner := &g.networks[s.network]
		s.useful = len(owner.Useful)
		owner.Useful = append(owner.Useful, s.row)
	}

	return Position{Network: s.network, Index: s.useful}
}

// network builds the NetworkData of one network.
func (g *generator) network(ni int, net emu.Network) (NetworkData, error) {
	nd := NetworkData{MIDSize: net.Size() + 1}
	produced := make(map[emu.Unit]bool, len(net))
	for _, r := range net {
		produced[r.Right.Unit] = true
	}

	unknownIdx := make(map[emu.Unit]int)
	knownIdx := make(map[emu.Unit]int)
	convIdx := make(map[string]int)
	convOf := make([]int, len(net)) // convolution index per condensation

	addUnknown := func(u emu.Unit) {
		if _, ok := unknownIdx[u]; !ok {
			unknownIdx[u] = len(nd.Unknown)
			nd.Unknown = append(nd.Unknown, u)
		}
	}

	for ri, r := range net {
		if r.ID < 0 || r.ID >= g.params.Layout.Len() {
			return nd, fmt.Errorf("%w: %s", ErrUnknownFlux, r)
		}
		if !r.IsCondensation() {
			s := r.Left[0].Unit
			_, isKnown := knownIdx[s]
			_, isUnknown := unknownIdx[s]
			switch saved, ok := g.known[s]; {
			case isKnown || isUnknown:
			case ok:
				knownIdx[s] = len(nd.Known)
				nd.Known = append(nd.Known, s)
				nd.YData = append(nd.YData, g.use(saved))
			case produced[s]:
				addUnknown(s)
			default:
				return nd, fmt.Errorf("%w: %s in %s", ErrUnresolvedUnit, s, r)
			}
		} else {
			conv := Convolution{FluxID: r.ID, Elements: make([]Position, 0, len(r.Left))}
			for _, s := range r.Left {
				saved, ok := g.known[s.Unit]
				if !ok {
					return nd, fmt.Errorf("%w: %s in %s", ErrUnresolvedUnit, s.Unit, r)
				}
				conv.Elements = append(conv.Elements, g.use(saved))
			}
			key := convKey(conv)
			if _, dup := convIdx[key]; dup {
				return nd, fmt.Errorf("%w: %s", ErrDuplicateConvolution, r)
			}
			convIdx[key] = len(nd.Convolutions)
			convOf[ri] = len(nd.Convolutions)
			nd.Convolutions = append(nd.Convolutions, conv)
		}
		addUnknown(r.Right.Unit)
	}

	a, b := newCells(), newCells()
	for ri, r := range net {
		p := unknownIdx[r.Right.Unit]
		a.add(p, p, r.ID, -r.Rate)
		w := weight(r)
		if r.IsCondensation() {
			b.add(p, len(nd.Known)+convOf[ri], r.ID, -w*r.Rate)
			continue
		}
		s := r.Left[0].Unit
		if k, ok := knownIdx[s]; ok {
			b.add(p, k, r.ID, -w*r.Rate)
		} else {
			a.add(p, unknownIdx[s], r.ID, w*r.Rate)
		}
	}
	nd.A = a.entries()
	nd.B = b.entries()

	for slot, m := range g.params.Measurements {
		if row, ok := unknownIdx[m.Unit]; ok {
			nd.Finals = append(nd.Finals, FinalUnit{Unit: m.Unit, Row: row, Slot: slot, Correction: m.Correction})
			g.covered[slot] = true
		}
	}

	if g.params.Derivatives {
		nd.Derivatives = make([]Derivative, g.params.Layout.NumFree())
		for v := range nd.Derivatives {
			nd.Derivatives[v] = Derivative{
				DA: differentiate(nd.A, g.params.Layout.Partial, v),
				DB: differentiate(nd.B, g.params.Layout.Partial, v),
			}
		}
	}

	return nd, nil
}

// weight is the product of the left coefficients of r.
func weight(r emu.Reaction) float64 {
	w := 1.0
	for _, s := range r.Left {
		w *= s.Coefficient
	}

	return w
}

// convKey identifies a convolution by flux and elements.
func convKey(c Convolution) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(c.FluxID))
	for _, e := range c.Elements {
		fmt.Fprintf(&b, "|%d:%d", e.Network, e.Index)
	}

	return b.String()
}

// cell is a matrix coordinate.
type cell struct{ row, col int }

// cells accumulates flux terms per coordinate in insertion order.
type cells struct {
	terms map[cell]map[int]float64
}

func newCells() *cells { return &cells{terms: make(map[cell]map[int]float64)} }

// add accumulates coef·flux[id] into (row, col).
func (c *cells) add(row, col, id int, coef float64) {
	k := cell{row, col}
	if c.terms[k] == nil {
		c.terms[k] = make(map[int]float64)
	}
	c.terms[k][id] += coef
}

// entries returns the non-empty cells sorted by (row, col), with terms
// sorted by flux id and zero terms dropped.
func (c *cells) entries() []Entry {
	out := make([]Entry, 0, len(c.terms))
	for k, byID := range c.terms {
		e := Entry{Row: k.row, Col: k.col}
		for id, coef := range byID {
			if coef != 0 {
				e.Terms = append(e.Terms, FluxTerm{ID: id, Coefficient: coef})
			}
		}
		if len(e.Terms) == 0 {
			continue
		}
		sort.Slice(e.Terms, func(i, j int) bool { return e.Terms[i].ID < e.Terms[j].ID })
		out = append(out, e)
	}
	sortEntries(out)

	return out
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].Row != es[j].Row {
			return es[i].Row < es[j].Row
		}
		return es[i].Col < es[j].Col
	})
}

// differentiate returns ∂M/∂free[v] as constant triplets.
func differentiate(m []Entry, partial func(id, v int) float64, v int) []matrix.Triplet {
	var out []matrix.Triplet
	for _, e := range m {
		var d float64
		for _, t := range e.Terms {
			d += t.Coefficient * partial(t.ID, v)
		}
		if d != 0 {
			out = append(out, matrix.Triplet{Row: e.Row, Col: e.Col, Value: d})
		}
	}

	return out
}

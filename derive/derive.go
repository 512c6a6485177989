package derive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/network"
)

// queueItem pairs a unit with its BFS depth from the observed set.
type queueItem struct {
	unit  emu.Unit
	depth int
}

// walker encapsulates mutable derivation state.
type walker struct {
	opts      Options
	reactions []network.Reaction
	producers map[string][]int // metabolite → indices of producing reactions
	queue     []queueItem
	visited   map[emu.Unit]bool
	out       []emu.Reaction
	index     map[string]int // Reaction.Key → position in out
}

// Reactions derives the EMU reactions needed to simulate observed.
// Returns ErrOptionViolation for bad options, ErrAtomNotMapped or
// ErrMaskLength for inconsistent atom maps, ErrUnitLimit when the walk
// outgrows WithMaxUnits, the context error on cancellation, or any
// OnVisit error.
func Reactions(reactions []network.Reaction, observed []emu.Unit, opts ...Option) ([]emu.Reaction, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	w := &walker{
		opts:      o,
		reactions: reactions,
		producers: make(map[string][]int),
		visited:   make(map[emu.Unit]bool),
		index:     make(map[string]int),
	}
	for i, r := range reactions {
		if r.Type == network.MetaboliteBalance {
			continue
		}
		seen := map[string]bool{}
		for _, m := range r.Equation.Right {
			if !seen[m.Name] {
				seen[m.Name] = true
				w.producers[m.Name] = append(w.producers[m.Name], i)
			}
		}
	}
	for _, u := range observed {
		w.enqueue(u, 0)
	}

	if err := w.loop(); err != nil {
		return nil, err
	}

	return w.out, nil
}

// enqueue adds u to the queue if it has not been expanded yet.
func (w *walker) enqueue(u emu.Unit, depth int) {
	if w.visited[u] {
		return
	}
	w.queue = append(w.queue, queueItem{unit: u, depth: depth})
}

// loop processes the queue until empty, error, or cancellation.
func (w *walker) loop() error {
	for len(w.queue) > 0 {
		select {
		case <-w.opts.Ctx.Done():
			return w.opts.Ctx.Err()
		default:
		}

		item := w.queue[0]
		w.queue = w.queue[1:]
		if w.visited[item.unit] {
			continue
		}
		if err := w.visit(item); err != nil {
			return err
		}
	}

	return nil
}

// visit marks the unit, calls OnVisit and expands every producing reaction.
func (w *walker) visit(item queueItem) error {
	w.visited[item.unit] = true
	if w.opts.MaxUnits > 0 && len(w.visited) > w.opts.MaxUnits {
		return fmt.Errorf("%w: %d units", ErrUnitLimit, w.opts.MaxUnits)
	}
	if err := w.opts.OnVisit(item.unit, item.depth); err != nil {
		return fmt.Errorf("derive: OnVisit error at %s: %w", item.unit, err)
	}
	if w.opts.Sources[item.unit.Name()] {
		return nil
	}

	for _, idx := range w.producers[item.unit.Name()] {
		derived, err := Expand(w.reactions[idx], item.unit)
		if err != nil {
			return err
		}
		for _, r := range derived {
			w.add(r)
			for _, s := range r.Left {
				w.enqueue(s.Unit, item.depth+1)
			}
		}
	}

	return nil
}

// add appends r or sums its rate into an identical reaction.
func (w *walker) add(r emu.Reaction) {
	key := r.Key()
	if pos, ok := w.index[key]; ok {
		w.out[pos].Rate += r.Rate
		return
	}
	w.index[key] = len(w.out)
	w.out = append(w.out, r)
}

// molecule is one physical precursor: a single left entry or a group of
// symmetric orientations of the same metabolite.
type molecule struct {
	name  string
	alts  []network.Metabolite
	total float64
}

// molecules groups the left side of eq into physical precursors.
func molecules(eq network.Equation) []molecule {
	var out []molecule
	for _, m := range eq.Left {
		placed := false
		for i := range out {
			if out[i].name == m.Name && network.SameAtoms(out[i].alts[0].Atoms, m.Atoms) {
				out[i].alts = append(out[i].alts, m)
				out[i].total += m.Coefficient
				placed = true
				break
			}
		}
		if !placed {
			out = append(out, molecule{name: m.Name, alts: []network.Metabolite{m}, total: m.Coefficient})
		}
	}

	return out
}

// Expand derives the EMU reactions that produce u through r: one per
// occurrence of u's metabolite on the right side and per combination of
// symmetric orientations touched by the tracked atoms. Results are not
// merged; the left units of each reaction are sorted.
func Expand(r network.Reaction, u emu.Unit) ([]emu.Reaction, error) {
	mols := molecules(r.Equation)
	var out []emu.Reaction
	for _, product := range r.Equation.Right {
		if product.Name != u.Name() {
			continue
		}
		atoms := []rune(product.Atoms)
		if len(atoms) != u.Len() {
			return nil, fmt.Errorf("%w: %s vs %q in %s", ErrMaskLength, u, product.Atoms, r.Name)
		}

		// tracked letters per touched molecule, in molecule order
		letters := make(map[int][]rune)
		var touched []int
		for i, a := range atoms {
			if !u.Tracked(i) {
				continue
			}
			m := -1
			for j, mol := range mols {
				if strings.ContainsRune(mol.alts[0].Atoms, a) {
					m = j
					break
				}
			}
			if m < 0 {
				return nil, fmt.Errorf("%w: atom %q of %s in %s", ErrAtomNotMapped, a, u, r.Name)
			}
			if _, ok := letters[m]; !ok {
				touched = append(touched, m)
			}
			letters[m] = append(letters[m], a)
		}
		sort.Ints(touched)

		combos, err := orientations(mols, touched, letters)
		if err != nil {
			return nil, err
		}
		for _, c := range combos {
			er := emu.Reaction{
				ID:    r.ID,
				Left:  c.left,
				Right: emu.Substrate{Unit: u, Coefficient: product.Coefficient},
				Rate:  product.Coefficient * c.weight,
			}
			er.SortLeft()
			out = append(out, er)
		}
	}

	return out, nil
}

// combo is one choice of orientation per touched molecule.
type combo struct {
	left   []emu.Substrate
	weight float64
}

// orientations enumerates the cartesian product of orientations of the
// touched molecules, building the precursor unit for each choice.
func orientations(mols []molecule, touched []int, letters map[int][]rune) ([]combo, error) {
	combos := []combo{{weight: 1}}
	for _, mi := range touched {
		mol := mols[mi]
		next := make([]combo, 0, len(combos)*len(mol.alts))
		for _, c := range combos {
			for _, alt := range mol.alts {
				unit, err := fragment(alt, letters[mi])
				if err != nil {
					return nil, err
				}
				left := make([]emu.Substrate, len(c.left), len(c.left)+1)
				copy(left, c.left)
				left = append(left, emu.Substrate{Unit: unit, Coefficient: 1})
				next = append(next, combo{left: left, weight: c.weight * alt.Coefficient / mol.total})
			}
		}
		combos = next
	}

	return combos, nil
}

// fragment builds the unit of m tracking the given letters.
func fragment(m network.Metabolite, letters []rune) (emu.Unit, error) {
	atoms := []rune(m.Atoms)
	mask := make([]byte, len(atoms))
	for i, a := range atoms {
		mask[i] = '0'
		for _, l := range letters {
			if a == l {
				mask[i] = '1'
				break
			}
		}
	}

	return emu.NewUnit(m.Name, string(mask))
}

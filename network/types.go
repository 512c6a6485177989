package network

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// ErrInvalidReaction is returned by Validate.
var ErrInvalidReaction = errors.New("network: invalid reaction")

// ReactionType tells how a reaction takes part in flux and isotopomer balances.
type ReactionType int

const (
	// Irreversible is a one-way reaction balanced for metabolites and isotopomers.
	Irreversible ReactionType = iota
	// Forward is the forward half of a reversible pair.
	Forward
	// Backward is the backward half of a reversible pair.
	Backward
	// IsotopomerBalance takes part in isotopomer balance only; its flux is fixed.
	IsotopomerBalance
	// MetaboliteBalance takes part in metabolite balance only; it carries no atoms.
	MetaboliteBalance
)

var typeNames = map[ReactionType]string{
	Irreversible:      "irreversible",
	Forward:           "forward",
	Backward:          "backward",
	IsotopomerBalance: "isotopomer_balance",
	MetaboliteBalance: "metabolite_balance",
}

// String returns the lower-case name used in model files.
func (t ReactionType) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ReactionType(%d)", int(t))
}

// ParseReactionType is the inverse of String. Matching ignores case, and
// '-' may stand for '_'.
func ParseReactionType(s string) (ReactionType, error) {
	key := strings.ReplaceAll(strings.TrimSpace(s), "-", "_")
	for t, name := range typeNames {
		if strings.EqualFold(key, name) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidReaction, s)
}

// Metabolite is one side entry: name, atom formula and coefficient.
type Metabolite struct {
	Name        string
	Atoms       string
	Coefficient float64
}

// Equation holds both sides of a reaction.
type Equation struct {
	Left  []Metabolite
	Right []Metabolite
}

// Reaction is one chemical reaction of the network. ID indexes the flux
// vector.
type Reaction struct {
	ID       int
	Name     string
	Type     ReactionType
	Equation Equation
	Lower    float64
	Upper    float64
}

// Produces reports whether name occurs on the right side.
func (r Reaction) Produces(name string) bool {
	for _, m := range r.Equation.Right {
		if m.Name == name {
			return true
		}
	}

	return false
}

// Validate checks coefficients, atom letters and bounds. Atom letters must
// be unique within a side and every product letter must appear among the
// substrates; metabolite-balance reactions carry no atoms and skip the
// letter checks.
func (r Reaction) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("%w: #%d has no name", ErrInvalidReaction, r.ID)
	}
	if len(r.Equation.Right) == 0 {
		return fmt.Errorf("%w: %s has no products", ErrInvalidReaction, r.Name)
	}
	if !math.IsInf(r.Upper, 1) && r.Lower > r.Upper {
		return fmt.Errorf("%w: %s bounds [%g, %g]", ErrInvalidReaction, r.Name, r.Lower, r.Upper)
	}
	for _, side := range [][]Metabolite{r.Equation.Left, r.Equation.Right} {
		for _, m := range side {
			if m.Name == "" || m.Coefficient <= 0 {
				return fmt.Errorf("%w: %s has entry %+v", ErrInvalidReaction, r.Name, m)
			}
		}
	}
	if r.Type == MetaboliteBalance {
		return nil
	}
	substrate := map[rune]bool{}
	for _, m := range r.Equation.Left {
		for _, c := range m.Atoms {
			substrate[c] = true
		}
	}
	for _, m := range r.Equation.Right {
		seen := map[rune]bool{}
		for _, c := range m.Atoms {
			if seen[c] {
				return fmt.Errorf("%w: %s repeats atom %q in %s", ErrInvalidReaction, r.Name, c, m.Name)
			}
			seen[c] = true
			if !substrate[c] {
				return fmt.Errorf("%w: %s atom %q of %s has no precursor", ErrInvalidReaction, r.Name, c, m.Name)
			}
		}
	}

	return nil
}

// String renders "name: A + 2 B = C (ab + cd = abcd)".
func (r Reaction) String() string {
	side := func(ms []Metabolite) (string, string) {
		names := make([]string, len(ms))
		atoms := make([]string, len(ms))
		for i, m := range ms {
			names[i] = m.Name
			if m.Coefficient != 1 {
				names[i] = fmt.Sprintf("%g %s", m.Coefficient, m.Name)
			}
			atoms[i] = m.Atoms
		}
		return strings.Join(names, " + "), strings.Join(atoms, " + ")
	}
	ln, la := side(r.Equation.Left)
	rn, ra := side(r.Equation.Right)

	return fmt.Sprintf("%s: %s = %s (%s = %s)", r.Name, ln, rn, la, ra)
}

// Metabolites returns the sorted names of every metabolite in reactions.
func Metabolites(reactions []Reaction) []string {
	set := map[string]struct{}{}
	for _, r := range reactions {
		for _, m := range r.Equation.Left {
			set[m.Name] = struct{}{}
		}
		for _, m := range r.Equation.Right {
			set[m.Name] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)

	return out
}

// SameAtoms reports whether a and b are permutations of the same letters.
func SameAtoms(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	ra, rb := []rune(a), []rune(b)
	sort.Slice(ra, func(i, j int) bool { return ra[i] < ra[j] })
	sort.Slice(rb, func(i, j int) bool { return rb[i] < rb[j] })

	return string(ra) == string(rb)
}

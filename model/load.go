package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/emuflux/network"
)

// Load reads and decodes the model file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: reading %s: %w", path, err)
	}

	return Parse(bytes.NewReader(data))
}

// Parse decodes a model document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidModel)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if len(f.Reactions) == 0 {
		return nil, fmt.Errorf("%w: no reactions", ErrInvalidModel)
	}

	return &f, nil
}

// NetworkReactions converts the specs into network reactions; ids follow file
// order.
func (f *File) NetworkReactions() ([]network.Reaction, error) {
	out := make([]network.Reaction, 0, len(f.Reactions))
	seen := make(map[string]bool, len(f.Reactions))
	for i, spec := range f.Reactions {
		if seen[spec.Name] {
			return nil, fmt.Errorf("%w: reaction %q declared twice", ErrInvalidModel, spec.Name)
		}
		seen[spec.Name] = true

		typ := network.Irreversible
		if spec.Type != "" {
			t, err := network.ParseReactionType(spec.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: reaction %q: %v", ErrInvalidModel, spec.Name, err)
			}
			typ = t
		}
		eq, err := ParseEquation(spec.Equation, spec.Atoms)
		if err != nil {
			return nil, fmt.Errorf("reaction %q: %w", spec.Name, err)
		}
		r := network.Reaction{
			ID:       i,
			Name:     spec.Name,
			Type:     typ,
			Equation: eq,
			Lower:    DefaultLowerBound,
			Upper:    DefaultUpperBound,
		}
		if spec.Lower != nil {
			r.Lower = *spec.Lower
		}
		if spec.Upper != nil {
			r.Upper = *spec.Upper
		}
		if err = r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
		out = append(out, r)
	}

	return out, nil
}

// ParseEquation reads "A + 2 B = C" with the atom map "ab + cd = abcd".
// An empty atom map leaves every formula empty.
func ParseEquation(equation, atoms string) (network.Equation, error) {
	var eq network.Equation
	sides := strings.Split(equation, "=")
	if len(sides) != 2 {
		return eq, fmt.Errorf("%w: equation %q needs exactly one '='", ErrInvalidModel, equation)
	}
	var atomSides []string
	if strings.TrimSpace(atoms) != "" {
		atomSides = strings.Split(atoms, "=")
		if len(atomSides) != 2 {
			return eq, fmt.Errorf("%w: atom map %q needs exactly one '='", ErrInvalidModel, atoms)
		}
	}

	var err error
	for s := 0; s < 2; s++ {
		var formulas string
		if atomSides != nil {
			formulas = atomSides[s]
		}
		var ms []network.Metabolite
		if ms, err = parseSide(sides[s], formulas); err != nil {
			return eq, fmt.Errorf("%w: %q: %v", ErrInvalidModel, equation, err)
		}
		if s == 0 {
			eq.Left = ms
		} else {
			eq.Right = ms
		}
	}

	return eq, nil
}

// parseSide reads one side of an equation and pairs it with its formulas.
func parseSide(terms, formulas string) ([]network.Metabolite, error) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return nil, nil
	}
	names := strings.Split(terms, "+")
	var atoms []string
	if strings.TrimSpace(formulas) != "" {
		atoms = strings.Split(formulas, "+")
		if len(atoms) != len(names) {
			return nil, fmt.Errorf("%d metabolites but %d formulas", len(names), len(atoms))
		}
	}

	out := make([]network.Metabolite, len(names))
	for i, term := range names {
		fields := strings.Fields(term)
		m := network.Metabolite{Coefficient: 1}
		switch len(fields) {
		case 1:
			m.Name = fields[0]
		case 2:
			c, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("coefficient %q: %v", fields[0], err)
			}
			m.Coefficient, m.Name = c, fields[1]
		default:
			return nil, fmt.Errorf("cannot read term %q", term)
		}
		if atoms != nil {
			m.Atoms = strings.TrimSpace(atoms[i])
		}
		out[i] = m
	}

	return out, nil
}

package model

import (
	"fmt"

	"github.com/katalvlaran/emuflux/derive"
	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/labeling"
	"github.com/katalvlaran/emuflux/matrix"
	"github.com/katalvlaran/emuflux/partition"
	"github.com/katalvlaran/emuflux/residual"
	"github.com/katalvlaran/emuflux/simulator"
	"github.com/katalvlaran/emuflux/symbolic"
)

// Compile turns a decoded file into a Problem.
//
// Implementation:
//   - Stage 1: reactions, measured units and the flux layout.
//   - Stage 2: EMU reactions reachable from the measurements, stopping at
//     the labeled inputs; networks by size, optionally refined into
//     strongly connected components.
//   - Stage 3: input units and their MIDs.
//   - Stage 4: symbolic model, with derivatives unless the file asks for a
//     finite-difference Jacobian.
func Compile(f *File, opts ...Option) (*Problem, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}

	// Stage 1
	reactions, err := f.NetworkReactions()
	if err != nil {
		return nil, err
	}
	p := &Problem{Name: f.Name, Reactions: reactions, Settings: f.Settings.withDefaults()}
	symMeas, err := p.measurements(f.Measurements)
	if err != nil {
		return nil, err
	}
	if p.Layout, err = layout(f, reactions); err != nil {
		return nil, err
	}
	p.FreeNames = append([]string(nil), f.Nullspace.Free...)
	for _, id := range p.Layout.Free {
		p.Lower = append(p.Lower, reactions[id].Lower)
		p.Upper = append(p.Upper, reactions[id].Upper)
	}

	// Stage 2
	sources := make([]string, len(f.Inputs))
	substrates := make([]labeling.Substrate, len(f.Inputs))
	for i, in := range f.Inputs {
		sources[i] = in.Metabolite
		substrates[i] = labeling.Substrate{Name: in.Metabolite}
		for _, mx := range in.Mixtures {
			substrates[i].Mixtures = append(substrates[i].Mixtures, labeling.Mixture{Ratio: mx.Ratio, Fractions: mx.Fractions})
		}
	}
	observed := make([]emu.Unit, len(symMeas))
	for i, m := range symMeas {
		observed[i] = m.Unit
	}
	if p.EMUReactions, err = derive.Reactions(reactions, observed,
		derive.WithContext(o.Ctx), derive.WithSources(sources...)); err != nil {
		return nil, err
	}
	if p.Networks, err = partition.BySize(p.EMUReactions); err != nil {
		return nil, err
	}
	if p.Settings.Components {
		if p.Networks, err = partition.Components(p.Networks); err != nil {
			return nil, err
		}
	}

	// Stage 3
	units := inputUnits(p.EMUReactions, sources)
	if p.Inputs, err = labeling.InputMIDs(units, substrates); err != nil {
		return nil, err
	}

	// Stage 4
	p.Model, err = symbolic.Generate(symbolic.Parameters{
		Networks:     p.Networks,
		Inputs:       units,
		Measurements: symMeas,
		Layout:       p.Layout,
		Derivatives:  *p.Settings.AnalyticJacobian,
	})
	if err != nil {
		return nil, err
	}

	o.Logger.Info("model compiled",
		"name", p.Name,
		"reactions", len(reactions),
		"emu_reactions", len(p.EMUReactions),
		"networks", len(p.Networks),
		"inputs", len(units),
		"free_fluxes", p.Layout.NumFree(),
		"residuals", p.Model.Residuals())
	for i, n := range p.Networks {
		o.Logger.Debug("network", "index", i, "size", n.Size(), "reactions", len(n))
	}

	return p, nil
}

// measurements parses the measured units into p and returns their symbolic
// form.
func (p *Problem) measurements(specs []MeasurementSpec) ([]symbolic.Measurement, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no measurements", ErrInvalidModel)
	}
	out := make([]symbolic.Measurement, len(specs))
	seen := make(map[emu.Unit]bool, len(specs))
	for i, spec := range specs {
		u, err := emu.ParseUnit(spec.Unit)
		if err != nil {
			return nil, fmt.Errorf("%w: measurement %d: %v", ErrInvalidModel, i, err)
		}
		if seen[u] {
			return nil, fmt.Errorf("%w: %s measured twice", ErrInvalidModel, u)
		}
		seen[u] = true
		out[i].Unit = u
		if spec.Correction != nil {
			if out[i].Correction, err = matrix.NewDenseFromRows(spec.Correction); err != nil {
				return nil, fmt.Errorf("%w: %s correction: %v", ErrInvalidModel, u, err)
			}
		}
		p.Measurements = append(p.Measurements, residual.Measurement{Unit: u, MID: spec.MID, Errors: spec.Errors})
	}

	return out, nil
}

// inputUnits lists the left units whose metabolite is a labeled input, in
// canonical order.
func inputUnits(reactions []emu.Reaction, sources []string) []emu.Unit {
	isSource := make(map[string]bool, len(sources))
	for _, s := range sources {
		isSource[s] = true
	}
	seen := make(map[emu.Unit]bool)
	var out []emu.Unit
	for _, r := range reactions {
		for _, s := range r.Left {
			if isSource[s.Unit.Name()] && !seen[s.Unit] {
				seen[s.Unit] = true
				out = append(out, s.Unit)
			}
		}
	}

	return emu.SortUnits(out)
}

// Simulator builds a simulator over the compiled model.
func (p *Problem) Simulator(opts ...simulator.Option) (*simulator.Simulator, error) {
	if p.Settings.SparseThreshold != nil {
		opts = append([]simulator.Option{simulator.WithSparseThreshold(*p.Settings.SparseThreshold)}, opts...)
	}

	return simulator.New(p.Model, p.Inputs, opts...)
}

// Adapter builds the residual adapter over a fresh simulator.
func (p *Problem) Adapter(opts ...simulator.Option) (*residual.Adapter, error) {
	sim, err := p.Simulator(opts...)
	if err != nil {
		return nil, err
	}

	return residual.New(sim, p.Layout, p.Measurements)
}

// withDefaults fills omitted settings.
func (s Settings) withDefaults() Settings {
	if s.AnalyticJacobian == nil {
		analytic := true
		s.AnalyticJacobian = &analytic
	}
	if s.Restarts <= 0 {
		s.Restarts = DefaultRestarts
	}
	if s.Iterations <= 0 {
		s.Iterations = DefaultIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultTolerance
	}

	return s
}

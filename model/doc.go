// Package model loads a flux-analysis problem from YAML and compiles it into
// the immutable structures the simulator and the fitter share.
//
// A model file lists reactions as text equations with atom maps:
//
//	reactions:
//	  - name: v1
//	    equation: "AcCoA + OAC = Cit"
//	    atoms: "ab + cdef = fedbac"
//	    upper: 100
//
// plus the measured units with their MIDs and errors, the labeled inputs,
// optionally an explicit nullspace, and run settings. Compile derives the
// EMU reactions reachable from the measurements, partitions them by size,
// computes the input MIDs and generates the symbolic model.
//
// When the nullspace matrix is omitted it is computed from the
// stoichiometry of the balanced metabolites and the declared free fluxes.
package model

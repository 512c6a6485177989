// Package derive turns a full atom-mapped reaction network into the minimal
// set of EMU reactions needed to simulate a list of observed units.
//
// The search walks backwards breadth-first: starting from the observed
// units, every reaction producing a unit's metabolite is expanded into EMU
// reactions whose left sides name the precursor fragments, and each new
// fragment is queued in turn. Metabolite-balance reactions carry no atoms
// and are skipped. A unit that no reaction produces is a network source and
// yields nothing.
//
// Symmetric molecules are written as several left entries of the same
// metabolite whose atom formulas are permutations of one another, e.g.
// "0.5 Fum abcd + 0.5 Fum dcba". Each entry is one orientation; an EMU
// reaction is emitted per orientation, weighted by its share of the
// group's coefficients.
//
// Structurally identical EMU reactions (same id, left units and right unit)
// are merged and their rates summed.
package derive

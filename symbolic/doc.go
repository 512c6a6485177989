// Package symbolic compiles size-ordered EMU networks into the linear
// systems A·X = B·Y the simulator evaluates on every flux trial.
//
// Generation runs once per model. For every network it:
//
//   - splits units into unknowns (rows of X, produced inside the network)
//     and knowns (rows of Y: labeled inputs, units solved by an earlier
//     network, and convolutions of such units for condensations);
//   - marks every earlier unit it consumes as useful, so the simulator keeps
//     exactly those rows of each solved X;
//   - builds A and B as sparse entries whose values are still linear
//     combinations of fluxes (Entry.Terms), not numbers;
//   - maps measured units onto output slots together with their optional
//     correction matrix;
//   - when derivatives are requested, differentiates A and B with respect to
//     every free flux. The entries are affine in the free fluxes, so each
//     derivative is a constant triplet list.
//
// Structural problems (a unit nobody produces, a convolution defined twice,
// a measurement no network simulates) fail generation with an error that
// wraps emu.ErrStructural.
package symbolic

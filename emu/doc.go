// Package emu is the atom-transition model shared by every other package:
// elementary metabolite units, mass isotopomer distributions and the EMU
// reactions that connect them.
//
// What:
//
//   - Unit: a metabolite name plus the atom positions being tracked
//     ("PYR:101" tracks atoms 1 and 3 of PYR). Comparable, usable as a map
//     key, ordered lexicographically on (name, mask).
//   - MID: mass isotopomer distribution, index = number of heavy atoms.
//   - Convolve: discrete probability convolution of two MIDs, the MID of a
//     pool assembled from two independently labeled fragments.
//   - Reaction: one EMU reaction. Left holds one unit for a transfer and two
//     or more units for a condensation.
//   - Network: reactions whose products all share one size.
//
// Errors:
//
//   - ErrStructural  root of every fatal model error (abort the run)
//   - ErrNumeric     root of every per-evaluation numeric error (reject the trial)
//   - ErrBadUnit     malformed unit text or mask
//
// Every package in this module wraps one of the two roots, so callers can
// classify any error with errors.Is.
package emu

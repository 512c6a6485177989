// SPDX-License-Identifier: MIT

// Package matrix is the small linear-algebra layer behind the EMU simulator.
//
// What:
//
//   - Dense: row-major float64 matrix with bounds-checked At/Set and
//     fast-path kernels (Mul, MulVec, AddScaled).
//   - Sparse: triplet builder compressed into CSR; duplicate cells are
//     summed, which is exactly how symbolic flux terms accumulate.
//   - QR: Householder QR with column pivoting for square dense systems.
//   - LU: Gaussian elimination with partial pivoting on sparse rows.
//   - Factorization: the solve surface shared by QR and LU, reused for
//     every right-hand side of one evaluation.
//
// Errors:
//
//   - ErrBadShape, ErrOutOfRange, ErrDimensionMismatch, ErrNonSquare
//   - ErrNilMatrix
//   - ErrSingular  rank deficiency detected during factorization
//   - ErrNaNInf    non-finite value produced or supplied
//
// All public functions return sentinels wrapped with an op tag
// ("QR: matrix: singular matrix"); match them with errors.Is.
//
// Complexity:
//
//   - QR factor O(n³), solve O(n²·k) for k right-hand sides.
//   - LU factor O(n·nnz) typical, O(n³) worst case.
package matrix

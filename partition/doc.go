// Package partition groups EMU reactions into size-ordered networks.
//
// BySize puts every reaction into the network of its product size, smallest
// first. A reaction's left units are never larger than its product, so by
// the time a network is solved every unit it consumes from outside is
// already known.
//
// Components refines each size network into its strongly connected pieces,
// ordered so that a piece only consumes units of earlier pieces. Smaller
// linear systems factor faster, and the result is the same.
package partition

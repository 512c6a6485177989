// Package network models the full chemical reaction network with atom
// transitions: the input of EMU decomposition.
//
// A reaction "A + 2.0 B = 1.5 C + D" with atom map "ab + cd = bda + c" is
//
//	Reaction{
//		Equation: Equation{
//			Left:  []Metabolite{{Name: "A", Atoms: "ab", Coefficient: 1}, {Name: "B", Atoms: "cd", Coefficient: 2}},
//			Right: []Metabolite{{Name: "C", Atoms: "bda", Coefficient: 1.5}, {Name: "D", Atoms: "c", Coefficient: 1}},
//		},
//	}
//
// Each letter names one carbon; the same letter on both sides is the same atom.
package network

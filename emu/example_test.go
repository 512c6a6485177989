package emu_test

import (
	"fmt"

	"github.com/katalvlaran/emuflux/emu"
)

// ExampleConvolve combines two independent fragments into the distribution
// of their union.
func ExampleConvolve() {
	a := emu.MID{0.5, 0.5}
	b := emu.MID{1, 0}
	fmt.Println(emu.Convolve(a, b))
	// Output: [0.5 0.5 0]
}

// ExampleParseUnit shows the NAME:mask notation.
func ExampleParseUnit() {
	u, err := emu.ParseUnit("Pyr:011")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println(u.Name(), u.Size(), u.Len())
	// Output: Pyr 2 3
}

// Package assembler defines the available output formats.
package assembler

// output formats.
const (
	Asm   = "asm"
	Skool = "skool"
)

// Formats lists all supported output formats.
var Formats = []string{Asm, Skool}

// Package options contains the program options.
package options

import (
	"strings"
)

// Parameters contains file path options.
type Parameters struct {
	Input  string `flag:"i" usage:"input memory image (.sna or raw binary)"`
	Output string `flag:"o" usage:"output file (default: stdout)"`
	Config string `flag:"c" usage:"game config file (.json)"`
	Pok    string `flag:"pok" usage:"cheat file (.pok) to apply before running"`
	Batch  string `flag:"batch" usage:"batch process files matching pattern (e.g. *.sna)"`
}

// Flags contains behavior options.
type Flags struct {
	Format       string `flag:"a" usage:"output format: skool, asm" default:"skool"`
	ImageFormat  string `flag:"image" usage:"input image format: sna, raw (default: detect from extension)"`
	LoadAddress  string `flag:"load" usage:"load address of raw binary images" default:"0x8000"`
	StartAddress string `flag:"pc" usage:"address to start execution at (default: load address or snapshot PC)"`
	Entries      string `flag:"entry" usage:"comma separated addresses to statically trace code from"`
	Steps        int    `flag:"steps" usage:"number of instructions to execute" default:"100000"`
	Range        string `flag:"range" usage:"exported address range, for example 0x8000-0xFFFF"`
	Summary      bool   `flag:"summary" usage:"print a memory use summary"`
	Verify       bool   `flag:"verify" usage:"verify that the output recreates the analysed memory"`
	Debug        bool   `flag:"debug" usage:"enable debug logging"`
	Quiet        bool   `flag:"q" usage:"quiet mode"`
}

// OutputFlags contains output formatting options.
type OutputFlags struct {
	NoHexComments bool `flag:"nohexcomments" usage:"omit hex opcode bytes in comments"`
	NoVideoMemory bool `flag:"novideo" usage:"exclude video memory from snapshots"`
}

// Program options of the analyser.
type Program struct {
	Parameters
	Flags
	OutputFlags
}

// Analyser defines options to control the analysis of a memory image.
type Analyser struct {
	Format string // what output format to use

	LoadAddress  uint16
	StartAddress uint16
	HasStart     bool // start address was set explicitly
	Entries      []uint16
	MaxSteps     int

	ExportStart uint16
	ExportEnd   uint16 // inclusive

	StackMin uint16
	StackMax uint16

	HexComments        bool
	GeneratedNames     bool // use generated label and constant names for operand addresses
	IncludeVideoMemory bool
}

// NewAnalyser returns a new options instance with default options.
func NewAnalyser(format string) Analyser {
	return Analyser{
		Format:             strings.ToLower(format),
		LoadAddress:        0x8000,
		MaxSteps:           100000,
		ExportStart:        0x4000,
		ExportEnd:          0xFFFF,
		StackMin:           0x5D00,
		StackMax:           0xFFFF,
		HexComments:        true,
		GeneratedNames:     true,
		IncludeVideoMemory: true,
	}
}

// Package cli handles command line interface logic
package cli

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/retroenv/z80analyser/internal/assembler"
	"github.com/retroenv/z80analyser/internal/options"
)

// ParseFlags parses command line flags and returns program and analyser options
func ParseFlags() (options.Program, options.Analyser, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if err != nil || (len(args) == 0 && opts.Input == "" && opts.Batch == "") {
		return opts, options.Analyser{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Analyser{}, err
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Analyser{}, err
	}

	if opts.Batch == "" && len(args) > 0 {
		opts.Input = args[0]
	}

	analyserOptions, err := createAnalyserOptions(opts)
	if err != nil {
		return opts, options.Analyser{}, err
	}
	return opts, analyserOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: z80analyser [options] <memory image to analyse>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after file to analyse, please pass the file to analyse as last argument", arg),
			}
		}
	}
	return nil
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format == "skoolkit" {
		opts.Format = assembler.Skool
	}

	if !slices.Contains(assembler.Formats, opts.Format) {
		return fmt.Errorf("unsupported output format: %s. Valid options: %s",
			opts.Format, strings.Join(assembler.Formats, ", "))
	}
	if opts.Steps < 0 {
		return fmt.Errorf("invalid number of steps: %d", opts.Steps)
	}
	return nil
}

// createAnalyserOptions creates analyser options based on program options
func createAnalyserOptions(opts options.Program) (options.Analyser, error) {
	analyserOptions := options.NewAnalyser(opts.Format)
	analyserOptions.MaxSteps = opts.Steps
	analyserOptions.HexComments = !opts.NoHexComments
	analyserOptions.IncludeVideoMemory = !opts.NoVideoMemory

	// skool files reference addresses numerically, names are assigned by
	// skoolkit control directives
	analyserOptions.GeneratedNames = opts.Format == assembler.Asm

	var err error
	if opts.LoadAddress != "" {
		if analyserOptions.LoadAddress, err = ParseAddress(opts.LoadAddress); err != nil {
			return analyserOptions, fmt.Errorf("parsing load address: %w", err)
		}
	}
	if opts.StartAddress != "" {
		if analyserOptions.StartAddress, err = ParseAddress(opts.StartAddress); err != nil {
			return analyserOptions, fmt.Errorf("parsing start address: %w", err)
		}
		analyserOptions.HasStart = true
	}

	if opts.Entries != "" {
		for entry := range strings.SplitSeq(opts.Entries, ",") {
			address, err := ParseAddress(strings.TrimSpace(entry))
			if err != nil {
				return analyserOptions, fmt.Errorf("parsing entry address: %w", err)
			}
			analyserOptions.Entries = append(analyserOptions.Entries, address)
		}
	}

	if opts.Range != "" {
		start, end, ok := strings.Cut(opts.Range, "-")
		if !ok {
			return analyserOptions, fmt.Errorf("invalid address range '%s'", opts.Range)
		}
		if analyserOptions.ExportStart, err = ParseAddress(start); err != nil {
			return analyserOptions, fmt.Errorf("parsing range start: %w", err)
		}
		if analyserOptions.ExportEnd, err = ParseAddress(end); err != nil {
			return analyserOptions, fmt.Errorf("parsing range end: %w", err)
		}
		if analyserOptions.ExportStart > analyserOptions.ExportEnd {
			return analyserOptions, fmt.Errorf("empty address range '%s'", opts.Range)
		}
	}

	return analyserOptions, nil
}

// ParseAddress parses a 16 bit address. Decimal values, Go prefixed values
// and $ prefixed hex values are supported.
func ParseAddress(s string) (uint16, error) {
	base := 0
	if hex, ok := strings.CutPrefix(s, "$"); ok {
		s = hex
		base = 16
	}

	value, err := strconv.ParseUint(s, base, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address '%s': %w", s, err)
	}
	return uint16(value), nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input memory image (.sna or raw binary)")
	flags.StringVar(&opts.Output, "o", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&opts.Config, "c", "", "game config file (.json) with handlers, labels and comments")
	flags.StringVar(&opts.Pok, "pok", "", "cheat file (.pok) to apply before running")
	flags.StringVar(&opts.Batch, "batch", "", "process a batch of given path and file mask and automatically output file naming, for example *.sna")
	flags.StringVar(&opts.Format, "a", assembler.Skool, "output format of the generated file (skool/asm)")
	flags.StringVar(&opts.ImageFormat, "image", "", "input image format (sna/raw) - if not auto-detected from file extension")
	flags.StringVar(&opts.LoadAddress, "load", "0x8000", "load address of raw binary images")
	flags.StringVar(&opts.StartAddress, "pc", "", "address to start execution at, defaults to the load address or the snapshot PC")
	flags.StringVar(&opts.Entries, "entry", "", "comma separated addresses to statically trace code from")
	flags.IntVar(&opts.Steps, "steps", 100000, "number of instructions to execute")
	flags.StringVar(&opts.Range, "range", "", "exported address range, for example 0x8000-0xFFFF")
	flags.BoolVar(&opts.Summary, "summary", false, "print a memory use summary")
	flags.BoolVar(&opts.Verify, "verify", false, "verify that the generated output recreates the analysed memory")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.NoHexComments, "nohexcomments", false, "do not output opcode bytes as hex values in comments")
	flags.BoolVar(&opts.NoVideoMemory, "novideo", false, "exclude the video memory from memory snapshots")
}

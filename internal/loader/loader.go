// Package loader handles memory image loading operations.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/z80analyser/internal/machine"
	"github.com/retroenv/z80analyser/internal/memory"
)

// Format is the file format of a memory image.
type Format string

// supported image formats.
const (
	Raw Format = "raw"
	SNA Format = "sna"
)

// FormatFromString returns the image format for a name, an empty format is
// returned for unsupported names.
func FormatFromString(s string) (Format, bool) {
	switch Format(strings.ToLower(s)) {
	case Raw:
		return Raw, true
	case SNA:
		return SNA, true
	default:
		return "", false
	}
}

const (
	snaHeaderSize = 27
	snaRAMStart   = 0x4000
	snaRAMSize    = 0xC000
	snaFileSize   = snaHeaderSize + snaRAMSize
)

// Image describes a loaded memory image.
type Image struct {
	Format    Format
	Start     uint16 // first loaded address
	Size      int    // number of loaded bytes
	Registers machine.Registers
	HasState  bool // the image contains a CPU state
}

// Loader handles loading memory images from disk.
type Loader struct{}

// New creates a new memory image loader.
func New() *Loader {
	return &Loader{}
}

// Load reads the image file and loads it into memory. Raw images are loaded
// at the load address, snapshots contain their own layout and CPU state.
func (l *Loader) Load(fileName string, format Format, loadAddress uint16, mem memory.Loader) (*Image, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", fileName, err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", fileName, err)
	}

	return l.LoadFromBytes(data, format, loadAddress, mem)
}

// LoadFromBytes loads the image data into memory.
func (l *Loader) LoadFromBytes(data []byte, format Format, loadAddress uint16, mem memory.Loader) (*Image, error) {
	switch format {
	case SNA:
		return loadSNA(data, mem)
	case Raw, "":
		if len(data) == 0 {
			return nil, fmt.Errorf("empty image")
		}
		if err := mem.Load(loadAddress, data); err != nil {
			return nil, fmt.Errorf("loading raw image: %w", err)
		}
		return &Image{
			Format: Raw,
			Start:  loadAddress,
			Size:   len(data),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported image format '%s'", format)
	}
}

// loadSNA loads a 48K ZX Spectrum snapshot. The program counter is stored on
// the stack of the snapshot and gets popped after the RAM is loaded.
func loadSNA(data []byte, mem memory.Loader) (*Image, error) {
	if len(data) != snaFileSize {
		return nil, fmt.Errorf("unsupported snapshot size %d, expected %d", len(data), snaFileSize)
	}

	header := bytes.NewReader(data[:snaHeaderSize])
	var regs machine.Registers
	regs.I = readByte(header)
	regs.AltHL = readWord(header)
	regs.AltDE = readWord(header)
	regs.AltBC = readWord(header)
	regs.AltAF = readWord(header)
	regs.HL = readWord(header)
	regs.DE = readWord(header)
	regs.BC = readWord(header)
	regs.IY = readWord(header)
	regs.IX = readWord(header)
	interrupts := readByte(header)
	regs.IFF2 = interrupts&0x04 != 0
	regs.IFF1 = regs.IFF2
	regs.R = readByte(header)
	regs.AF = readWord(header)
	regs.SP = readWord(header)
	regs.IM = int(readByte(header) & 0x03)

	if err := mem.Load(snaRAMStart, data[snaHeaderSize:]); err != nil {
		return nil, fmt.Errorf("loading snapshot RAM: %w", err)
	}

	regs.PC = mem.ReadMemoryWord(regs.SP)
	regs.SP += 2

	return &Image{
		Format:    SNA,
		Start:     snaRAMStart,
		Size:      snaRAMSize,
		Registers: regs,
		HasState:  true,
	}, nil
}

// the header reader is sized before reading, errors can not occur.
func readByte(r *bytes.Reader) byte {
	b, _ := r.ReadByte()
	return b
}

func readWord(r *bytes.Reader) uint16 {
	low := readByte(r)
	high := readByte(r)
	return uint16(high)<<8 | uint16(low)
}

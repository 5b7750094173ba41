// Package bus models the pin state of a single Z80 bus cycle.
package bus

import "fmt"

// Pins packs the address bus, data bus and control pins of one bus cycle.
//
// Layout:
//
//	bits  0-15: address bus
//	bits 16-23: data bus
//	bits 24-29: control pins
type Pins uint64

// Control pins.
const (
	M1 Pins = 1 << (24 + iota) // machine cycle one, set for instruction fetches
	MREQ
	IORQ
	RD
	WR
	RFSH
)

// ControlMask selects all control pins.
const ControlMask = M1 | MREQ | IORQ | RD | WR | RFSH

const (
	addressMask = 0xFFFF
	dataShift   = 16
)

// New returns the pin state for a cycle on the given address.
func New(address uint16, data byte, control Pins) Pins {
	return Pins(address) | Pins(data)<<dataShift | control&ControlMask
}

// Address returns the value of the address bus.
func (p Pins) Address() uint16 {
	return uint16(p & addressMask)
}

// Data returns the value of the data bus.
func (p Pins) Data() byte {
	return byte(p >> dataShift)
}

// IsRead returns whether the cycle is a memory read that is not an instruction fetch.
func (p Pins) IsRead() bool {
	return p&ControlMask == MREQ|RD
}

// IsWrite returns whether the cycle is a memory write.
func (p Pins) IsWrite() bool {
	return p&ControlMask == MREQ|WR
}

// IsFetch returns whether the cycle reads instruction bytes.
func (p Pins) IsFetch() bool {
	return p&ControlMask == M1|MREQ|RD
}

func (p Pins) String() string {
	kind := "----"
	switch {
	case p.IsFetch():
		kind = "M1RD"
	case p.IsRead():
		kind = "MRD"
	case p.IsWrite():
		kind = "MWR"
	}
	return fmt.Sprintf("%s $%04X=$%02X", kind, p.Address(), p.Data())
}

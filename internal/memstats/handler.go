package memstats

import (
	"fmt"
	"sort"

	"github.com/retroenv/z80analyser/internal/bus"
	"golang.org/x/exp/constraints"
)

// AccessType selects the kind of access that a handler matches.
type AccessType int

// Access types.
const (
	Execute AccessType = iota
	Read
	Write
)

func (t AccessType) String() string {
	switch t {
	case Read:
		return "read"
	case Write:
		return "write"
	default:
		return "execute"
	}
}

// ParseAccessType parses the name of an access type.
func ParseAccessType(s string) (AccessType, error) {
	switch s {
	case "execute", "exec":
		return Execute, nil
	case "read":
		return Read, nil
	case "write":
		return Write, nil
	default:
		return 0, fmt.Errorf("unsupported access type '%s'", s)
	}
}

// Callback is invoked for every matching bus cycle of a handler.
type Callback func(h *Handler, pc uint16, pins bus.Pins)

// Handler is a memory access handler that watches an inclusive address range.
type Handler struct {
	Name    string
	Type    AccessType
	Start   uint16
	End     uint16
	Enabled bool
	Break   bool // request a debugger break on match

	TotalCount    int
	CallerCounts  map[uint16]int // program counter to count
	AddressCounts map[uint16]int // accessed address to count

	Callback Callback
}

// NewHandler returns a new enabled handler for the address range.
func NewHandler(name string, typ AccessType, start, end uint16) *Handler {
	return &Handler{
		Name:          name,
		Type:          typ,
		Start:         start,
		End:           end,
		Enabled:       true,
		CallerCounts:  make(map[uint16]int),
		AddressCounts: make(map[uint16]int),
	}
}

// matches returns whether the handler is triggered by the bus cycle.
func (h *Handler) matches(pc uint16, pins bus.Pins) bool {
	if !h.Enabled {
		return false
	}

	switch h.Type {
	case Execute:
		return h.contains(pc)
	case Read:
		return pins.IsRead() && h.contains(pins.Address())
	case Write:
		return pins.IsWrite() && h.contains(pins.Address())
	default:
		return false
	}
}

func (h *Handler) contains(address uint16) bool {
	return address >= h.Start && address <= h.End
}

func (h *Handler) record(pc uint16, pins bus.Pins) {
	h.TotalCount++
	h.CallerCounts[pc]++
	h.AddressCounts[pins.Address()]++
}

// Callers returns all program counters that triggered the handler, the most
// frequent first.
func (h *Handler) Callers() []uint16 {
	return keysByCount(h.CallerCounts)
}

// Addresses returns all accessed addresses that triggered the handler, the
// most frequent first.
func (h *Handler) Addresses() []uint16 {
	return keysByCount(h.AddressCounts)
}

// Reset clears all counters of the handler.
func (h *Handler) Reset() {
	h.TotalCount = 0
	h.CallerCounts = make(map[uint16]int)
	h.AddressCounts = make(map[uint16]int)
}

// keysByCount returns the map keys sorted by descending count, keys with
// equal counts are sorted ascending.
func keysByCount[K constraints.Integer, V constraints.Integer](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		ci, cj := m[keys[i]], m[keys[j]]
		if ci != cj {
			return ci > cj
		}
		return keys[i] < keys[j]
	})
	return keys
}

package program

// OffsetType defines the type of a program offset.
type OffsetType uint8

// offset types, an offset can have multiple types.
const (
	UnknownOffset OffsetType = 0
	CodeOffset    OffsetType = 1 << iota
	DataOffset
	CallDestination // destination of a call, indicating a function
	JumpDestination // destination of a jump inside of a function
	SelfModified    // code that is written to while being executed
	StackData       // word written by a push instruction
)

// IsType returns whether the offset is of given type.
func (o *Offset) IsType(typ OffsetType) bool {
	return o.Type&typ != 0
}

// SetType sets the type of the offset.
func (o *Offset) SetType(typ OffsetType) {
	o.Type |= typ
}

// ClearType unsets the type of the offset.
func (o *Offset) ClearType(typ OffsetType) {
	mask := ^(typ)
	o.Type &= mask
}

// Package database contains the analysis database: the per address code,
// data, label and comment annotations that the analysis keeps consistent
// while memory is re-interpreted during emulation.
package database

import (
	"fmt"
	"sort"
)

// DataType defines the type of a data item.
type DataType int

// Data types.
const (
	Byte DataType = iota
	Word
	ByteArray
	WordArray
	Text
)

func (t DataType) String() string {
	switch t {
	case Word:
		return "word"
	case ByteArray:
		return "byte array"
	case WordArray:
		return "word array"
	case Text:
		return "text"
	default:
		return "byte"
	}
}

// LabelType defines the type of a label.
type LabelType int

// Label types.
const (
	CodeLabel LabelType = iota
	FunctionLabel
	DataLabel
)

var labelPrefixes = map[LabelType]string{
	CodeLabel:     "label",
	FunctionLabel: "function",
	DataLabel:     "data",
}

// Label is a named address.
type Label struct {
	Address uint16
	Name    string
	Type    LabelType
	Global  bool
}

// CodeInfo annotates an instruction start address.
type CodeInfo struct {
	Address  uint16
	ByteSize int
	Text     string
	Comment  string
	Disabled bool // instruction has been overwritten by self modifying code
}

// DataInfo annotates a data address.
type DataInfo struct {
	Address  uint16
	DataType DataType
	ByteSize int
	Comment  string
}

// Database stores all annotations of the address space.
type Database struct {
	code          map[uint16]*CodeInfo
	data          map[uint16]*DataInfo
	labels        map[uint16]*Label
	labelNames    map[string]uint16
	commentBlocks map[uint16]string
	dirty         bool
}

// New returns a new empty database.
func New() *Database {
	return &Database{
		code:          make(map[uint16]*CodeInfo),
		data:          make(map[uint16]*DataInfo),
		labels:        make(map[uint16]*Label),
		labelNames:    make(map[string]uint16),
		commentBlocks: make(map[uint16]string),
	}
}

// DataInfo returns the data item for the address, a byte item is created if
// none exists yet.
func (db *Database) DataInfo(address uint16) *DataInfo {
	info, ok := db.data[address]
	if !ok {
		info = &DataInfo{
			Address:  address,
			DataType: Byte,
			ByteSize: 1,
		}
		db.data[address] = info
	}
	return info
}

// HasDataInfo returns whether a data item exists for the address.
func (db *Database) HasDataInfo(address uint16) bool {
	_, ok := db.data[address]
	return ok
}

// CodeInfo returns the code item for the address or nil.
func (db *Database) CodeInfo(address uint16) *CodeInfo {
	return db.code[address]
}

// SetCodeInfo stores a code item, replacing a previous one for the address.
func (db *Database) SetCodeInfo(info *CodeInfo) {
	db.code[info.Address] = info
	db.dirty = true
}

// Label returns the label of the address or nil.
func (db *Database) Label(address uint16) *Label {
	return db.labels[address]
}

// AddLabel adds a label with the given name for the address. An existing
// label of the address is renamed.
func (db *Database) AddLabel(address uint16, name string, typ LabelType) (*Label, error) {
	existing := db.labels[address]
	if existing != nil && existing.Name == name {
		return existing, nil
	}
	if owner, ok := db.labelNames[name]; ok {
		return nil, fmt.Errorf("label name '%s' already used for address 0x%04X", name, owner)
	}

	if existing != nil {
		delete(db.labelNames, existing.Name)
	}
	label := &Label{
		Address: address,
		Name:    name,
		Type:    typ,
	}
	db.labels[address] = label
	db.labelNames[name] = address
	db.dirty = true
	return label, nil
}

// EnsureLabel returns the label of the address, a label with a generated
// name is added if none exists yet. A code label is upgraded to a function
// label if requested.
func (db *Database) EnsureLabel(address uint16, typ LabelType) *Label {
	if label, ok := db.labels[address]; ok {
		if typ == FunctionLabel && label.Type == CodeLabel {
			label.Type = FunctionLabel
			if label.Name == GenerateLabelName(CodeLabel, address) {
				delete(db.labelNames, label.Name)
				label.Name = db.uniqueName(GenerateLabelName(FunctionLabel, address))
				db.labelNames[label.Name] = address
			}
			db.dirty = true
		}
		return label
	}

	name := db.uniqueName(GenerateLabelName(typ, address))
	label := &Label{
		Address: address,
		Name:    name,
		Type:    typ,
	}
	db.labels[address] = label
	db.labelNames[name] = address
	db.dirty = true
	return label
}

func (db *Database) uniqueName(name string) string {
	if _, ok := db.labelNames[name]; !ok {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if _, ok := db.labelNames[candidate]; !ok {
			return candidate
		}
	}
}

// GenerateLabelName returns the generated name of a label.
func GenerateLabelName(typ LabelType, address uint16) string {
	return fmt.Sprintf("%s_%04X", labelPrefixes[typ], address)
}

// Labels returns all labels sorted by address.
func (db *Database) Labels() []*Label {
	labels := make([]*Label, 0, len(db.labels))
	for _, label := range db.labels {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Address < labels[j].Address
	})
	return labels
}

// SetCommentBlock sets the comment block that precedes the address.
func (db *Database) SetCommentBlock(address uint16, comment string) {
	if comment == "" {
		delete(db.commentBlocks, address)
	} else {
		db.commentBlocks[address] = comment
	}
	db.dirty = true
}

// CommentBlock returns the comment block that precedes the address.
func (db *Database) CommentBlock(address uint16) string {
	return db.commentBlocks[address]
}

// SetDirty flags the database as modified.
func (db *Database) SetDirty() {
	db.dirty = true
}

// Dirty returns whether the database was modified since the last ClearDirty call.
func (db *Database) Dirty() bool {
	return db.dirty
}

// ClearDirty resets the modified flag.
func (db *Database) ClearDirty() {
	db.dirty = false
}

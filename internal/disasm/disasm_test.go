package disasm

import (
	"context"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/z80analyser/internal/consts"
	"github.com/retroenv/z80analyser/internal/database"
	"github.com/retroenv/z80analyser/internal/memory"
	"github.com/retroenv/z80analyser/internal/memstats"
	"github.com/retroenv/z80analyser/internal/options"
	"github.com/retroenv/z80analyser/internal/program"
)

type mockStats struct {
	exec  map[uint16]int
	read  map[uint16]int
	write map[uint16]int
}

func newMockStats() *mockStats {
	return &mockStats{
		exec:  map[uint16]int{},
		read:  map[uint16]int{},
		write: map[uint16]int{},
	}
}

func (m *mockStats) ExecCount(address uint16) int  { return m.exec[address] }
func (m *mockStats) ReadCount(address uint16) int  { return m.read[address] }
func (m *mockStats) WriteCount(address uint16) int { return m.write[address] }

func (m *mockStats) Use(address uint16) (memstats.Use, bool) {
	switch {
	case m.exec[address] > 0:
		return memstats.Code, m.write[address] > 0
	case m.read[address] > 0 || m.write[address] > 0:
		return memstats.Data, false
	default:
		return memstats.Unknown, false
	}
}

var testProgram = []byte{
	0x21, 0x00, 0x90, // 8000 LD HL,$9000
	0x3A, 0x12, 0x80, // 8003 LD A,($8012)
	0xCD, 0x10, 0x80, // 8006 CALL $8010
	0x18, 0xFE, // 8009 JR $8009
	0x00, 0x00, 0x00, 0x00, 0x00, // 800B
	0xC9,       // 8010 RET
	0x00,       // 8011
	0x41, 0x42, // 8012
}

func newTestDisasm(t *testing.T, stats Statistics, data []byte) (*Disasm, *database.Database) {
	t.Helper()

	mem := memory.New()
	assert.NoError(t, mem.Load(0x8000, data))

	constants, err := consts.New(consts.Spectrum48K{})
	assert.NoError(t, err)

	opts := options.NewAnalyser("skool")
	opts.StartAddress = 0x8000
	opts.ExportStart = 0x8000
	opts.ExportEnd = 0x8000 + uint16(len(data)) - 1

	db := database.New()
	return New(log.NewTestLogger(t), mem, db, stats, constants, opts), db
}

func TestDisasm_TraceCode(t *testing.T) {
	dis, db := newTestDisasm(t, newMockStats(), testProgram)
	assert.NoError(t, dis.TraceCode(context.Background(), 0x8000))

	for _, address := range []uint16{0x8000, 0x8003, 0x8006, 0x8009, 0x8010} {
		assert.NotNil(t, db.CodeInfo(address))
	}
	assert.Nil(t, db.CodeInfo(0x800B))

	tests := []struct {
		address uint16
		name    string
		typ     database.LabelType
	}{
		{0x8009, "label_8009", database.CodeLabel},
		{0x8010, "function_8010", database.FunctionLabel},
		{0x8012, "data_8012", database.DataLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label := db.Label(tt.address)
			assert.NotNil(t, label)
			assert.Equal(t, tt.name, label.Name)
			assert.Equal(t, tt.typ, label.Type)
		})
	}
	assert.True(t, db.HasDataInfo(0x8012))
}

func TestDisasm_TraceCodeCanceled(t *testing.T) {
	dis, _ := newTestDisasm(t, newMockStats(), testProgram)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dis.TraceCode(ctx, 0x8000)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDisasm_Process(t *testing.T) {
	dis, _ := newTestDisasm(t, newMockStats(), testProgram)
	assert.NoError(t, dis.TraceCode(context.Background(), 0x8000))

	app, err := dis.Process(context.Background(), "test")
	assert.NoError(t, err)

	type entry struct {
		directive program.Directive
		address   uint16
		lines     int
	}
	expected := []entry{
		{program.CodeDirective, 0x8000, 3},
		{program.CodeDirective, 0x8009, 1},
		{program.UnusedDirective, 0x800B, 1},
		{program.CodeDirective, 0x8010, 1},
		{program.UnusedDirective, 0x8011, 1},
		{program.DataDirective, 0x8012, 1},
		{program.UnusedDirective, 0x8013, 1},
	}
	assert.Len(t, app.Entries, len(expected))
	for i, e := range expected {
		assert.Equal(t, e.directive, app.Entries[i].Directive)
		assert.Equal(t, e.address, app.Entries[i].Address)
		assert.Len(t, app.Entries[i].Offsets, e.lines)
	}

	code := app.Entries[0].Offsets
	assert.Equal(t, "LD HL,$9000", code[0].Code)
	assert.Equal(t, "LD A,(data_8012)", code[1].Code)
	assert.Equal(t, "CALL function_8010", code[2].Code)

	loop := app.Entries[1].Offsets[0]
	assert.Equal(t, "JR label_8009", loop.Code)
	assert.True(t, loop.IsType(program.JumpDestination))
	assert.True(t, loop.LabelGenerated)

	assert.Equal(t, "DEFB $00,$00,$00,$00,$00", app.Entries[2].Offsets[0].Code)
	assert.Equal(t, "DEFB $41", app.Entries[5].Offsets[0].Code)
	assert.True(t, app.Entries[3].Offsets[0].IsType(program.CallDestination))
	assert.True(t, app.Checksum != 0)
}

func TestDisasm_ProcessStatistics(t *testing.T) {
	data := []byte{
		0x3E, 0x01, // 8000 LD A,$01
		0x32, 0x01, 0x80, // 8002 LD ($8001),A
		0xC3, 0x05, 0x80, // 8005 JP $8005
		0xAA, 0xBB,
	}

	stats := newMockStats()
	for address := uint16(0x8000); address < 0x8008; address++ {
		stats.exec[address] = 1
	}
	stats.write[0x8001] = 1
	stats.read[0x8008] = 2

	dis, db := newTestDisasm(t, stats, data)
	assert.NoError(t, dis.ProcessStatistics(context.Background()))
	assert.NotNil(t, db.CodeInfo(0x8000))
	assert.NotNil(t, db.CodeInfo(0x8002))
	assert.NotNil(t, db.CodeInfo(0x8005))
	assert.Nil(t, db.CodeInfo(0x8008))
	assert.Nil(t, db.Label(0x8001)) // operand of an instruction

	app, err := dis.Process(context.Background(), "test")
	assert.NoError(t, err)
	assert.Len(t, app.Entries, 3)
	assert.Len(t, app.Entries[0].Offsets, 3)

	first := app.Entries[0].Offsets[0]
	assert.True(t, first.IsType(program.SelfModified))
	assert.False(t, app.Entries[0].Offsets[1].IsType(program.SelfModified))

	assert.Equal(t, program.DataDirective, app.Entries[1].Directive)
	assert.Equal(t, "DEFB $AA", app.Entries[1].Offsets[0].Code)
	assert.Equal(t, program.UnusedDirective, app.Entries[2].Directive)
}

func TestDisasm_JumpIntoInstruction(t *testing.T) {
	data := []byte{
		0x3E, 0xAF, // 8000 LD A,$AF, a jump to 8001 executes XOR A
		0x18, 0xFD, // 8002 JR $8001
	}

	dis, db := newTestDisasm(t, newMockStats(), data)
	assert.NoError(t, dis.TraceCode(context.Background(), 0x8000))

	assert.True(t, db.CodeInfo(0x8000).Disabled)
	assert.NotNil(t, db.CodeInfo(0x8001))
	assert.Equal(t, "branch into instruction detected", db.DataInfo(0x8000).Comment)

	app, err := dis.Process(context.Background(), "test")
	assert.NoError(t, err)
	offsets := app.Offsets()
	assert.Equal(t, "DEFB $3E", offsets[0].Code)
	assert.Equal(t, "XOR A", offsets[1].Code)
}

func TestDisasm_ROMConstants(t *testing.T) {
	data := []byte{
		0xCD, 0x6B, 0x0D, // 8000 CALL $0D6B
		0x3A, 0x78, 0x5C, // 8003 LD A,($5C78)
		0xC9, // 8006 RET
	}

	dis, db := newTestDisasm(t, newMockStats(), data)
	assert.NoError(t, dis.TraceCode(context.Background(), 0x8000))
	assert.Nil(t, db.Label(0x0D6B))

	app, err := dis.Process(context.Background(), "test")
	assert.NoError(t, err)

	offsets := app.Offsets()
	assert.Equal(t, "CALL CLS", offsets[0].Code)
	assert.Equal(t, "LD A,(FRAMES)", offsets[1].Code)
	assert.Equal(t, uint16(0x0D6B), app.Constants["CLS"])
	assert.Equal(t, uint16(0x5C78), app.Constants["FRAMES"])
}

func TestDataText(t *testing.T) {
	mem := memory.New()
	assert.NoError(t, mem.Load(0x9000, []byte{'H', 'i', 0x0D, '!' | 0x80, 0x34, 0x12}))

	tests := []struct {
		name     string
		typ      database.DataType
		address  uint16
		size     int
		expected string
	}{
		{"byte", database.Byte, 0x9000, 1, "DEFB $48"},
		{"byte array", database.ByteArray, 0x9000, 3, "DEFB $48,$69,$0D"},
		{"word", database.Word, 0x9004, 2, "DEFW $1234"},
		{"word array", database.WordArray, 0x9002, 4, "DEFW $A10D,$1234"},
		{"text", database.Text, 0x9000, 4, `DEFM "Hi",$0D,"!"+$80`},
		{"text without characters", database.Text, 0x9002, 1, "DEFB $0D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dataText(mem, tt.typ, tt.address, tt.size))
		})
	}
}

func TestDisasm_InstructionExceedsRange(t *testing.T) {
	data := []byte{
		0x00,       // 8000 NOP
		0x21, 0x34, // 8001 LD HL,$xx34 continues after the exported range
	}

	dis, db := newTestDisasm(t, newMockStats(), data)
	assert.NoError(t, dis.TraceCode(context.Background(), 0x8000))
	assert.NotNil(t, db.CodeInfo(0x8001))

	app, err := dis.Process(context.Background(), "test")
	assert.NoError(t, err)

	offsets := app.Offsets()
	assert.Len(t, offsets, 2)
	assert.Equal(t, "NOP", offsets[0].Code)
	assert.Equal(t, "DEFB $21,$34", offsets[1].Code)
	assert.Equal(t, program.UnusedDirective, app.Entries[1].Directive)
}

func TestDisasm_ProcessSplitsAtStopInstructions(t *testing.T) {
	data := []byte{
		0xCD, 0x04, 0x80, // 8000 CALL $8004
		0x00,             // 8003 NOP
		0xC8,             // 8004 RET Z
		0x00,             // 8005 NOP
		0xC7,             // 8006 RST $00
		0x00,             // 8007 NOP
		0xC4, 0x0C, 0x80, // 8008 CALL NZ,$800C
		0x00, // 800B NOP
		0xC9, // 800C RET
	}

	stats := newMockStats()
	for address := uint16(0x8000); address < 0x800D; address++ {
		stats.exec[address] = 1
	}

	dis, _ := newTestDisasm(t, stats, data)
	assert.NoError(t, dis.ProcessStatistics(context.Background()))

	app, err := dis.Process(context.Background(), "test")
	assert.NoError(t, err)

	expected := []struct {
		address uint16
		lines   int
	}{
		{0x8000, 1},
		{0x8003, 1},
		{0x8004, 1},
		{0x8005, 2},
		{0x8007, 2},
		{0x800B, 1},
		{0x800C, 1},
	}
	assert.Len(t, app.Entries, len(expected))
	for i, e := range expected {
		assert.Equal(t, program.CodeDirective, app.Entries[i].Directive)
		assert.Equal(t, e.address, app.Entries[i].Address)
		assert.Len(t, app.Entries[i].Offsets, e.lines)
	}
}

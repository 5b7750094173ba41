package consts

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/z80analyser/internal/program"
)

type mockSystem struct {
	constants map[uint16]Constant
	err       error
}

func (m *mockSystem) Constants() (map[uint16]Constant, error) {
	return m.constants, m.err
}

func TestNew(t *testing.T) {
	t.Run("creates with constants", func(t *testing.T) {
		consts, err := New(Spectrum48K{})

		assert.NoError(t, err)
		assert.NotNil(t, consts)
		cls, ok := consts.Get(0x0D6B)
		assert.True(t, ok)
		assert.Equal(t, "CLS", cls.Name)
		assert.True(t, cls.Routine)

		frames, ok := consts.Get(0x5C78)
		assert.True(t, ok)
		assert.Equal(t, "FRAMES", frames.Name)
		assert.False(t, frames.Routine)
	})

	t.Run("returns error from system", func(t *testing.T) {
		sys := &mockSystem{err: errors.New("test error")} //nolint:err113 // test error

		consts, err := New(sys)

		assert.Error(t, err)
		assert.Nil(t, consts)
	})
}

func TestReplaceAddress(t *testing.T) {
	tests := []struct {
		name       string
		address    uint16
		isJump     bool
		wantResult string
		wantOK     bool
	}{
		{"routine as call target", 0x0D6B, true, "CLS", true},
		{"routine as data reference", 0x0D6B, false, "", false},
		{"system variable as data reference", 0x5C78, false, "FRAMES", true},
		{"system variable as jump target", 0x5C78, true, "", false},
		{"unknown address", 0x8000, false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consts, err := New(Spectrum48K{})
			assert.NoError(t, err)

			result, ok := consts.ReplaceAddress(tt.address, tt.isJump)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantResult, result)
			assert.Equal(t, tt.wantOK, consts.IsUsed(tt.address))
		})
	}
}

func TestSetToProgram(t *testing.T) {
	consts, err := New(Spectrum48K{})
	assert.NoError(t, err)
	consts.MarkUsed(0x5C78)
	consts.MarkUsed(0x0010)
	consts.MarkUsed(0x8000) // not a constant

	used := consts.Used()
	assert.Len(t, used, 2)
	assert.Equal(t, "PRINT_A_1", used[0].Name)

	app := program.New("test", 0x8000, 0x8000)
	consts.SetToProgram(app)

	assert.Equal(t, 2, len(app.Constants))
	assert.Equal(t, uint16(0x5C78), app.Constants["FRAMES"])
	assert.Equal(t, uint16(0x0010), app.Constants["PRINT_A_1"])
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnitName(t *testing.T) {
	tests := []struct {
		raw  string
		want UnitName
	}{
		{"laser-cutting", UnitLaserCutting},
		{"Laser Cutting", UnitLaserCutting},
		{"  MILLING ", UnitMilling},
		{"bending", UnitBending},
		{"Drilling", UnitDrilling},
	}
	for _, tt := range tests {
		got, err := ParseUnitName(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseUnitName("welding")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidatePO(t *testing.T) {
	for _, po := range []string{"PO-100", "po_7", "A1"} {
		assert.NoError(t, ValidatePO(po), po)
	}
	for _, po := range []string{"", "PO 100", "PO/1", "PO-100;DROP", "ü"} {
		assert.ErrorIs(t, ValidatePO(po), ErrInvalidInput, po)
	}
}

func TestStatusTime(t *testing.T) {
	absent := AbsentStatusTime()
	_, ok := absent.Unix()
	assert.False(t, ok)
	assert.Equal(t, TimestampAbsent, absent.State())

	zero := NewStatusTime(0)
	ts, ok := zero.Unix()
	assert.True(t, ok)
	assert.Equal(t, int64(0), ts)

	assert.Equal(t, "unknown", UnknownStatusTime().String())
	assert.Equal(t, "1700000000", NewStatusTime(1700000000).String())
}

func TestUnit(t *testing.T) {
	u := NewUnit(UnitMilling)
	assert.Equal(t, StatusToDo, u.Status())
	assert.False(t, u.StatusTime().IsSet())
	assert.True(t, u.IsKnown())

	unk := UnknownUnit(UnitMilling)
	assert.Equal(t, StatusUnknown, unk.Status())
	assert.Equal(t, TimestampUnknown, unk.StatusTime().State())
	assert.False(t, unk.IsKnown())
}

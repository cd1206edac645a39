package protocol

import (
	"context"
	"testing"

	"qclctl/internal/device"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistryRejectsBadDefinitions(t *testing.T) {
	base := Operation{Name: "level", Kind: KindInt, GetCommand: "L?", SetCommand: "L %d"}

	tests := map[string]func(op *Operation){
		"empty name":         func(op *Operation) { op.Name = "" },
		"upper case name":    func(op *Operation) { op.Name = "Level" },
		"no kind":            func(op *Operation) { op.Kind = 0 },
		"no commands":        func(op *Operation) { op.GetCommand, op.SetCommand = "", "" },
		"two verbs":          func(op *Operation) { op.SetCommand = "L %d %d" },
		"no verb":            func(op *Operation) { op.SetCommand = "L" },
		"float verb on int":  func(op *Operation) { op.SetCommand = "L %.2f" },
		"terminator in cmd":  func(op *Operation) { op.GetCommand = "L?\n" },
		"inverted range":     func(op *Operation) { op.Range = &Range{Min: 5, Max: 1} },
		"precision on int":   func(op *Operation) { op.Precision = 2 },
		"negative tolerance": func(op *Operation) { op.Tolerance = -1 },
		"readback without get": func(op *Operation) {
			op.GetCommand = ""
			op.SetReply = ReplyReadback
		},
		"enum items on int": func(op *Operation) { op.Enum = []EnumItem{{Code: "0", Label: "off"}} },
		"enum without items": func(op *Operation) {
			op.Kind = KindEnum
			op.SetCommand = "L %s"
		},
		"range on enum": func(op *Operation) {
			op.Kind = KindEnum
			op.SetCommand = "L %s"
			op.Enum = []EnumItem{{Code: "0", Label: "off"}}
			op.Range = &Range{Min: 0, Max: 1}
		},
		"duplicate enum label": func(op *Operation) {
			op.Kind = KindEnum
			op.SetCommand = "L %s"
			op.Enum = []EnumItem{{Code: "0", Label: "off"}, {Code: "1", Label: "OFF"}}
		},
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			op := base
			mutate(&op)
			_, err := NewRegistry(op)
			require.ErrorIs(t, err, ErrInvalidOperation)
		})
	}

	_, err := NewRegistry(base, base)
	require.ErrorIs(t, err, ErrInvalidOperation)

	assert.Panics(t, func() { MustRegistry(Operation{}) })
}

func TestRegistryLookup(t *testing.T) {
	rng := Range{Min: 0, Max: 10}
	reg, err := NewRegistry(Operation{Name: "pulse_rate", Kind: KindInt, GetCommand: "P?", Range: &rng})
	require.NoError(t, err)

	for _, name := range []string{"pulse_rate", "PULSE_RATE", "pulse-rate", " Pulse-Rate "} {
		op, err := reg.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, "pulse_rate", op.Name)
	}

	_, err = reg.Lookup("pulse")
	var unknown *UnknownOperationError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "pulse", unknown.Name)

	// the registry owns its copies
	rng.Max = 1
	op, _ := reg.Lookup("pulse_rate")
	op.Range.Max = 2
	again, _ := reg.Lookup("pulse_rate")
	assert.Equal(t, 10.0, again.Range.Max)
	assert.Len(t, reg.Operations(), 1)
}

func TestCoerce(t *testing.T) {
	flt := Operation{Name: "f", Kind: KindFloat, Precision: 2, Range: &Range{Min: 0, Max: 10}}

	v, err := flt.coerce("3.14159")
	require.NoError(t, err)
	assert.Equal(t, 3.14, v.Float)

	v, err = flt.coerce(uint8(7))
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.Float)

	// the bound holds for the requested value, not the rounded one
	v, err = flt.coerce(9.996)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v.Float)

	for _, bad := range []any{10.004, -0.001, 10.01, -1, "ten", true, nil} {
		_, err := flt.coerce(bad)
		require.ErrorIs(t, err, ErrValueOutOfRange, "%v", bad)
	}

	integer := Operation{Name: "i", Kind: KindInt}
	v, err = integer.coerce(4.0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v.Int)
	_, err = integer.coerce(4.5)
	require.Error(t, err)
}

func TestTolerance(t *testing.T) {
	op := Operation{Kind: KindFloat, Precision: 2}
	assert.True(t, op.matches(FloatValue(1000.00), FloatValue(1000.004)))
	assert.False(t, op.matches(FloatValue(1000.00), FloatValue(1000.01)))

	op.Tolerance = 0.5
	assert.True(t, op.matches(FloatValue(1000), FloatValue(1000.4)))

	integer := Operation{Kind: KindInt}
	assert.False(t, integer.matches(IntValue(1), IntValue(2)))
}

func modeRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(
		Operation{
			Name:       "mode",
			Kind:       KindEnum,
			GetCommand: "M?",
			SetCommand: "M=%s",
			SetReply:   ReplyEcho,
			Prefix:     "M",
			Enum: []EnumItem{
				{Code: "0", Label: "cw"},
				{Code: "1", Label: "pulsed"},
			},
		},
		Operation{
			Name:       "emission",
			Kind:       KindBool,
			GetCommand: "E?",
			SetCommand: "E=%d",
			SetReply:   ReplyEcho,
			Prefix:     "E",
		},
	)
	require.NoError(t, err)
	return reg
}

func TestEnumOperation(t *testing.T) {
	dev := device.NewMockDevice()
	dev.On("ResetInput").Return(nil)
	dev.On("WriteLine", "M=1").Return(nil).Once()
	dev.On("ReadLine", mock.Anything).Return("M1", nil).Once()
	dev.On("WriteLine", "M?").Return(nil).Once()
	dev.On("ReadLine", mock.Anything).Return("M7", nil).Once()

	e := NewEngine(dev, modeRegistry(t))
	v, err := e.Set(context.Background(), "mode", "Pulsed")
	require.NoError(t, err)
	assert.Equal(t, "pulsed", v.Label)
	assert.Equal(t, "1", v.Code)

	_, err = e.Get(context.Background(), "mode")
	require.ErrorIs(t, err, ErrDecode)

	_, err = e.Set(context.Background(), "mode", "burst")
	require.ErrorIs(t, err, ErrValueOutOfRange)
	assert.Contains(t, err.Error(), "cw, pulsed")
	dev.AssertExpectations(t)
}

func TestBoolOperation(t *testing.T) {
	dev := device.NewMockDevice()
	dev.On("ResetInput").Return(nil)
	dev.On("WriteLine", "E=1").Return(nil).Once()
	dev.On("ReadLine", mock.Anything).Return("EON", nil).Once()
	dev.On("WriteLine", "E=0").Return(nil).Once()
	dev.On("ReadLine", mock.Anything).Return("E1", nil).Once()

	e := NewEngine(dev, modeRegistry(t))
	v, err := e.Set(context.Background(), "emission", true)
	require.NoError(t, err)
	assert.True(t, v.Bool)

	v, err = e.Set(context.Background(), "emission", "off")
	require.ErrorIs(t, err, ErrValueRejected)
	assert.True(t, v.Bool)
	dev.AssertExpectations(t)
}

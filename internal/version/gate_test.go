package version

import (
	"errors"
	"testing"

	"github.com/specialistvlad/stageloader/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	minProtocol    = 21
	runtimeVersion = 0x010201A0
	editorVersion  = 0x01000000
)

func testGate() Gate {
	return NewGate(minProtocol, runtimeVersion, editorVersion)
}

func TestGate_ProtocolBelowMinimumAborts(t *testing.T) {
	g := testGate()
	for v := uint32(0); v < minProtocol; v++ {
		err := g.CheckCompatibility(host.Capabilities{
			ProtocolVersion: v,
			Mode:            host.ModeRuntime,
			RuntimeVersion:  runtimeVersion,
		})
		require.Error(t, err, "protocol %d", v)
		assert.ErrorIs(t, err, ErrIncompatibleVersion)

		var incompatible *IncompatibleError
		require.True(t, errors.As(err, &incompatible))
		assert.Equal(t, "host protocol", incompatible.Requirement.Component)
		assert.Equal(t, v, incompatible.Actual)
	}
}

func TestGate_ProtocolAtOrAboveMinimumContinues(t *testing.T) {
	g := testGate()
	for _, v := range []uint32{minProtocol, minProtocol + 1, 0xFFFFFFFF} {
		for _, mode := range []host.Mode{host.ModeRuntime, host.ModeEditor} {
			err := g.CheckCompatibility(host.Capabilities{
				ProtocolVersion: v,
				Mode:            mode,
				RuntimeVersion:  runtimeVersion,
				EditorVersion:   editorVersion,
			})
			assert.NoError(t, err, "protocol %d mode %s", v, mode)
		}
	}
}

func TestGate_ModeVersionRequiresExactMatch(t *testing.T) {
	g := testGate()
	tests := []struct {
		name string
		caps host.Capabilities
	}{
		{"runtime older", host.Capabilities{ProtocolVersion: minProtocol, Mode: host.ModeRuntime, RuntimeVersion: runtimeVersion - 1}},
		{"runtime newer", host.Capabilities{ProtocolVersion: minProtocol, Mode: host.ModeRuntime, RuntimeVersion: runtimeVersion + 1}},
		{"editor older", host.Capabilities{ProtocolVersion: minProtocol, Mode: host.ModeEditor, EditorVersion: editorVersion - 1}},
		{"editor newer", host.Capabilities{ProtocolVersion: minProtocol, Mode: host.ModeEditor, EditorVersion: editorVersion + 1}},
		{"editor checks editor version only", host.Capabilities{ProtocolVersion: minProtocol, Mode: host.ModeEditor, RuntimeVersion: editorVersion, EditorVersion: runtimeVersion}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := g.CheckCompatibility(tc.caps)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIncompatibleVersion)
		})
	}
}

func TestGate_UnknownModeAborts(t *testing.T) {
	err := testGate().CheckCompatibility(host.Capabilities{ProtocolVersion: minProtocol, Mode: host.Mode(7)})
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestIncompatibleError_Message(t *testing.T) {
	err := testGate().CheckCompatibility(host.Capabilities{ProtocolVersion: 3, Mode: host.ModeRuntime})
	assert.EqualError(t, err, "host protocol version 00000003 rejected, expected at least 00000015")
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
		err  bool
	}{
		{in: "21", want: 21},
		{in: "0x5000", want: 0x5000},
		{in: " 0x010201A0 ", want: 0x010201A0},
		{in: "0x0100_0000", want: 0x01000000},
		{in: "", err: true},
		{in: "0x1FFFFFFFF", err: true},
		{in: "v1", err: true},
	}
	for _, tc := range tests {
		got, err := Parse(tc.in)
		if tc.err {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

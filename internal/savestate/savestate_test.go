package savestate

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emucore "github.com/user-none/retrobackend/api"
)

type stateCore struct {
	state    []byte
	restored []byte
	failWith error
}

func (c *stateCore) SystemInfo() emucore.SystemInfo { return emucore.SystemInfo{} }
func (c *stateCore) LoadGame(emucore.GameData) (emucore.LoadedGame, error) {
	return emucore.LoadedGame{}, nil
}
func (c *stateCore) RunFrame(emucore.InputState, emucore.FrameHost) emucore.VideoFrame {
	return emucore.VideoFrame{}
}
func (c *stateCore) Reset()                          {}
func (c *stateCore) SerializeState() ([]byte, error) { return c.state, nil }
func (c *stateCore) DeserializeState(data []byte) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.restored = data
	return nil
}
func (c *stateCore) UnloadGame() {}

type sizedCore struct {
	stateCore
	size int
}

func (c *sizedCore) SerializeSize() int { return c.size }

func quiet() *log.Logger { return log.New(io.Discard) }

func TestSizeMeasuresState(t *testing.T) {
	m := New(quiet(), false)
	size, err := m.Size(&stateCore{state: make([]byte, 42)})
	require.NoError(t, err)
	assert.Equal(t, 42, size)
}

func TestSizePrefersSizer(t *testing.T) {
	m := New(quiet(), false)
	size, err := m.Size(&sizedCore{stateCore: stateCore{state: make([]byte, 10)}, size: 64})
	require.NoError(t, err)
	assert.Equal(t, 64, size)
}

func TestSizeChangeRejectedWithoutQuirk(t *testing.T) {
	core := &stateCore{state: make([]byte, 10)}
	m := New(quiet(), false)
	_, err := m.Size(core)
	require.NoError(t, err)

	core.state = make([]byte, 12)
	_, err = m.Size(core)
	assert.ErrorIs(t, err, emucore.ErrStateSizeMismatch)

	m.SetVariableSize(true)
	size, err := m.Size(core)
	require.NoError(t, err)
	assert.Equal(t, 12, size)
}

func TestSerializeZeroFillsTail(t *testing.T) {
	m := New(quiet(), false)
	dst := bytes.Repeat([]byte{0xEE}, 8)
	require.NoError(t, m.Serialize(&stateCore{state: []byte{1, 2, 3}}, dst))
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, dst)
}

func TestSerializeBufferTooSmall(t *testing.T) {
	m := New(quiet(), false)
	err := m.Serialize(&stateCore{state: make([]byte, 16)}, make([]byte, 8))
	assert.ErrorIs(t, err, emucore.ErrStateSizeMismatch)
}

func TestUnserializeRoundTrip(t *testing.T) {
	core := &stateCore{state: []byte{9, 8, 7, 6}}
	m := New(quiet(), false)

	size, err := m.Size(core)
	require.NoError(t, err)
	buf := make([]byte, size)
	require.NoError(t, m.Serialize(core, buf))

	require.NoError(t, m.Unserialize(core, buf))
	assert.Equal(t, []byte{9, 8, 7, 6}, core.restored)

	// The core gets a copy, not the frontend's buffer.
	buf[0] = 0
	assert.Equal(t, byte(9), core.restored[0])
}

func TestUnserializeRejectsUnreportedSize(t *testing.T) {
	core := &stateCore{state: make([]byte, 4)}
	m := New(quiet(), false)
	_, err := m.Size(core)
	require.NoError(t, err)

	err = m.Unserialize(core, make([]byte, 5))
	assert.ErrorIs(t, err, emucore.ErrStateSizeMismatch)
	assert.Nil(t, core.restored, "core must not be touched")
}

func TestUnserializeAfterResetRejectsOldBlob(t *testing.T) {
	core := &stateCore{state: make([]byte, 4)}
	m := New(quiet(), false)
	_, err := m.Size(core)
	require.NoError(t, err)
	blob := make([]byte, 4)
	require.NoError(t, m.Serialize(core, blob))

	m.Reset()
	err = m.Unserialize(core, blob)
	assert.ErrorIs(t, err, emucore.ErrStateSizeMismatch)
}

func TestUnserializeWrapsCoreFailure(t *testing.T) {
	core := &stateCore{state: make([]byte, 4), failWith: errors.New("bad magic")}
	m := New(quiet(), false)
	_, err := m.Size(core)
	require.NoError(t, err)

	err = m.Unserialize(core, make([]byte, 4))
	assert.ErrorIs(t, err, emucore.ErrStateCorrupt)
	assert.ErrorContains(t, err, "bad magic")

	core.failWith = emucore.NewStateError(emucore.StateSizeMismatch, "version")
	err = m.Unserialize(core, make([]byte, 4))
	assert.ErrorIs(t, err, emucore.ErrStateSizeMismatch)
}

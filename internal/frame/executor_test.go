package frame

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emucore "github.com/user-none/retrobackend/api"
)

type fakeSession struct {
	format  emucore.PixelFormat
	canDupe bool
	info    emucore.AVInfo
	vars    map[string]string
	changed []emucore.AVInfo
}

func (s *fakeSession) PixelFormat() emucore.PixelFormat { return s.format }
func (s *fakeSession) CanDupe() bool                    { return s.canDupe }
func (s *fakeSession) AVInfo() (emucore.AVInfo, bool)   { return s.info, true }
func (s *fakeSession) Variable(key string) (string, bool) {
	v, ok := s.vars[key]
	return v, ok
}
func (s *fakeSession) ChangeAVInfo(info emucore.AVInfo) error {
	s.changed = append(s.changed, info)
	s.info = info
	return nil
}

// scriptCore returns whatever frame and audio the test sets.
type scriptCore struct {
	frame    emucore.VideoFrame
	audio    []int16
	lastIn   emucore.InputState
	onFrame  func(host emucore.FrameHost)
	runCount int
}

func (c *scriptCore) SystemInfo() emucore.SystemInfo { return emucore.SystemInfo{} }
func (c *scriptCore) LoadGame(emucore.GameData) (emucore.LoadedGame, error) {
	return emucore.LoadedGame{}, nil
}
func (c *scriptCore) RunFrame(in emucore.InputState, host emucore.FrameHost) emucore.VideoFrame {
	c.runCount++
	c.lastIn = in
	if c.onFrame != nil {
		c.onFrame(host)
	}
	host.WriteAudio(c.audio)
	return c.frame
}
func (c *scriptCore) Reset()                             {}
func (c *scriptCore) SerializeState() ([]byte, error)    { return nil, nil }
func (c *scriptCore) DeserializeState(data []byte) error { return nil }
func (c *scriptCore) UnloadGame()                        {}

func newSession() *fakeSession {
	return &fakeSession{
		format: emucore.PixelFormatXRGB8888,
		info:   emucore.NewAVInfo(4, 2, 60, 600),
	}
}

func testExecutor() *Executor {
	return NewExecutor(log.New(io.Discard), nil, 1)
}

func TestRunDeliversVideoBeforeAudio(t *testing.T) {
	core := &scriptCore{
		frame: emucore.VideoFrame{Width: 4, Height: 2, Format: emucore.PixelFormatRGBA8888, Pixels: make([]byte, 32)},
		audio: []int16{1, 2, 3, 4},
	}
	var order []string
	cb := Callbacks{
		Video:      func([]byte, int, int, int) { order = append(order, "video") },
		AudioBatch: func(s []int16) int { order = append(order, "audio"); return len(s) / 2 },
		InputPoll:  func() { order = append(order, "poll") },
	}

	require.NoError(t, testExecutor().Run(core, newSession(), cb))
	assert.Equal(t, []string{"poll", "video", "audio"}, order)
}

func TestRunConvertsToNegotiatedFormat(t *testing.T) {
	core := &scriptCore{
		frame: emucore.VideoFrame{Width: 4, Height: 2, Format: emucore.PixelFormatRGBA8888, Pixels: make([]byte, 32)},
	}
	s := newSession()
	s.format = emucore.PixelFormatRGB565

	var gotStride, gotLen int
	cb := Callbacks{Video: func(p []byte, w, h, stride int) { gotStride, gotLen = stride, len(p) }}

	require.NoError(t, testExecutor().Run(core, s, cb))
	assert.Equal(t, 8, gotStride)
	assert.Equal(t, 16, gotLen)
}

func TestRunDupeFrame(t *testing.T) {
	core := &scriptCore{frame: emucore.VideoFrame{Width: 4, Height: 2}}
	s := newSession()
	s.canDupe = true

	var gotNil bool
	cb := Callbacks{Video: func(p []byte, w, h, stride int) { gotNil = p == nil }}
	require.NoError(t, testExecutor().Run(core, s, cb))
	assert.True(t, gotNil)

	s.canDupe = false
	err := testExecutor().Run(core, s, cb)
	assert.ErrorIs(t, err, ErrFrameDropped)
}

func TestRunOversizedFrameStillDeliversAudio(t *testing.T) {
	core := &scriptCore{
		frame: emucore.VideoFrame{Width: 8, Height: 8, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 256)},
		audio: []int16{5, 6},
	}
	videoCalled := false
	var audio []int16
	cb := Callbacks{
		Video:      func([]byte, int, int, int) { videoCalled = true },
		AudioBatch: func(s []int16) int { audio = append(audio, s...); return len(s) / 2 },
	}

	err := testExecutor().Run(core, newSession(), cb)
	assert.True(t, errors.Is(err, ErrFrameDropped))
	assert.False(t, videoCalled)
	assert.Equal(t, []int16{5, 6}, audio)
}

func TestRunAudioPartialConsumption(t *testing.T) {
	core := &scriptCore{
		frame: emucore.VideoFrame{Width: 1, Height: 1, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 4)},
		audio: []int16{1, 1, 2, 2, 3, 3, 4, 4, 5, 5},
	}
	var calls int
	var got []int16
	cb := Callbacks{AudioBatch: func(s []int16) int {
		calls++
		// take at most two stereo frames per call
		n := min(len(s)/2, 2)
		got = append(got, s[:n*2]...)
		return n
	}}

	require.NoError(t, testExecutor().Run(core, newSession(), cb))
	assert.Equal(t, 3, calls)
	assert.Equal(t, core.audio, got)
}

func TestRunAudioStopsWhenFrontendTakesNothing(t *testing.T) {
	core := &scriptCore{
		frame: emucore.VideoFrame{Width: 1, Height: 1, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 4)},
		audio: []int16{1, 1, 2, 2},
	}
	calls := 0
	cb := Callbacks{AudioBatch: func([]int16) int { calls++; return 0 }}

	require.NoError(t, testExecutor().Run(core, newSession(), cb))
	assert.Equal(t, 1, calls)
}

func TestRunPerSampleFallbackAndOddCount(t *testing.T) {
	core := &scriptCore{
		frame: emucore.VideoFrame{Width: 1, Height: 1, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 4)},
		audio: []int16{1, 2, 3, 4, 5},
	}
	var pairs [][2]int16
	cb := Callbacks{Audio: func(l, r int16) { pairs = append(pairs, [2]int16{l, r}) }}

	require.NoError(t, testExecutor().Run(core, newSession(), cb))
	assert.Equal(t, [][2]int16{{1, 2}, {3, 4}}, pairs)
}

func TestRunReadsMappedInput(t *testing.T) {
	mapping := []emucore.RetropadMapping{
		{RetroID: emucore.JoypadB, BitID: 4},
		{RetroID: emucore.JoypadStart, BitID: 7},
	}
	e := NewExecutor(log.New(io.Discard), mapping, 2)
	core := &scriptCore{frame: emucore.VideoFrame{Width: 1, Height: 1, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 4)}}

	cb := Callbacks{InputState: func(port, device, index, id uint) int16 {
		switch {
		case port == 0 && device == emucore.DeviceJoypad && id == emucore.JoypadUp:
			return 1
		case port == 1 && device == emucore.DeviceJoypad && id == emucore.JoypadStart:
			return 1
		case port == 1 && device == emucore.DeviceAnalog && index == emucore.AnalogLeft && id == emucore.AnalogX:
			return -1200
		}
		return 0
	}}

	require.NoError(t, e.Run(core, newSession(), cb))
	assert.True(t, core.lastIn.Pressed(0, emucore.ButtonUp))
	assert.False(t, core.lastIn.Pressed(0, 7))
	assert.True(t, core.lastIn.Pressed(1, 7))
	assert.False(t, core.lastIn.Pressed(1, 4))
	assert.Equal(t, int16(-1200), core.lastIn.Analog[1][emucore.AnalogLeft].X)
}

func TestRunChangeAVInfoAppliesBeforeVideo(t *testing.T) {
	s := newSession()
	grown := emucore.NewAVInfo(8, 8, 60, 600)
	core := &scriptCore{
		frame:   emucore.VideoFrame{Width: 8, Height: 8, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 256)},
		onFrame: func(h emucore.FrameHost) { _ = h.ChangeAVInfo(grown) },
	}
	var w, h int
	cb := Callbacks{Video: func(_ []byte, fw, fh, _ int) { w, h = fw, fh }}

	require.NoError(t, testExecutor().Run(core, s, cb))
	assert.Len(t, s.changed, 1)
	assert.Equal(t, 8, w)
	assert.Equal(t, 8, h)
}

func TestExecutorFramesAndReset(t *testing.T) {
	e := testExecutor()
	core := &scriptCore{frame: emucore.VideoFrame{Width: 1, Height: 1, Format: emucore.PixelFormatXRGB8888, Pixels: make([]byte, 4)}}
	for i := 0; i < 3; i++ {
		require.NoError(t, e.Run(core, newSession(), Callbacks{}))
	}
	assert.Equal(t, uint64(3), e.Frames())
	e.Reset()
	assert.Equal(t, uint64(0), e.Frames())
}

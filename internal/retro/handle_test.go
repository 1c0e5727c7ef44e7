package retro

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/demo"
	"github.com/user-none/retrobackend/internal/config"
	"github.com/user-none/retrobackend/internal/frame"
	"github.com/user-none/retrobackend/internal/headless"
	"github.com/user-none/retrobackend/internal/lifecycle"
)

func newHost(t *testing.T) *headless.Host {
	t.Helper()
	t.Setenv(config.EnvPath, "")
	host := headless.New()
	host.SystemDir = t.TempDir()
	host.CanDupe = true
	return host
}

func newHandle(t *testing.T, host *headless.Host) (*Handle, *demo.Core) {
	t.Helper()
	core := demo.New().(*demo.Core)
	h := New(core, demo.Mapping)
	h.SetEnvironment(host)
	h.SetCallbacks(host.Callbacks())
	h.Init()
	return h, core
}

func loadDemo(t *testing.T, h *Handle, data string) {
	t.Helper()
	require.NoError(t, h.LoadGame(emucore.DataGame("game.rdemo", []byte(data))))
}

// pixelAt returns the B, G, R bytes of an XRGB8888 pixel.
func pixelAt(f headless.Frame, x, y int) [3]byte {
	off := y*f.Stride + x*4
	return [3]byte{f.Pixels[off], f.Pixels[off+1], f.Pixels[off+2]}
}

func TestLoadGameNegotiates(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	info, ok := h.AVInfo()
	require.True(t, ok)
	assert.Equal(t, demo.ScreenWidth, info.Geometry.BaseWidth)
	assert.Equal(t, demo.ScreenHeight, info.Geometry.BaseHeight)
	assert.Equal(t, emucore.PixelFormatXRGB8888, host.Format)
	assert.Equal(t, lifecycle.Loaded, h.State())
	assert.Equal(t, emucore.RegionNTSC, h.Region())
	assert.False(t, host.NoGame)
	assert.Len(t, host.Descriptors, 7)
	assert.Equal(t, uint(1), host.Performance)

	keys := make(map[string]string)
	for _, v := range host.Variables {
		keys[v.Key] = v.Value
	}
	assert.Equal(t, "Palette; color|mono", keys["retrodemo_palette"])
	assert.Equal(t, "Scroll speed; 1|0|2|3|4", keys["retrodemo_speed"])
	assert.Equal(t, "Region; Auto|NTSC|PAL", keys["retrodemo_region"])

	c := h.Content()
	require.NotNil(t, c)
	assert.Equal(t, "game.rdemo", c.Name)
}

func TestLoadGameWithoutName(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)

	require.NoError(t, h.LoadGame(emucore.DataGame("", []byte("demo"))))
	assert.Equal(t, lifecycle.Loaded, h.State())
	require.NotNil(t, h.Content())
	assert.Empty(t, h.Content().Name)
	require.NoError(t, h.Run())
	assert.Equal(t, 1, host.Frames)
}

func TestLoadGameFailures(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)

	err := h.LoadGame(emucore.DataGame("game.rdemo", nil))
	assert.ErrorIs(t, err, emucore.ErrNoContent)
	assert.Equal(t, lifecycle.Uninitialized, h.State())

	err = h.LoadGame(emucore.DataGame("notes.txt", []byte("hello")))
	assert.ErrorIs(t, err, emucore.ErrUnsupportedContent)
	assert.Equal(t, lifecycle.Uninitialized, h.State())

	_, ok := h.AVInfo()
	assert.False(t, ok)

	// A failed load leaves the handle ready for another attempt.
	loadDemo(t, h, "demo")
	assert.Equal(t, lifecycle.Loaded, h.State())

	err = h.LoadGame(emucore.DataGame("game.rdemo", []byte("again")))
	assert.ErrorIs(t, err, lifecycle.ErrContractViolation)
}

func TestNoCore(t *testing.T) {
	h := New(nil, nil)
	assert.ErrorIs(t, h.LoadGame(emucore.DataGame("a.bin", []byte{1})), ErrNoCore)
}

func TestRunBeforeLoad(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)

	err := h.Run()
	assert.ErrorIs(t, err, lifecycle.ErrContractViolation)
	assert.Zero(t, host.Frames)
	assert.Zero(t, host.Polls)

	_, err = h.SerializeSize()
	assert.ErrorIs(t, err, lifecycle.ErrContractViolation)
	assert.ErrorIs(t, h.Reset(), lifecycle.ErrContractViolation)
	assert.ErrorIs(t, h.UnloadGame(), lifecycle.ErrContractViolation)
	assert.Nil(t, h.Memory(emucore.MemorySaveRAM))
}

func TestRunDeliversFrame(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	require.NoError(t, h.Run())
	assert.Equal(t, lifecycle.Running, h.State())
	assert.Equal(t, 1, host.Frames)
	assert.Equal(t, 1, host.Polls)
	assert.Equal(t, demo.ScreenWidth, host.LastFrame.Width)
	assert.Equal(t, demo.ScreenWidth*4, host.LastFrame.Stride)
	assert.Equal(t, [3]byte{0xC0, 0xC0, 0xC0}, pixelAt(host.LastFrame, 0, 0))
	assert.Len(t, host.Audio, 800*2)
}

func TestFallbackPixelFormat(t *testing.T) {
	tests := []struct {
		name   string
		accept []emucore.PixelFormat
		want   emucore.PixelFormat
	}{
		{"RGB565 only", []emucore.PixelFormat{emucore.PixelFormatRGB565}, emucore.PixelFormatRGB565},
		{"nothing", []emucore.PixelFormat{}, emucore.PixelFormat0RGB1555},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newHost(t)
			host.AcceptFormats = tt.accept
			h, _ := newHandle(t, host)
			loadDemo(t, h, "demo")
			require.NoError(t, h.Run())

			f := host.LastFrame
			assert.Equal(t, tt.want, host.Format)
			assert.Equal(t, demo.ScreenWidth*2, f.Stride)
			assert.Len(t, f.Pixels, demo.ScreenWidth*2*demo.ScreenHeight)
		})
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	host.Press(0, emucore.JoypadRight, true)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.Run())
	}
	host.Press(0, emucore.JoypadRight, false)

	size, err := h.SerializeSize()
	require.NoError(t, err)
	require.Positive(t, size)

	buf := make([]byte, size)
	require.NoError(t, h.Serialize(buf))

	require.NoError(t, h.Run())
	want := host.LastFrame.Pixels
	wantAudio := append([]int16(nil), host.Audio[len(host.Audio)-1600:]...)

	for i := 0; i < 5; i++ {
		require.NoError(t, h.Run())
	}

	require.NoError(t, h.Unserialize(buf))
	require.NoError(t, h.Run())
	assert.Equal(t, want, host.LastFrame.Pixels)
	assert.Equal(t, wantAudio, host.Audio[len(host.Audio)-1600:])
}

func TestSerializeLargerBuffer(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	size, err := h.SerializeSize()
	require.NoError(t, err)

	buf := make([]byte, size+8)
	for i := range buf {
		buf[i] = 0xEE
	}
	require.NoError(t, h.Serialize(buf))
	assert.Equal(t, make([]byte, 8), buf[size:])

	assert.ErrorIs(t, h.Serialize(make([]byte, size-1)), emucore.ErrStateSizeMismatch)
}

func TestUnserializeAfterReload(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	size, err := h.SerializeSize()
	require.NoError(t, err)
	old := make([]byte, size)
	require.NoError(t, h.Serialize(old))

	require.NoError(t, h.UnloadGame())
	loadDemo(t, h, "different")

	err = h.Unserialize(old)
	assert.ErrorIs(t, err, emucore.ErrStateSizeMismatch)

	// Once the size is reported the core itself rejects the foreign state.
	_, err = h.SerializeSize()
	require.NoError(t, err)
	assert.ErrorIs(t, h.Unserialize(old), emucore.ErrStateCorrupt)
}

func TestVariableChangeAppliesNextFrame(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	cb := host.Callbacks()
	poll := cb.InputPoll
	changeDuringFrame := false
	cb.InputPoll = func() {
		poll()
		if changeDuringFrame {
			host.SetVariable("retrodemo_palette", "mono")
			changeDuringFrame = false
		}
	}
	h.SetCallbacks(cb)

	changeDuringFrame = true
	require.NoError(t, h.Run())
	// Yellow bar still in colour.
	p := pixelAt(host.LastFrame, 40, 0)
	assert.NotEqual(t, p[0], p[1])

	require.NoError(t, h.Run())
	p = pixelAt(host.LastFrame, 40, 0)
	assert.Equal(t, p[0], p[1])
	assert.Equal(t, p[1], p[2])
}

func TestOptionAppliedToCore(t *testing.T) {
	host := newHost(t)
	host.SetVariable("retrodemo_tone", "false")
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	require.NoError(t, h.Run())
	for _, s := range host.Audio {
		require.Zero(t, s)
	}
}

func TestRegionOverride(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "PAL content")
	assert.Equal(t, emucore.RegionPAL, h.Region())

	host.SetVariable("retrodemo_region", "NTSC")
	require.NoError(t, h.Run())
	assert.Equal(t, emucore.RegionNTSC, h.Region())

	host.SetVariable("retrodemo_region", "Auto")
	require.NoError(t, h.Run())
	assert.Equal(t, emucore.RegionPAL, h.Region())
}

func TestConfigOptionDefaults(t *testing.T) {
	host := newHost(t)
	yml := "log_level: debug\noptions:\n  palette: mono\n  speed: \"9\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(host.SystemDir, "retrodemo.yml"), []byte(yml), 0644))

	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	keys := make(map[string]string)
	for _, v := range host.Variables {
		keys[v.Key] = v.Value
	}
	assert.Equal(t, "Palette; mono|color", keys["retrodemo_palette"])
	// Out of range defaults are ignored.
	assert.Equal(t, "Scroll speed; 1|0|2|3|4", keys["retrodemo_speed"])
}

func TestLogInterfaceRouting(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	found := false
	for _, l := range host.Logs {
		if strings.Contains(l.Text, "game loaded") {
			found = true
		}
	}
	assert.True(t, found, "expected load message through the log interface")
}

func TestMemorySync(t *testing.T) {
	host := newHost(t)
	h, core := newHandle(t, host)
	loadDemo(t, h, "demo")

	save := h.Memory(emucore.MemorySaveRAM)
	require.Len(t, save, 256)
	save[3] = 7

	require.NoError(t, h.Run())
	assert.Equal(t, byte(7), core.ReadRegion(emucore.MemorySaveRAM)[3])

	ram := h.Memory(emucore.MemorySystemRAM)
	require.NotNil(t, ram)
	assert.Equal(t, byte(1), ram[1])
	assert.Nil(t, h.Memory(emucore.MemoryVideoRAM))

	require.NoError(t, h.UnloadGame())
	assert.Nil(t, h.Memory(emucore.MemorySaveRAM))
}

func TestCheats(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)

	// Ignored without content.
	h.SetCheat(0, true, "00:10")
	loadDemo(t, h, "demo")

	h.SetCheat(0, true, "00:10")
	require.NoError(t, h.Run())
	assert.Equal(t, byte(0x10), h.Memory(emucore.MemorySystemRAM)[0])

	h.ResetCheats()
	require.NoError(t, h.Reset())
	require.NoError(t, h.Run())
	assert.Equal(t, byte(0xFF), h.Memory(emucore.MemorySystemRAM)[0])
}

type deviceCore struct {
	*demo.Core
	devices map[int]uint
}

func (c *deviceCore) SetControllerDevice(port int, device uint) {
	c.devices[port] = device
}

func TestControllerDeviceReplayed(t *testing.T) {
	host := newHost(t)
	core := &deviceCore{Core: demo.New().(*demo.Core), devices: map[int]uint{}}
	h := New(core, demo.Mapping)
	h.SetEnvironment(host)
	h.SetCallbacks(host.Callbacks())
	h.Init()

	h.SetControllerDevice(1, emucore.DeviceAnalog)
	h.SetControllerDevice(9, emucore.DeviceJoypad)
	assert.Empty(t, core.devices)

	loadDemo(t, h, "demo")
	assert.Equal(t, map[int]uint{1: emucore.DeviceAnalog}, core.devices)

	h.SetControllerDevice(0, emucore.DeviceJoypad)
	assert.Equal(t, emucore.DeviceJoypad, core.devices[0])
}

func TestChangeAVInfo(t *testing.T) {
	host := newHost(t)
	host.SetVariable("retrodemo_width", "320")
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	require.NoError(t, h.Run())
	assert.Equal(t, 1, host.AVChanges)
	assert.Equal(t, demo.WideWidth, host.AVInfo.Geometry.BaseWidth)
	assert.Equal(t, demo.WideWidth, host.LastFrame.Width)

	info, _ := h.AVInfo()
	assert.Equal(t, demo.WideWidth, info.Geometry.BaseWidth)
}

func TestChangeAVInfoRejected(t *testing.T) {
	host := newHost(t)
	host.RejectAVChanges = true
	host.SetVariable("retrodemo_width", "320")
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	require.NoError(t, h.Run())
	assert.Zero(t, host.AVChanges)
	assert.Equal(t, demo.ScreenWidth, host.LastFrame.Width)

	info, _ := h.AVInfo()
	assert.Equal(t, demo.ScreenWidth, info.Geometry.BaseWidth)
}

func TestChangeAVInfoOutsideFrame(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	err := session{h}.ChangeAVInfo(emucore.NewAVInfo(320, 240, 60, 48000))
	assert.ErrorIs(t, err, lifecycle.ErrContractViolation)
}

func TestDupeFrames(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	host.Press(0, emucore.JoypadStart, true)
	require.NoError(t, h.Run())
	assert.Equal(t, 1, host.Dupes)
}

func TestDupeWithoutSupport(t *testing.T) {
	host := newHost(t)
	host.CanDupe = false
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	host.Press(0, emucore.JoypadStart, true)
	err := h.Run()
	assert.ErrorIs(t, err, frame.ErrFrameDropped)
	assert.Zero(t, host.Frames)
	// Audio is still delivered.
	assert.Len(t, host.Audio, 800*2)
}

type sizedAllocator struct {
	allocs, frees int
}

func (a *sizedAllocator) Alloc(size int) []byte { a.allocs++; return make([]byte, size) }
func (a *sizedAllocator) Free([]byte)           { a.frees++ }

func TestAllocator(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	alloc := &sizedAllocator{}
	h.SetAllocator(alloc)

	loadDemo(t, h, "demo")
	assert.Equal(t, 2, alloc.allocs)

	h.Deinit()
	assert.Equal(t, 2, alloc.frees)
	assert.Equal(t, lifecycle.Uninitialized, h.State())
}

func TestAudioCapture(t *testing.T) {
	host := newHost(t)
	path := filepath.Join(t.TempDir(), "out.wav")
	yml := "audio_capture: " + path + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(host.SystemDir, "retrodemo.yml"), []byte(yml), 0644))

	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")
	require.NoError(t, h.Run())
	require.NoError(t, h.UnloadGame())

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(800*4))
}

func TestUnserializeRejectedShowsMessage(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")

	assert.Error(t, h.Unserialize(make([]byte, 3)))
	assert.Equal(t, []string{"Save state rejected"}, host.Messages)
}

func TestShutdown(t *testing.T) {
	host := newHost(t)
	h, _ := newHandle(t, host)
	h.Shutdown()
	assert.True(t, host.ShutdownReq)
}

func TestAudioCaptureRelativePath(t *testing.T) {
	host := newHost(t)
	host.SaveDir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(host.SystemDir, "retrodemo.yml"), []byte("audio_capture: demo.wav\n"), 0644))

	h, _ := newHandle(t, host)
	loadDemo(t, h, "demo")
	require.NoError(t, h.Run())
	require.NoError(t, h.UnloadGame())

	assert.FileExists(t, filepath.Join(host.SaveDir, "demo.wav"))
}

// Package demo is a deterministic test-pattern core. It renders moving
// colour bars and a player cursor, plays a square wave, and exercises every
// optional part of the core contract, which makes it useful for checking a
// frontend or the adapter itself without a real emulator.
package demo

import (
	"hash/crc32"
	"strings"

	emucore "github.com/user-none/retrobackend/api"
)

// Screen geometry. The frame buffer is always sized for the wide mode so
// the narrow mode exercises a stride larger than the row.
const (
	ScreenWidth     = 256
	WideWidth       = 320
	ScreenHeight    = 240
	SampleRate      = 48000
	FPSNTSC         = 60.0
	FPSPAL          = 50.0
	saveRAMSize     = 256
	systemRAMSize   = 64
	toneFrequency   = 440
	toneAmplitude   = 4000
	cursorSize      = 8
	cursorStartX    = (ScreenWidth - cursorSize) / 2
	cursorStartY    = (ScreenHeight - cursorSize) / 2
	systemRAMCursor = 0 // system RAM offset of the cursor colour
	systemRAMFrame  = 1 // system RAM offset of the little-endian frame counter
)

// displayAspect is the shape of the screen regardless of width mode.
const displayAspect = 4.0 / 3.0

// Button bit positions beyond the d-pad.
const (
	ButtonA      = 4
	ButtonB      = 5
	ButtonSelect = 6
	ButtonStart  = 7
)

// Mapping maps the retropad to the demo's buttons.
var Mapping = []emucore.RetropadMapping{
	{RetroID: emucore.JoypadA, BitID: ButtonA},
	{RetroID: emucore.JoypadB, BitID: ButtonB},
	{RetroID: emucore.JoypadSelect, BitID: ButtonSelect},
	{RetroID: emucore.JoypadStart, BitID: ButtonStart},
}

// Info is the demo core's system description.
var Info = emucore.SystemInfo{
	CoreName:    "retrodemo",
	CoreVersion: "0.1.0",
	Extensions:  []string{".rdemo", ".bin"},
	Buttons: []emucore.Button{
		{Name: "A", ID: ButtonA},
		{Name: "B", ID: ButtonB},
		{Name: "Select", ID: ButtonSelect},
		{Name: "Start", ID: ButtonStart},
	},
	Players:          2,
	PerformanceLevel: 1,
	CoreOptions: []emucore.CoreOption{
		{
			Key:         "palette",
			Label:       "Palette",
			Description: "Colour bars or greyscale",
			Type:        emucore.CoreOptionSelect,
			Default:     "color",
			Values:      []string{"color", "mono"},
		},
		{
			Key:     "tone",
			Label:   "Test tone",
			Type:    emucore.CoreOptionBool,
			Default: "true",
		},
		{
			Key:     "speed",
			Label:   "Scroll speed",
			Type:    emucore.CoreOptionRange,
			Default: "1",
			Min:     0,
			Max:     4,
			Step:    1,
		},
		{
			Key:     "width",
			Label:   "Screen width",
			Type:    emucore.CoreOptionSelect,
			Default: "256",
			Values:  []string{"256", "320"},
		},
	},
	RDBName: "Retro Demo",
}

// Core is the demo core. The zero value is ready to use.
type Core struct {
	loaded  bool
	romCRC  uint32
	fps     float64
	region  emucore.Region
	options options

	frame     uint64
	cursorX   int32
	cursorY   int32
	scroll    uint32
	phase     uint32 // samples into the tone period
	carry     uint32 // fractional audio samples, in 1/fps units
	paused    bool
	lastStart bool
	width     int

	saveRAM   [saveRAMSize]byte
	systemRAM [systemRAMSize]byte

	cheats  map[int]cheat
	devices [emucore.MaxPorts]uint

	pixels []byte
	audio  []int16
}

type options struct {
	mono  bool
	tone  bool
	speed int
	wide  bool
}

func defaultOptions() options {
	return options{tone: true, speed: 1}
}

// New returns a demo core.
func New() emucore.Core {
	return &Core{}
}

// SystemInfo describes the demo core.
func (c *Core) SystemInfo() emucore.SystemInfo {
	return Info
}

// LoadGame accepts any non-empty content. Content whose name carries a
// European region tag, or whose first byte is 'P', runs at 50 fps.
func (c *Core) LoadGame(game emucore.GameData) (emucore.LoadedGame, error) {
	data, ok := game.Data()
	if !ok {
		return emucore.LoadedGame{}, emucore.NewLoadError(emucore.LoadUnsupported, "demo core needs content data")
	}
	if len(data) == 0 {
		return emucore.LoadedGame{}, emucore.NewLoadError(emucore.LoadMissing, "empty content")
	}

	region := emucore.RegionNTSC
	if data[0] == 'P' || strings.Contains(strings.ToLower(game.Name()), "(europe)") {
		region = emucore.RegionPAL
	}

	c.romCRC = crc32.ChecksumIEEE(data)
	c.region = region
	c.fps = FPSNTSC
	if region == emucore.RegionPAL {
		c.fps = FPSPAL
	}
	c.options = defaultOptions()
	c.cheats = make(map[int]cheat)
	c.pixels = make([]byte, WideWidth*ScreenHeight*4)
	c.loaded = true
	c.powerOn()

	return emucore.LoadedGame{
		AVInfo:       c.avInfo(ScreenWidth),
		PixelFormats: []emucore.PixelFormat{emucore.PixelFormatXRGB8888, emucore.PixelFormatRGB565},
		Region:       region,
		HasRegion:    true,
		InputDescriptors: []emucore.InputDescriptor{
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadUp, Description: "Up"},
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadDown, Description: "Down"},
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadLeft, Description: "Left"},
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadRight, Description: "Right"},
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadA, Description: "Paint"},
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadB, Description: "Clear"},
			{Port: 0, Device: emucore.DeviceJoypad, ID: emucore.JoypadStart, Description: "Pause"},
		},
	}, nil
}

func (c *Core) avInfo(width int) emucore.AVInfo {
	return emucore.NewAVInfo(width, ScreenHeight, c.fps, SampleRate).
		WithMaxSize(WideWidth, ScreenHeight).
		WithAspectRatio(displayAspect)
}

// powerOn puts the machine in its power-on state.
func (c *Core) powerOn() {
	c.frame = 0
	c.cursorX = cursorStartX
	c.cursorY = cursorStartY
	c.scroll = 0
	c.phase = 0
	c.carry = 0
	c.paused = false
	c.lastStart = false
	c.width = ScreenWidth
	if c.options.wide {
		c.width = WideWidth
	}
	c.systemRAM = [systemRAMSize]byte{}
	c.systemRAM[systemRAMCursor] = 0xFF
}

// Reset restarts the pattern. Save RAM survives.
func (c *Core) Reset() {
	c.powerOn()
}

// UnloadGame drops the content.
func (c *Core) UnloadGame() {
	c.loaded = false
	c.pixels = nil
	c.audio = nil
	c.cheats = nil
	c.saveRAM = [saveRAMSize]byte{}
}

// SetOption applies a core option.
func (c *Core) SetOption(key, value string) {
	switch key {
	case "palette":
		c.options.mono = value == "mono"
	case "tone":
		c.options.tone = value == "true"
	case "speed":
		if len(value) == 1 && value[0] >= '0' && value[0] <= '4' {
			c.options.speed = int(value[0] - '0')
		}
	case "width":
		c.options.wide = value == "320"
	}
}

// SetControllerDevice records the device on a port.
func (c *Core) SetControllerDevice(port int, device uint) {
	if port >= 0 && port < emucore.MaxPorts {
		c.devices[port] = device
	}
}

// MemoryMap lists the demo's memory regions.
func (c *Core) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySaveRAM, Size: saveRAMSize},
		{Type: emucore.MemorySystemRAM, Size: systemRAMSize},
	}
}

// ReadRegion returns a copy of a memory region.
func (c *Core) ReadRegion(regionType int) []byte {
	switch regionType {
	case emucore.MemorySaveRAM:
		return append([]byte(nil), c.saveRAM[:]...)
	case emucore.MemorySystemRAM:
		return append([]byte(nil), c.systemRAM[:]...)
	}
	return nil
}

// WriteRegion overwrites a memory region.
func (c *Core) WriteRegion(regionType int, data []byte) {
	switch regionType {
	case emucore.MemorySaveRAM:
		copy(c.saveRAM[:], data)
	case emucore.MemorySystemRAM:
		copy(c.systemRAM[:], data)
	}
}

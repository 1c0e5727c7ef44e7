package demo

import (
	"encoding/binary"

	emucore "github.com/user-none/retrobackend/api"
)

// bars are the eight colour bars, RGB.
var bars = [8][3]byte{
	{0xC0, 0xC0, 0xC0},
	{0xC0, 0xC0, 0x00},
	{0x00, 0xC0, 0xC0},
	{0x00, 0xC0, 0x00},
	{0xC0, 0x00, 0xC0},
	{0xC0, 0x00, 0x00},
	{0x00, 0x00, 0xC0},
	{0x10, 0x10, 0x10},
}

const (
	barWidth   = 32
	cursorStep = 2
	gridCols   = 16
	gridRows   = 16
	dotSize    = 4
)

// RunFrame advances the pattern by one frame.
func (c *Core) RunFrame(input emucore.InputState, host emucore.FrameHost) emucore.VideoFrame {
	if !c.loaded {
		return emucore.VideoFrame{}
	}

	if v, ok := host.Variable("palette"); ok {
		c.options.mono = v == "mono"
	}

	start := input.Pressed(0, ButtonStart)
	if start && !c.lastStart {
		c.paused = !c.paused
	}
	c.lastStart = start

	want := ScreenWidth
	if c.options.wide {
		want = WideWidth
	}
	if want != c.width && host.ChangeAVInfo(c.avInfo(want)) == nil {
		c.width = want
	}

	if c.paused {
		c.writeAudio(host, true)
		return emucore.VideoFrame{Width: c.width, Height: ScreenHeight}
	}

	c.applyCheats()
	c.move(input)
	c.scroll += uint32(c.options.speed)
	c.render()
	c.writeAudio(host, false)

	c.frame++
	binary.LittleEndian.PutUint64(c.systemRAM[systemRAMFrame:], c.frame)

	return emucore.VideoFrame{
		Width:  c.width,
		Height: ScreenHeight,
		Stride: WideWidth * 4,
		Format: emucore.PixelFormatRGBA8888,
		Pixels: c.pixels,
	}
}

// move handles the cursor and painting.
func (c *Core) move(input emucore.InputState) {
	dx, dy := int32(0), int32(0)
	if input.Pressed(0, emucore.ButtonLeft) {
		dx -= cursorStep
	}
	if input.Pressed(0, emucore.ButtonRight) {
		dx += cursorStep
	}
	if input.Pressed(0, emucore.ButtonUp) {
		dy -= cursorStep
	}
	if input.Pressed(0, emucore.ButtonDown) {
		dy += cursorStep
	}
	// The left stick nudges too, one step per half deflection.
	dx += int32(input.Analog[0][emucore.AnalogLeft].X) / 16384 * cursorStep
	dy += int32(input.Analog[0][emucore.AnalogLeft].Y) / 16384 * cursorStep

	c.cursorX = clamp(c.cursorX+dx, 0, int32(c.width-cursorSize))
	c.cursorY = clamp(c.cursorY+dy, 0, int32(ScreenHeight-cursorSize))

	if input.Pressed(0, ButtonA) {
		c.saveRAM[c.cell()] = byte(c.frame) | 1
	}
	if input.Pressed(0, ButtonB) {
		c.saveRAM = [saveRAMSize]byte{}
	}
}

// cell returns the save RAM grid cell under the cursor.
func (c *Core) cell() int {
	col := int(c.cursorX) * gridCols / c.width
	row := int(c.cursorY) * gridRows / ScreenHeight
	return row*gridCols + col
}

func clamp(v, lo, hi int32) int32 {
	return max(lo, min(v, hi))
}

// render draws bars, painted cells and the cursor as RGBA8888.
func (c *Core) render() {
	stride := WideWidth * 4
	for y := 0; y < ScreenHeight; y++ {
		row := c.pixels[y*stride:]
		for x := 0; x < c.width; x++ {
			bar := bars[((uint32(x)+c.scroll)/barWidth)%uint32(len(bars))]
			c.put(row[x*4:], bar[0], bar[1], bar[2])
		}
	}

	cellW := c.width / gridCols
	cellH := ScreenHeight / gridRows
	for i, v := range c.saveRAM {
		if v == 0 {
			continue
		}
		x0 := (i % gridCols) * cellW
		y0 := (i / gridCols) * cellH
		c.fill(x0, y0, dotSize, dotSize, 0xFF, 0xFF, 0xFF)
	}

	shade := c.systemRAM[systemRAMCursor]
	c.fill(int(c.cursorX), int(c.cursorY), cursorSize, cursorSize, shade, shade, shade)
}

func (c *Core) fill(x0, y0, w, h int, r, g, b byte) {
	stride := WideWidth * 4
	for y := y0; y < y0+h && y < ScreenHeight; y++ {
		for x := x0; x < x0+w && x < c.width; x++ {
			c.put(c.pixels[y*stride+x*4:], r, g, b)
		}
	}
}

func (c *Core) put(p []byte, r, g, b byte) {
	if c.options.mono {
		l := byte((uint16(r)*77 + uint16(g)*150 + uint16(b)*29) >> 8)
		r, g, b = l, l, l
	}
	p[0], p[1], p[2], p[3] = r, g, b, 0xFF
}

// writeAudio produces one frame of square wave, or silence.
func (c *Core) writeAudio(host emucore.FrameHost, silent bool) {
	fps := uint32(c.fps)
	total := SampleRate + c.carry
	n := int(total / fps)
	c.carry = total % fps

	if cap(c.audio) < n*2 {
		c.audio = make([]int16, n*2)
	}
	c.audio = c.audio[:n*2]

	period := uint32(SampleRate / toneFrequency)
	for i := 0; i < n; i++ {
		var s int16
		if c.options.tone && !silent {
			s = toneAmplitude
			if c.phase >= period/2 {
				s = -toneAmplitude
			}
			c.phase = (c.phase + 1) % period
		}
		c.audio[i*2] = s
		c.audio[i*2+1] = s
	}
	host.WriteAudio(c.audio)
}

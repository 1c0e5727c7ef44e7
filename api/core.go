package emucore

// Core is the interface an emulator implements to be exposed as a libretro
// core. All methods are called from the frontend's thread, one at a time.
type Core interface {
	// SystemInfo describes the core. It may be called before LoadGame and
	// must return the same value for the lifetime of the process.
	SystemInfo() SystemInfo

	// LoadGame parses and validates content. On error the core must be left
	// exactly as it was before the call.
	LoadGame(game GameData) (LoadedGame, error)

	// RunFrame advances emulation by exactly one display frame. The returned
	// frame is only read until the frontend's video callback returns.
	RunFrame(input InputState, host FrameHost) VideoFrame

	// Reset restores power-on state without dropping loaded content.
	Reset()

	// SerializeState captures the complete emulator state.
	SerializeState() ([]byte, error)

	// DeserializeState restores state produced by SerializeState. A bad blob
	// must be rejected with a *StateError before anything is applied.
	DeserializeState(data []byte) error

	// UnloadGame releases everything tied to the current content.
	UnloadGame()
}

// LoadedGame is what a core reports after successfully loading content.
type LoadedGame struct {
	AVInfo AVInfo

	// PixelFormats lists the output formats the core can produce, most
	// preferred first. Empty means XRGB8888 then RGB565.
	PixelFormats []PixelFormat

	// Region is only used when HasRegion is set, otherwise it is inferred
	// from the frame rate.
	Region    Region
	HasRegion bool

	// InputDescriptors are sent to the frontend once per load, in display order.
	InputDescriptors []InputDescriptor
}

// FrameHost is the side channel available to a core during RunFrame.
type FrameHost interface {
	// WriteAudio queues interleaved stereo samples for this frame.
	WriteAudio(samples []int16)

	// Variable returns the value of a core option as seen at the start of
	// the frame.
	Variable(key string) (string, bool)

	// ChangeAVInfo renegotiates geometry or timing. The frame returned by
	// the current RunFrame call must already use the new geometry.
	ChangeAVInfo(info AVInfo) error
}

// SerializeSizer reports the save state size without serializing.
type SerializeSizer interface {
	SerializeSize() int
}

// OptionSetter receives core option changes between frames.
type OptionSetter interface {
	SetOption(key string, value string)
}

// Cheater accepts frontend cheat codes.
type Cheater interface {
	ResetCheats()
	SetCheat(index int, enabled bool, code string)
}

// ControllerSetter is told which device the frontend plugged into a port.
type ControllerSetter interface {
	SetControllerDevice(port int, device uint)
}

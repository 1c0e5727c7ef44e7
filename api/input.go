package emucore

// MaxPorts is the number of controller ports polled each frame.
const MaxPorts = 4

// Libretro input devices (RETRO_DEVICE_*).
const (
	DeviceNone   uint = 0
	DeviceJoypad uint = 1
	DeviceAnalog uint = 5
)

// Libretro joypad button IDs (RETRO_DEVICE_ID_JOYPAD_*).
const (
	JoypadB      = 0
	JoypadY      = 1
	JoypadSelect = 2
	JoypadStart  = 3
	JoypadUp     = 4
	JoypadDown   = 5
	JoypadLeft   = 6
	JoypadRight  = 7
	JoypadA      = 8
	JoypadX      = 9
	JoypadL      = 10
	JoypadR      = 11
	JoypadL2     = 12
	JoypadR2     = 13
	JoypadL3     = 14
	JoypadR3     = 15
)

// Analog stick indexes and axis IDs (RETRO_DEVICE_INDEX_ANALOG_*,
// RETRO_DEVICE_ID_ANALOG_*).
const (
	AnalogLeft  = 0
	AnalogRight = 1
	AnalogX     = 0
	AnalogY     = 1
)

// RetropadMapping maps a libretro button ID to a core bit position.
type RetropadMapping struct {
	RetroID int // RETRO_DEVICE_ID_JOYPAD_* constant
	BitID   int // core bit position (from Button.ID)
}

// Axis is one analog stick position.
type Axis struct {
	X int16
	Y int16
}

// InputState is the controller state polled at the start of a frame.
type InputState struct {
	Buttons [MaxPorts]uint32
	Analog  [MaxPorts][2]Axis
}

// Pressed reports whether the button at bit position id is held on port.
func (s InputState) Pressed(port int, id int) bool {
	if port < 0 || port >= MaxPorts || id < 0 || id > 31 {
		return false
	}
	return s.Buttons[port]&(1<<uint(id)) != 0
}

// InputDescriptor names one logical input for the frontend's remapping UI.
type InputDescriptor struct {
	Port        uint
	Device      uint
	Index       uint
	ID          uint
	Description string
}

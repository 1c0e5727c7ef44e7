// Package savestate moves core state between the core and the frontend's
// fixed-size buffers.
package savestate

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	emucore "github.com/user-none/retrobackend/api"
)

// Marshaller tracks the sizes reported to the frontend during one session.
// A blob whose length was never reported cannot have come from this session
// and is rejected before the core sees it.
type Marshaller struct {
	logger       *log.Logger
	variableSize bool

	reported map[int]struct{}
	last     int
}

// New returns a marshaller. variableSize allows the state size to change
// between calls, which the frontend must have been told about.
func New(logger *log.Logger, variableSize bool) *Marshaller {
	if logger == nil {
		logger = log.Default()
	}
	return &Marshaller{
		logger:       logger,
		variableSize: variableSize,
		reported:     make(map[int]struct{}),
	}
}

// SetVariableSize changes whether the state size may vary.
func (m *Marshaller) SetVariableSize(v bool) {
	m.variableSize = v
}

// Size returns the number of bytes retro_serialize will need.
func (m *Marshaller) Size(core emucore.Core) (int, error) {
	var size int
	if sizer, ok := core.(emucore.SerializeSizer); ok {
		size = sizer.SerializeSize()
	} else {
		state, err := core.SerializeState()
		if err != nil {
			return 0, fmt.Errorf("serialize size: %w", err)
		}
		size = len(state)
	}
	if size <= 0 {
		return 0, nil
	}

	if m.last != 0 && size != m.last && !m.variableSize {
		return 0, emucore.NewStateError(emucore.StateSizeMismatch,
			"state size changed from %d to %d", m.last, size)
	}
	m.last = size
	m.reported[size] = struct{}{}
	return size, nil
}

// Serialize writes the core's state into dst and zero-fills the rest of it.
func (m *Marshaller) Serialize(core emucore.Core, dst []byte) error {
	state, err := core.SerializeState()
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}
	if len(state) > len(dst) {
		return emucore.NewStateError(emucore.StateSizeMismatch,
			"state is %d bytes, buffer is %d", len(state), len(dst))
	}
	n := copy(dst, state)
	clear(dst[n:])
	return nil
}

// Unserialize restores the core from src. src is copied first, so the core
// never holds on to frontend memory.
func (m *Marshaller) Unserialize(core emucore.Core, src []byte) error {
	if _, ok := m.reported[len(src)]; !ok {
		return emucore.NewStateError(emucore.StateSizeMismatch,
			"%d byte state was never reported this session", len(src))
	}

	data := make([]byte, len(src))
	copy(data, src)

	if err := core.DeserializeState(data); err != nil {
		var stateErr *emucore.StateError
		if errors.As(err, &stateErr) {
			return err
		}
		return &emucore.StateError{Kind: emucore.StateCorrupt, Err: err}
	}
	return nil
}

// Reset forgets every reported size. Called when content is unloaded.
func (m *Marshaller) Reset() {
	clear(m.reported)
	m.last = 0
}

// SetLogger replaces the logger.
func (m *Marshaller) SetLogger(logger *log.Logger) {
	if logger != nil {
		m.logger = logger
	}
}

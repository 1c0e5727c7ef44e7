package retro

import (
	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/lifecycle"
)

// stateMessageFrames is how long a save state error stays on screen.
const stateMessageFrames = 180

// Reset restarts the loaded content.
func (h *Handle) Reset() error {
	if err := h.machine.Fire(lifecycle.OpReset); err != nil {
		h.logger.Error("reset", "err", err)
		return err
	}
	h.core.Reset()
	h.logger.Debug("reset")
	return nil
}

// SerializeSize returns the buffer size retro_serialize needs, 0 when the
// core cannot save state.
func (h *Handle) SerializeSize() (int, error) {
	if err := h.machine.Fire(lifecycle.OpSerializeSize); err != nil {
		h.logger.Error("serialize size", "err", err)
		return 0, err
	}
	size, err := h.states.Size(h.core)
	if err != nil {
		h.logger.Error("serialize size", "err", err)
		return 0, err
	}
	return size, nil
}

// Serialize writes the current state into dst.
func (h *Handle) Serialize(dst []byte) error {
	if err := h.machine.Fire(lifecycle.OpSerialize); err != nil {
		h.logger.Error("serialize", "err", err)
		return err
	}
	if err := h.states.Serialize(h.core, dst); err != nil {
		h.logger.Error("serialize", "err", err)
		return err
	}
	return nil
}

// Unserialize restores state from src. A rejected blob leaves the core
// untouched.
func (h *Handle) Unserialize(src []byte) error {
	if err := h.machine.Fire(lifecycle.OpUnserialize); err != nil {
		h.logger.Error("unserialize", "err", err)
		return err
	}
	if err := h.states.Unserialize(h.core, src); err != nil {
		h.logger.Error("unserialize", "size", len(src), "err", err)
		h.Message("Save state rejected", stateMessageFrames)
		return err
	}
	h.syncMemoryOut()
	return nil
}

// Memory returns the frontend-visible buffer for a RETRO_MEMORY_* id, or
// nil if the core does not expose it.
func (h *Handle) Memory(id int) []byte {
	if err := h.machine.Check(lifecycle.OpMemoryAccess); err != nil {
		return nil
	}
	return h.memory[id]
}

// attachMemory allocates a buffer for every region the core maps.
func (h *Handle) attachMemory() {
	mapper, ok := h.core.(emucore.MemoryMapper)
	if !ok {
		return
	}
	h.memory = make(map[int][]byte)
	for _, r := range mapper.MemoryMap() {
		if r.Size <= 0 {
			continue
		}
		buf := h.alloc.Alloc(r.Size)
		copy(buf, mapper.ReadRegion(r.Type))
		h.memory[r.Type] = buf
	}
}

func (h *Handle) detachMemory() {
	for _, buf := range h.memory {
		h.alloc.Free(buf)
	}
	h.memory = nil
}

// syncMemoryIn pushes save RAM, which the frontend may have written, into
// the core before a frame.
func (h *Handle) syncMemoryIn() {
	mapper, ok := h.core.(emucore.MemoryMapper)
	if !ok {
		return
	}
	if buf, ok := h.memory[emucore.MemorySaveRAM]; ok {
		data := make([]byte, len(buf))
		copy(data, buf)
		mapper.WriteRegion(emucore.MemorySaveRAM, data)
	}
}

// syncMemoryOut copies every region from the core into the frontend's
// buffers.
func (h *Handle) syncMemoryOut() {
	mapper, ok := h.core.(emucore.MemoryMapper)
	if !ok {
		return
	}
	for id, buf := range h.memory {
		if data := mapper.ReadRegion(id); len(data) > 0 {
			copy(buf, data)
		}
	}
}

// ResetCheats clears every cheat.
func (h *Handle) ResetCheats() {
	if !h.machine.HasContent() {
		return
	}
	if c, ok := h.core.(emucore.Cheater); ok {
		c.ResetCheats()
	}
}

// SetCheat enables or disables a cheat code.
func (h *Handle) SetCheat(index int, enabled bool, code string) {
	if !h.machine.HasContent() {
		h.logger.Warn("cheat set without content", "index", index)
		return
	}
	c, ok := h.core.(emucore.Cheater)
	if !ok {
		h.logger.Debug("core does not support cheats")
		return
	}
	c.SetCheat(index, enabled, code)
}

// SetControllerDevice records the device plugged into port and tells the
// core. It is replayed on every load.
func (h *Handle) SetControllerDevice(port int, device uint) {
	if port < 0 || port >= emucore.MaxPorts {
		h.logger.Warn("controller port out of range", "port", port)
		return
	}
	h.devices[port] = device
	if h.machine.HasContent() {
		h.forwardDevice(port, device)
	}
}

func (h *Handle) forwardDevice(port int, device uint) {
	if c, ok := h.core.(emucore.ControllerSetter); ok {
		c.SetControllerDevice(port, device)
	}
}

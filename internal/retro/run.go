package retro

import (
	"fmt"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/lifecycle"
)

// Run executes one frame: options are polled, input read, the core run and
// its video then audio delivered.
func (h *Handle) Run() error {
	if err := h.machine.Fire(lifecycle.OpRun); err != nil {
		h.logger.Error("run", "err", err)
		return err
	}

	if changed := h.neg.PollVariables(); len(changed) > 0 {
		h.logger.Debug("options changed", "keys", changed)
		h.applyOptions(changed)
	}
	h.neg.LockPixelFormat()

	h.syncMemoryIn()
	err := h.exec.Run(h.core, session{h}, h.cb)
	h.syncMemoryOut()

	if err != nil {
		h.logger.Warn("frame", "n", h.exec.Frames(), "err", err)
	}
	return err
}

// session is the negotiated state the frame executor runs against.
type session struct {
	h *Handle
}

func (s session) PixelFormat() emucore.PixelFormat {
	return s.h.neg.PixelFormat()
}

func (s session) CanDupe() bool {
	return s.h.canDupe
}

func (s session) AVInfo() (emucore.AVInfo, bool) {
	return s.h.neg.AVInfo()
}

func (s session) Variable(key string) (string, bool) {
	return s.h.neg.Variables().Get(key)
}

// ChangeAVInfo is only legal while a frame is running.
func (s session) ChangeAVInfo(info emucore.AVInfo) error {
	if err := s.h.machine.Check(lifecycle.OpChangeAVInfo); err != nil {
		return err
	}
	if err := s.h.neg.ChangeAVInfo(info); err != nil {
		s.h.logger.Warn("av info change", "err", err)
		return fmt.Errorf("change av info: %w", err)
	}
	return nil
}

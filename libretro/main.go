// Package libretro exports the retro_* entry points of a libretro core. A
// core package registers itself from init() in its cmd/ main package and is
// built with -buildmode=c-shared. Every entry point translates its
// arguments and hands the call to the core handle.
package libretro

/*
#include <stdlib.h>
#include "libretro.h"
#include "cfuncs.h"
*/
import "C"
import (
	"fmt"
	"unsafe"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/frame"
	"github.com/user-none/retrobackend/internal/lifecycle"
	"github.com/user-none/retrobackend/internal/retro"
)

// Libretro joypad button ID constants for use in RetropadMapping.
const (
	JoypadB      = C.RETRO_DEVICE_ID_JOYPAD_B
	JoypadY      = C.RETRO_DEVICE_ID_JOYPAD_Y
	JoypadSelect = C.RETRO_DEVICE_ID_JOYPAD_SELECT
	JoypadStart  = C.RETRO_DEVICE_ID_JOYPAD_START
	JoypadA      = C.RETRO_DEVICE_ID_JOYPAD_A
	JoypadX      = C.RETRO_DEVICE_ID_JOYPAD_X
	JoypadL      = C.RETRO_DEVICE_ID_JOYPAD_L
	JoypadR      = C.RETRO_DEVICE_ID_JOYPAD_R
	JoypadL2     = C.RETRO_DEVICE_ID_JOYPAD_L2
	JoypadR2     = C.RETRO_DEVICE_ID_JOYPAD_R2
	JoypadL3     = C.RETRO_DEVICE_ID_JOYPAD_L3
	JoypadR3     = C.RETRO_DEVICE_ID_JOYPAD_R3
)

var (
	newCore  func() emucore.Core
	inputMap []emucore.RetropadMapping

	// h is created on first use and dropped by retro_deinit.
	h *retro.Handle

	// Strings handed to the frontend, freed in retro_deinit.
	strs       arena
	sysStrings *systemStrings

	// Variable and descriptor arrays sent while loading content, freed
	// when the content is unloaded.
	loadStrs arena
)

type systemStrings struct {
	name, version, extensions *C.char
}

// Register sets the core constructor and input mapping used by the entry
// points. Must be called during init() before any retro_* function runs.
func Register(fn func() emucore.Core, mapping []emucore.RetropadMapping) {
	newCore = fn
	inputMap = mapping
}

// handle returns the core handle, creating it on first use.
func handle() *retro.Handle {
	hd, _ := ensureHandle()
	return hd
}

// ensureHandle returns the core handle and whether this call created it. A
// new handle is attached to the environment if the frontend set one.
func ensureHandle() (*retro.Handle, bool) {
	if h != nil {
		return h, false
	}
	var core emucore.Core
	if newCore != nil {
		core = newCore()
	}
	h = retro.New(core, inputMap)
	h.SetAllocator(cAllocator{})
	if bool(C.has_environ_cb()) {
		h.SetEnvironment(environment{})
	}
	h.SetCallbacks(callbacks())
	return h, true
}

// recovered logs a panic that escaped the core. Entry points recover so a
// broken core fails the call instead of taking the frontend down.
func recovered(entry string, r any) {
	if h == nil {
		return
	}
	h.Logger().Error("panic", "entry", entry, "err", fmt.Sprint(r))
}

// callbacks wraps the registered C callbacks. Unset ones stay nil.
func callbacks() frame.Callbacks {
	var cb frame.Callbacks
	if bool(C.has_video_cb()) {
		cb.Video = func(pixels []byte, width, height, stride int) {
			var data unsafe.Pointer
			if len(pixels) > 0 {
				data = unsafe.Pointer(&pixels[0])
			}
			C.call_video_cb(data, C.uint(width), C.uint(height), C.size_t(stride))
		}
	}
	if bool(C.has_audio_batch_cb()) {
		cb.AudioBatch = func(samples []int16) int {
			if len(samples) < 2 {
				return 0
			}
			n := C.call_audio_batch_cb((*C.int16_t)(unsafe.Pointer(&samples[0])), C.size_t(len(samples)/2))
			return int(n)
		}
	}
	if bool(C.has_audio_cb()) {
		cb.Audio = func(left, right int16) {
			C.call_audio_cb(C.int16_t(left), C.int16_t(right))
		}
	}
	if bool(C.has_input_poll_cb()) {
		cb.InputPoll = func() {
			C.call_input_poll_cb()
		}
	}
	if bool(C.has_input_state_cb()) {
		cb.InputState = func(port, device, index, id uint) int16 {
			return int16(C.call_input_state_cb(C.uint(port), C.uint(device), C.uint(index), C.uint(id)))
		}
	}
	return cb
}

//export retro_set_environment
func retro_set_environment(cb C.retro_environment_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_environment", r)
		}
	}()
	C._retro_set_environment(cb)
	if hd, created := ensureHandle(); !created {
		hd.SetEnvironment(environment{})
	}
}

//export retro_set_video_refresh
func retro_set_video_refresh(cb C.retro_video_refresh_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_video_refresh", r)
		}
	}()
	C._retro_set_video_refresh(cb)
	handle().SetCallbacks(callbacks())
}

//export retro_set_audio_sample
func retro_set_audio_sample(cb C.retro_audio_sample_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_audio_sample", r)
		}
	}()
	C._retro_set_audio_sample(cb)
	handle().SetCallbacks(callbacks())
}

//export retro_set_audio_sample_batch
func retro_set_audio_sample_batch(cb C.retro_audio_sample_batch_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_audio_sample_batch", r)
		}
	}()
	C._retro_set_audio_sample_batch(cb)
	handle().SetCallbacks(callbacks())
}

//export retro_set_input_poll
func retro_set_input_poll(cb C.retro_input_poll_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_input_poll", r)
		}
	}()
	C._retro_set_input_poll(cb)
	handle().SetCallbacks(callbacks())
}

//export retro_set_input_state
func retro_set_input_state(cb C.retro_input_state_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_input_state", r)
		}
	}()
	C._retro_set_input_state(cb)
	handle().SetCallbacks(callbacks())
}

//export retro_init
func retro_init() {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_init", r)
		}
	}()
	handle().Init()
}

//export retro_deinit
func retro_deinit() {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_deinit", r)
		}
		h = nil
		sysStrings = nil
		strs.free()
		loadStrs.free()
	}()
	if h != nil {
		h.Deinit()
	}
}

//export retro_api_version
func retro_api_version() C.uint {
	return C.RETRO_API_VERSION
}

//export retro_get_system_info
func retro_get_system_info(info *C.struct_retro_system_info) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_get_system_info", r)
		}
	}()
	if info == nil {
		return
	}
	si := handle().SystemInfo()
	if sysStrings == nil {
		sysStrings = &systemStrings{
			name:       strs.string(si.CoreName),
			version:    strs.string(si.CoreVersion),
			extensions: strs.string(si.ValidExtensions()),
		}
	}
	info.library_name = sysStrings.name
	info.library_version = sysStrings.version
	info.valid_extensions = sysStrings.extensions
	info.need_fullpath = C.bool(si.NeedFullPath)
	info.block_extract = C.bool(si.BlockExtract())
}

//export retro_get_system_av_info
func retro_get_system_av_info(info *C.struct_retro_system_av_info) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_get_system_av_info", r)
		}
	}()
	if info == nil {
		return
	}
	av, ok := handle().AVInfo()
	if !ok {
		av = retro.DefaultAVInfo()
	}
	info.geometry = cGeometry(av.Geometry)
	info.timing.fps = C.double(av.Timing.FPS)
	info.timing.sample_rate = C.double(av.Timing.SampleRate)
}

//export retro_set_controller_port_device
func retro_set_controller_port_device(port C.uint, device C.uint) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_set_controller_port_device", r)
		}
	}()
	handle().SetControllerDevice(int(port), uint(device))
}

//export retro_reset
func retro_reset() {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_reset", r)
		}
	}()
	_ = handle().Reset()
}

//export retro_run
func retro_run() {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_run", r)
			// The core stopped mid-frame and cannot be trusted to continue.
			if h != nil {
				h.Shutdown()
			}
		}
	}()
	_ = handle().Run()
}

//export retro_serialize_size
func retro_serialize_size() (size C.size_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_serialize_size", r)
			size = 0
		}
	}()
	n, err := handle().SerializeSize()
	if err != nil {
		return 0
	}
	return C.size_t(n)
}

//export retro_serialize
func retro_serialize(data unsafe.Pointer, size C.size_t) (ok C.bool) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_serialize", r)
			ok = false
		}
	}()
	if data == nil || size == 0 {
		return false
	}
	dst := unsafe.Slice((*byte)(data), int(size))
	return C.bool(handle().Serialize(dst) == nil)
}

//export retro_unserialize
func retro_unserialize(data unsafe.Pointer, size C.size_t) (ok C.bool) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_unserialize", r)
			ok = false
		}
	}()
	if data == nil || size == 0 {
		return false
	}
	src := unsafe.Slice((*byte)(data), int(size))
	return C.bool(handle().Unserialize(src) == nil)
}

//export retro_cheat_reset
func retro_cheat_reset() {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_cheat_reset", r)
		}
	}()
	handle().ResetCheats()
}

//export retro_cheat_set
func retro_cheat_set(index C.uint, enabled C.bool, code *C.char) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_cheat_set", r)
		}
	}()
	var s string
	if code != nil {
		s = C.GoString(code)
	}
	handle().SetCheat(int(index), bool(enabled), s)
}

//export retro_load_game
func retro_load_game(game *C.struct_retro_game_info) (ok C.bool) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_load_game", r)
			ok = false
		}
	}()
	var g emucore.GameData
	if game != nil {
		var path, meta string
		var data []byte
		if game.path != nil {
			path = C.GoString(game.path)
		}
		if game.meta != nil {
			meta = C.GoString(game.meta)
		}
		if game.data != nil && game.size > 0 {
			data = C.GoBytes(game.data, C.int(game.size))
		}
		g = gameData(path, meta, data)
	}
	hd := handle()
	if err := hd.LoadGame(g); err != nil {
		// A failed load leaves no session behind to use the arrays.
		if !hasContent(hd.State()) {
			loadStrs.free()
		}
		return false
	}
	return true
}

func hasContent(s lifecycle.State) bool {
	return s == lifecycle.Loaded || s == lifecycle.Running
}

// gameData picks the Game Data variant. Content bytes win over a path.
func gameData(path, meta string, data []byte) emucore.GameData {
	if len(data) > 0 {
		return emucore.DataGame(path, data).WithMeta(meta)
	}
	return emucore.PathGame(path).WithMeta(meta)
}

//export retro_load_game_special
func retro_load_game_special(gameType C.uint, info *C.struct_retro_game_info, numInfo C.size_t) C.bool {
	return false
}

//export retro_unload_game
func retro_unload_game() {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_unload_game", r)
		}
		loadStrs.free()
	}()
	_ = handle().UnloadGame()
}

//export retro_get_region
func retro_get_region() (region C.uint) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_get_region", r)
			region = C.RETRO_REGION_NTSC
		}
	}()
	return C.uint(regionID(handle().Region()))
}

func regionID(r emucore.Region) int {
	if r == emucore.RegionPAL {
		return C.RETRO_REGION_PAL
	}
	return C.RETRO_REGION_NTSC
}

//export retro_get_memory_data
func retro_get_memory_data(id C.uint) (data unsafe.Pointer) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_get_memory_data", r)
			data = nil
		}
	}()
	buf := handle().Memory(int(id))
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(buf))
}

//export retro_get_memory_size
func retro_get_memory_size(id C.uint) (size C.size_t) {
	defer func() {
		if r := recover(); r != nil {
			recovered("retro_get_memory_size", r)
			size = 0
		}
	}()
	return C.size_t(len(handle().Memory(int(id))))
}

package libretro

/*
#include <stdlib.h>
#include "libretro.h"
#include "cfuncs.h"
*/
import "C"
import (
	"unsafe"

	emucore "github.com/user-none/retrobackend/api"
	"github.com/user-none/retrobackend/internal/env"
)

// environment is the only place typed requests meet the untyped
// environment callback.
type environment struct{}

func (environment) Environment(req env.Request) bool {
	cmd := C.uint(req.Command())

	switch r := req.(type) {
	case *env.SetPixelFormat:
		f := C.enum_retro_pixel_format(r.Format)
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&f)))

	case *env.SetGeometry:
		g := cGeometry(r.Geometry)
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&g)))

	case *env.SetSystemAVInfo:
		var av C.struct_retro_system_av_info
		av.geometry = cGeometry(r.AVInfo.Geometry)
		av.timing.fps = C.double(r.AVInfo.Timing.FPS)
		av.timing.sample_rate = C.double(r.AVInfo.Timing.SampleRate)
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&av)))

	case *env.SetVariables:
		n := len(r.Variables)
		size := int(C.sizeof_struct_retro_variable) * (n + 1)
		vars := unsafe.Slice((*C.struct_retro_variable)(loadStrs.alloc(size)), n+1)
		for i, v := range r.Variables {
			vars[i].key = loadStrs.string(v.Key)
			vars[i].value = loadStrs.string(v.Value)
		}
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&vars[0])))

	case *env.GetVariable:
		key := C.CString(r.Key)
		defer C.free(unsafe.Pointer(key))
		v := C.struct_retro_variable{key: key}
		if !bool(C.call_environ_cb(cmd, unsafe.Pointer(&v))) || v.value == nil {
			return false
		}
		r.Value = C.GoString(v.value)
		return true

	case *env.GetVariableUpdate:
		var updated C.bool
		ok := bool(C.call_environ_cb(cmd, unsafe.Pointer(&updated)))
		r.Updated = ok && bool(updated)
		return ok

	case *env.SetInputDescriptors:
		n := len(r.Descriptors)
		size := int(C.sizeof_struct_retro_input_descriptor) * (n + 1)
		descs := unsafe.Slice((*C.struct_retro_input_descriptor)(loadStrs.alloc(size)), n+1)
		for i, d := range r.Descriptors {
			descs[i].port = C.uint(d.Port)
			descs[i].device = C.uint(d.Device)
			descs[i].index = C.uint(d.Index)
			descs[i].id = C.uint(d.ID)
			descs[i].description = loadStrs.string(d.Description)
		}
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&descs[0])))

	case *env.GetSystemDirectory:
		return getPath(cmd, &r.Path)

	case *env.GetSaveDirectory:
		return getPath(cmd, &r.Path)

	case *env.GetLogInterface:
		var cb C.struct_retro_log_callback
		if !bool(C.call_environ_cb(cmd, unsafe.Pointer(&cb))) || cb.log == nil {
			return false
		}
		printf := cb.log
		r.Log = func(level env.LogLevel, msg string) {
			s := C.CString(msg)
			defer C.free(unsafe.Pointer(s))
			C.call_log_cb(printf, C.enum_retro_log_level(level), s)
		}
		return true

	case *env.GetCanDupe:
		var dupe C.bool
		ok := bool(C.call_environ_cb(cmd, unsafe.Pointer(&dupe)))
		r.CanDupe = ok && bool(dupe)
		return ok

	case *env.SetSupportNoGame:
		b := C.bool(r.Supported)
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&b)))

	case *env.SetSerializationQuirks:
		q := C.uint64_t(r.Quirks)
		ok := bool(C.call_environ_cb(cmd, unsafe.Pointer(&q)))
		if ok {
			r.Quirks = uint64(q)
		}
		return ok

	case *env.SetMessage:
		// Frontends copy the text before returning.
		text := C.CString(r.Text)
		defer C.free(unsafe.Pointer(text))
		msg := C.struct_retro_message{msg: text, frames: C.uint(r.Frames)}
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&msg)))

	case *env.Shutdown:
		return bool(C.call_environ_cb(cmd, nil))

	case *env.SetPerformanceLevel:
		level := C.uint(r.Level)
		return bool(C.call_environ_cb(cmd, unsafe.Pointer(&level)))
	}
	return false
}

func getPath(cmd C.uint, dst *string) bool {
	var p *C.char
	if !bool(C.call_environ_cb(cmd, unsafe.Pointer(&p))) || p == nil {
		return false
	}
	*dst = C.GoString(p)
	return true
}

func cGeometry(g emucore.Geometry) C.struct_retro_game_geometry {
	return C.struct_retro_game_geometry{
		base_width:   C.uint(g.BaseWidth),
		base_height:  C.uint(g.BaseHeight),
		max_width:    C.uint(g.MaxWidth),
		max_height:   C.uint(g.MaxHeight),
		aspect_ratio: C.float(g.AspectRatio),
	}
}

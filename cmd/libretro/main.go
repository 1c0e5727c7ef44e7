// Command libretro builds the demo core as a libretro shared library:
//
//	go build -buildmode=c-shared -o retrodemo_libretro.so ./cmd/libretro
package main

import (
	"github.com/user-none/retrobackend/demo"
	"github.com/user-none/retrobackend/libretro"
)

func init() {
	libretro.Register(demo.New, demo.Mapping)
}

func main() {}

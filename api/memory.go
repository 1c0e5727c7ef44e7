package emucore

// Memory region type constants, matching RETRO_MEMORY_*.
const (
	MemorySaveRAM   = 0
	MemoryRTC       = 1
	MemorySystemRAM = 2
	MemoryVideoRAM  = 3
)

// MemoryRegion describes a named memory region and its size.
type MemoryRegion struct {
	Type int
	Size int
}

// MemoryMapper enables libretro-style named memory region access.
type MemoryMapper interface {
	// MemoryMap returns a list of available memory regions with sizes.
	MemoryMap() []MemoryRegion

	// ReadRegion returns a copy of the specified memory region.
	ReadRegion(regionType int) []byte

	// WriteRegion writes data to the specified memory region.
	WriteRegion(regionType int, data []byte)
}

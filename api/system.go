package emucore

import "strings"

// Standard d-pad button bit positions (always bits 0-3).
const (
	ButtonUp    = 0
	ButtonDown  = 1
	ButtonLeft  = 2
	ButtonRight = 3
)

// Button describes a system-specific button with its display name
// and bit position in the input bitmask.
type Button struct {
	Name string
	ID   int // Bit position in the uint32 bitmask (4+)
}

// CoreOptionType identifies the kind of core option.
type CoreOptionType int

const (
	CoreOptionBool CoreOptionType = iota
	CoreOptionSelect
	CoreOptionRange
)

// CoreOption describes a configurable core setting. Options are exposed to
// the frontend as libretro variables.
type CoreOption struct {
	Key         string
	Label       string
	Description string
	Type        CoreOptionType
	Default     string
	Values      []string // Options for Select type
	Min         int      // Minimum for Range type
	Max         int      // Maximum for Range type
	Step        int      // Step size for Range type
}

// Serialization quirk flags, matching RETRO_SERIALIZATION_QUIRK_*.
const (
	SerializationQuirkIncomplete       uint64 = 1 << 0
	SerializationQuirkMustInitialize   uint64 = 1 << 1
	SerializationQuirkCoreVariableSize uint64 = 1 << 2
	SerializationQuirkSingleSession    uint64 = 1 << 4
	SerializationQuirkEndianDependent  uint64 = 1 << 5
)

// SystemInfo describes a core to the frontend.
type SystemInfo struct {
	CoreName    string
	CoreVersion string
	Extensions  []string
	// NeedFullPath makes the frontend pass a path instead of a buffer.
	NeedFullPath bool
	Buttons      []Button
	Players      int
	CoreOptions  []CoreOption
	RDBName      string
	// SerializationQuirks is announced to the frontend on load when non-zero.
	SerializationQuirks uint64
	// PerformanceLevel hints how demanding the core is, announced on load
	// when non-zero.
	PerformanceLevel uint
}

// archiveExtensions are formats a core can only receive unextracted if the
// frontend is told not to extract them itself.
var archiveExtensions = map[string]bool{
	"gz": true, "xz": true, "zip": true, "rar": true, "7z": true,
	"tar": true, "tgz": true, "txz": true, "bz2": true,
	"tar.gz": true, "tar.bz2": true, "tar.xz": true,
}

// ValidExtensions returns the extensions in libretro's "a|b|c" form.
func (s SystemInfo) ValidExtensions() string {
	exts := make([]string, 0, len(s.Extensions))
	for _, ext := range s.Extensions {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" {
			continue
		}
		exts = append(exts, ext)
	}
	return strings.Join(exts, "|")
}

// BlockExtract reports whether the frontend must hand archives to the core
// untouched, which is the case once the core lists an archive extension.
func (s SystemInfo) BlockExtract() bool {
	for _, ext := range s.Extensions {
		if archiveExtensions[strings.ToLower(strings.TrimPrefix(ext, "."))] {
			return true
		}
	}
	return false
}

// Option returns the core option with the given key.
func (s SystemInfo) Option(key string) (CoreOption, bool) {
	for _, opt := range s.CoreOptions {
		if opt.Key == key {
			return opt, true
		}
	}
	return CoreOption{}, false
}

// DisplayAspectRatio returns the aspect ratio of a width x height image whose
// pixels have the given pixel aspect ratio.
func DisplayAspectRatio(width, height int, par float64) float64 {
	if height == 0 {
		return 0
	}
	return float64(width) / float64(height) * par
}

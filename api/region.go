package emucore

// Region represents a console video region. Values match RETRO_REGION_*.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// String returns the display name of the region.
func (r Region) String() string {
	switch r {
	case RegionNTSC:
		return "NTSC"
	case RegionPAL:
		return "PAL"
	default:
		return "Unknown"
	}
}

// RegionFromFPS infers a region from the target frame rate. Anything
// faster than 59 frames per second is treated as NTSC.
func RegionFromFPS(fps float64) Region {
	if fps > 59.0 {
		return RegionNTSC
	}
	return RegionPAL
}

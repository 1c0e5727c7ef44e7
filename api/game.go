package emucore

// GameKind identifies which variant of GameData is populated.
type GameKind int

const (
	// GameKindPath means the frontend keeps the content and the core reads
	// it from the path itself.
	GameKindPath GameKind = iota
	// GameKindData means the content bytes were handed to the core.
	GameKindData
)

// String returns the display name of the kind.
func (k GameKind) String() string {
	switch k {
	case GameKindPath:
		return "path"
	case GameKindData:
		return "data"
	default:
		return "unknown"
	}
}

// GameData describes content to load. Exactly one of path or data is set.
type GameData struct {
	kind GameKind
	path string
	name string
	data []byte
	meta string
}

// PathGame returns GameData for content the core must read from path.
func PathGame(path string) GameData {
	return GameData{kind: GameKindPath, path: path, name: path}
}

// DataGame returns GameData owning data. name is an optional hint (usually
// the original file path) used for display and archive detection.
func DataGame(name string, data []byte) GameData {
	return GameData{kind: GameKindData, name: name, data: data}
}

// WithMeta attaches the frontend's implementation-specific meta string.
func (g GameData) WithMeta(meta string) GameData {
	g.meta = meta
	return g
}

// Kind returns the populated variant.
func (g GameData) Kind() GameKind {
	return g.kind
}

// Path returns the content path for the Path variant.
func (g GameData) Path() (string, bool) {
	if g.kind != GameKindPath {
		return "", false
	}
	return g.path, true
}

// Data returns the content bytes for the Data variant.
func (g GameData) Data() ([]byte, bool) {
	if g.kind != GameKindData {
		return nil, false
	}
	return g.data, true
}

// Name returns the path or name hint, which may be empty.
func (g GameData) Name() string {
	return g.name
}

// Meta returns the frontend meta string.
func (g GameData) Meta() string {
	return g.meta
}

// IsEmpty reports whether neither variant carries content.
func (g GameData) IsEmpty() bool {
	switch g.kind {
	case GameKindPath:
		return g.path == ""
	case GameKindData:
		return len(g.data) == 0
	}
	return true
}

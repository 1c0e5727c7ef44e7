// Package content turns the game a frontend hands over into the bytes a
// core consumes, unpacking compressed archives (ZIP, 7z, RAR, gzip, bzip2,
// xz and tar) along the way.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	emucore "github.com/user-none/retrobackend/api"
)

// Magic bytes for format detection
var (
	magicZIP    = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEnd = []byte{0x50, 0x4B, 0x05, 0x06} // empty zip
	magic7z     = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip   = []byte{0x1F, 0x8B}
	magicRAR    = []byte{0x52, 0x61, 0x72, 0x21} // "Rar!"
	magicXZ     = []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}
	magicBzip2  = []byte{0x42, 0x5A, 0x68} // "BZh"
	magicTar    = []byte("ustar")
)

// tarMagicOffset is where "ustar" sits in a tar header.
const tarMagicOffset = 257

// DefaultMaxSize caps extracted content at 64MB.
const DefaultMaxSize = 64 * 1024 * 1024

// ErrNoContentFile is returned when no file with a known extension is found
// in an archive.
var ErrNoContentFile = errors.New("no content file found in archive")

// ErrUnsupportedFormat is returned for unrecognized file formats
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrFileTooLarge is returned when extracted content exceeds size limit
var ErrFileTooLarge = errors.New("file exceeds maximum size limit")

// formatType represents the detected file format
type formatType int

const (
	formatUnknown formatType = iota
	formatRaw
	formatZIP
	format7z
	formatGzip
	formatRAR
	formatXZ
	formatBzip2
	formatTar
)

func (f formatType) String() string {
	switch f {
	case formatRaw:
		return "raw"
	case formatZIP:
		return "zip"
	case format7z:
		return "7z"
	case formatGzip:
		return "gzip"
	case formatRAR:
		return "rar"
	case formatXZ:
		return "xz"
	case formatBzip2:
		return "bzip2"
	case formatTar:
		return "tar"
	default:
		return "unknown"
	}
}

// Content is game data ready for a core.
type Content struct {
	// Name is the base name of the file the data came from. For archives
	// it is the name of the extracted member.
	Name string
	Data []byte
	// CRC32 is the IEEE checksum of Data, used for database lookups.
	CRC32 uint32
	// Archive is the container format, empty for raw content.
	Archive string
}

// Loader extracts content with one of a core's extensions.
type Loader struct {
	extensions []string
	maxSize    int
}

// NewLoader returns a loader for files with the given extensions. Leading
// dots are optional and archive extensions are ignored.
func NewLoader(extensions []string, maxSize int) *Loader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	var exts []string
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimPrefix(e, "."))
		if e == "" || isArchiveExtension(e) {
			continue
		}
		exts = append(exts, "."+e)
	}
	return &Loader{extensions: exts, maxSize: maxSize}
}

// Load resolves either game variant. A failure is always a
// *emucore.LoadError.
func (l *Loader) Load(game emucore.GameData) (*Content, error) {
	switch game.Kind() {
	case emucore.GameKindData:
		data, _ := game.Data()
		return l.LoadBytes(game.Name(), data)
	case emucore.GameKindPath:
		path, _ := game.Path()
		return l.LoadFile(path)
	}
	return nil, emucore.NewLoadError(emucore.LoadMissing, "no game")
}

// LoadFile reads and, if needed, extracts the file at path.
func (l *Loader) LoadFile(path string) (*Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to open file: %w", err))
	}
	defer f.Close()

	data, err := l.limitedRead(f)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read %s: %w", filepath.Base(path), err))
	}
	return l.LoadBytes(filepath.Base(path), data)
}

// LoadBytes extracts content from data that was read from a file called name.
func (l *Loader) LoadBytes(name string, data []byte) (*Content, error) {
	if len(data) == 0 {
		return nil, emucore.NewLoadError(emucore.LoadMissing, "%s is empty", name)
	}
	c, err := l.extract(name, data)
	if err != nil {
		return nil, classify(err)
	}
	c.CRC32 = crc32.ChecksumIEEE(c.Data)
	return c, nil
}

func (l *Loader) extract(name string, data []byte) (*Content, error) {
	format := detectFormat(data, name, l.extensions)

	var (
		out    []byte
		member string
		err    error
	)
	switch format {
	case formatRaw:
		if len(data) > l.maxSize {
			return nil, ErrFileTooLarge
		}
		c := &Content{Data: data}
		if name != "" {
			c.Name = filepath.Base(name)
		}
		return c, nil
	case formatZIP:
		out, member, err = l.extractFromZIP(data)
	case format7z:
		out, member, err = l.extractFrom7z(data)
	case formatRAR:
		out, member, err = l.extractFromRAR(data)
	case formatGzip, formatXZ, formatBzip2:
		out, member, err = l.extractFromStream(format, name, data)
	case formatTar:
		out, member, err = l.extractFromTar(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, err
	}
	return &Content{Name: member, Data: out, Archive: format.String()}, nil
}

// detectFormat determines the format from magic bytes, then the name.
func detectFormat(header []byte, name string, extensions []string) formatType {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEnd):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicXZ):
		return formatXZ
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	case len(header) > tarMagicOffset+len(magicTar) &&
		bytes.Equal(header[tarMagicOffset:tarMagicOffset+len(magicTar)], magicTar):
		return formatTar
	}

	// Check if the file extension matches a known content extension
	// before trying weaker signatures.
	if isContentFile(name, extensions) {
		return formatRaw
	}
	if bytes.HasPrefix(header, magicBzip2) {
		return formatBzip2
	}

	// Fall back to extension for archive formats
	lower := strings.ToLower(name)
	switch filepath.Ext(lower) {
	case ".zip":
		return formatZIP
	case ".7z":
		return format7z
	case ".gz", ".tgz":
		return formatGzip
	case ".rar":
		return formatRAR
	case ".xz", ".txz":
		return formatXZ
	case ".bz2", ".tbz2":
		return formatBzip2
	case ".tar":
		return formatTar
	}

	// Without a list of extensions, or a name to check against it, anything
	// that is not an archive is raw.
	if len(extensions) == 0 || name == "" {
		return formatRaw
	}
	return formatUnknown
}

// isContentFile checks if a filename has one of the given extensions
// (case-insensitive).
func isContentFile(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// accepts reports whether an archive member should be extracted.
func (l *Loader) accepts(name string) bool {
	if len(l.extensions) == 0 {
		return true
	}
	return isContentFile(name, l.extensions)
}

// limitedRead reads from r up to maxSize bytes, returning an error if exceeded
func (l *Loader) limitedRead(r io.Reader) ([]byte, error) {
	lr := io.LimitReader(r, int64(l.maxSize)+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if len(data) > l.maxSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}

var archiveExtensions = map[string]bool{
	"zip": true, "7z": true, "rar": true, "gz": true, "tgz": true,
	"xz": true, "txz": true, "bz2": true, "tbz2": true, "tar": true,
}

func isArchiveExtension(ext string) bool {
	return archiveExtensions[ext]
}

// classify maps an extraction failure to a load error kind.
func classify(err error) error {
	var loadErr *emucore.LoadError
	switch {
	case errors.As(err, &loadErr):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return &emucore.LoadError{Kind: emucore.LoadMissing, Err: err}
	case errors.Is(err, ErrUnsupportedFormat),
		errors.Is(err, ErrNoContentFile),
		errors.Is(err, ErrFileTooLarge):
		return &emucore.LoadError{Kind: emucore.LoadUnsupported, Err: err}
	default:
		return &emucore.LoadError{Kind: emucore.LoadCorrupt, Err: err}
	}
}

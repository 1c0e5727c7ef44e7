// Package gamedb reads RetroArch RDB game databases so loaded content can
// be identified by checksum.
package gamedb

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	emucore "github.com/user-none/retrobackend/api"
)

// headerSize is the "RARCHDB\0" magic plus the metadata offset.
const headerSize = 0x10

var magic = []byte("RARCHDB\x00")

// Entry is one game in the database.
type Entry struct {
	Name         string // Full No-Intro name (e.g., "Sonic the Hedgehog (USA, Europe)")
	Description  string
	Genre        string
	Developer    string
	Publisher    string
	Franchise    string
	ESRBRating   string
	ROMName      string
	ReleaseMonth uint
	ReleaseYear  uint
	Size         uint64
	CRC32        uint32
	Serial       string
	MD5          string // lowercase hex
}

// DB is a parsed database indexed by checksum.
type DB struct {
	entries []Entry
	byCRC32 map[uint32]int
	byMD5   map[string]int
}

// Load reads and parses the RDB file at path.
func Load(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read RDB file: %w", err)
	}
	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return db, nil
}

// Parse decodes RDB data. Entries decoded before a malformed record are
// kept and returned along with the error.
func Parse(data []byte) (*DB, error) {
	db := &DB{
		byCRC32: make(map[uint32]int),
		byMD5:   make(map[string]int),
	}
	if len(data) < headerSize {
		return db, nil
	}
	if !bytes.HasPrefix(data, magic) {
		return db, fmt.Errorf("not an RDB file")
	}

	d := &decoder{data: data, pos: headerSize}
	for !d.atNil() {
		e, err := readEntry(d)
		if err != nil {
			return db, fmt.Errorf("entry %d: %w", len(db.entries), err)
		}
		if e.Name == "" && e.CRC32 == 0 {
			continue
		}
		db.add(e)
	}
	return db, nil
}

func readEntry(d *decoder) (Entry, error) {
	var e Entry
	n, err := d.mapLen()
	if err != nil {
		return e, err
	}
	for i := 0; i < n; i++ {
		k, err := d.value()
		if err != nil {
			return e, err
		}
		v, err := d.value()
		if err != nil {
			return e, err
		}
		key, ok := k.([]byte)
		if !ok {
			continue
		}
		setField(&e, string(key), v)
	}
	return e, nil
}

func (db *DB) add(e Entry) {
	i := len(db.entries)
	db.entries = append(db.entries, e)
	if e.CRC32 != 0 {
		db.byCRC32[e.CRC32] = i
	}
	if e.MD5 != "" {
		db.byMD5[e.MD5] = i
	}
}

// setField stores one decoded key/value pair.
func setField(e *Entry, key string, v any) {
	switch key {
	case "name":
		e.Name = asString(v)
	case "description":
		e.Description = asString(v)
	case "genre":
		e.Genre = asString(v)
	case "developer":
		e.Developer = asString(v)
	case "publisher":
		e.Publisher = asString(v)
	case "franchise":
		e.Franchise = asString(v)
	case "esrb_rating":
		e.ESRBRating = asString(v)
	case "serial":
		e.Serial = asString(v)
	case "rom_name":
		e.ROMName = asString(v)
	case "size":
		e.Size = asUint(v)
	case "releasemonth":
		e.ReleaseMonth = uint(asUint(v))
	case "releaseyear":
		e.ReleaseYear = uint(asUint(v))
	case "crc":
		e.CRC32 = uint32(asUint(v))
	case "md5":
		// stored as 16 raw bytes
		if b, ok := v.([]byte); ok {
			e.MD5 = hex.EncodeToString(b)
		}
	}
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return ""
}

// asUint accepts integers and big-endian binary blobs.
func asUint(v any) uint64 {
	switch x := v.(type) {
	case uint64:
		return x
	case []byte:
		if len(x) > 8 {
			return 0
		}
		return beUint(x)
	}
	return 0
}

// ByCRC32 looks up content by its CRC32 checksum.
func (db *DB) ByCRC32(crc uint32) (Entry, bool) {
	i, ok := db.byCRC32[crc]
	if !ok {
		return Entry{}, false
	}
	return db.entries[i], true
}

// ByMD5 looks up content by its lowercase hex MD5.
func (db *DB) ByMD5(md5 string) (Entry, bool) {
	i, ok := db.byMD5[strings.ToLower(md5)]
	if !ok {
		return Entry{}, false
	}
	return db.entries[i], true
}

// Len returns the number of entries.
func (db *DB) Len() int {
	return len(db.entries)
}

// DisplayName strips region and version tags from a No-Intro name.
func DisplayName(name string) string {
	idx := strings.Index(name, " (")
	if idx > 0 {
		return strings.TrimSpace(name[:idx])
	}
	return name
}

// RegionCode extracts the region from a No-Intro name.
// Returns "us", "eu", "jp", or "" if unknown
func RegionCode(name string) string {
	nameLower := strings.ToLower(name)

	if strings.Contains(nameLower, "(usa") ||
		strings.Contains(nameLower, "(us)") ||
		strings.Contains(nameLower, ", usa)") {
		return "us"
	}
	if strings.Contains(nameLower, "(europe") ||
		strings.Contains(nameLower, "(eu)") ||
		strings.Contains(nameLower, ", europe)") {
		return "eu"
	}
	if strings.Contains(nameLower, "(japan") ||
		strings.Contains(nameLower, "(jp)") ||
		strings.Contains(nameLower, ", japan)") {
		return "jp"
	}

	// Multi-region releases default to US
	if strings.Contains(nameLower, "(world)") {
		return "us"
	}

	return ""
}

// Region maps a No-Intro name to a video region. European releases are
// PAL, everything else identified is NTSC.
func Region(name string) (emucore.Region, bool) {
	switch RegionCode(name) {
	case "us", "jp":
		return emucore.RegionNTSC, true
	case "eu":
		return emucore.RegionPAL, true
	}
	return emucore.RegionNTSC, false
}

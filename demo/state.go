package demo

import (
	"encoding/binary"
	"hash/crc32"

	emucore "github.com/user-none/retrobackend/api"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "RDEMOState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
	stateBodySize   = 8 + 4 + 4 + 4 + 4 + 4 + 1 + 1 + 2 + saveRAMSize + systemRAMSize
	stateSize       = stateHeaderSize + stateBodySize
)

// SerializeSize returns the fixed save state size.
func (c *Core) SerializeSize() int {
	return stateSize
}

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeState captures the pattern state.
func (c *Core) SerializeState() ([]byte, error) {
	data := make([]byte, stateSize)

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], c.romCRC)

	off := stateHeaderSize
	binary.LittleEndian.PutUint64(data[off:], c.frame)
	off += 8
	binary.LittleEndian.PutUint32(data[off:], uint32(c.cursorX))
	off += 4
	binary.LittleEndian.PutUint32(data[off:], uint32(c.cursorY))
	off += 4
	binary.LittleEndian.PutUint32(data[off:], c.scroll)
	off += 4
	binary.LittleEndian.PutUint32(data[off:], c.phase)
	off += 4
	binary.LittleEndian.PutUint32(data[off:], c.carry)
	off += 4
	data[off] = boolByte(c.paused)
	off++
	data[off] = boolByte(c.lastStart)
	off++
	binary.LittleEndian.PutUint16(data[off:], uint16(c.width))
	off += 2
	off += copy(data[off:], c.saveRAM[:])
	copy(data[off:], c.systemRAM[:])

	// Calculate and write data CRC32 (over everything after header)
	binary.LittleEndian.PutUint32(data[18:22], crc32.ChecksumIEEE(data[stateHeaderSize:]))
	return data, nil
}

// verifyState checks a save state without applying it. Trailing padding
// after the state is allowed.
func (c *Core) verifyState(data []byte) error {
	if len(data) < stateSize {
		return emucore.NewStateError(emucore.StateSizeMismatch, "save state too short: %d bytes", len(data))
	}
	if string(data[0:12]) != stateMagic {
		return emucore.NewStateError(emucore.StateCorrupt, "invalid save state magic")
	}
	if version := binary.LittleEndian.Uint16(data[12:14]); version > stateVersion {
		return emucore.NewStateError(emucore.StateCorrupt, "unsupported save state version %d", version)
	}
	if romCRC := binary.LittleEndian.Uint32(data[14:18]); romCRC != c.romCRC {
		return emucore.NewStateError(emucore.StateCorrupt, "save state is for different content")
	}
	expected := binary.LittleEndian.Uint32(data[18:22])
	if crc32.ChecksumIEEE(data[stateHeaderSize:stateSize]) != expected {
		return emucore.NewStateError(emucore.StateCorrupt, "save state data is corrupted")
	}
	width := int(binary.LittleEndian.Uint16(data[stateHeaderSize+30:]))
	if width != ScreenWidth && width != WideWidth {
		return emucore.NewStateError(emucore.StateCorrupt, "invalid screen width %d", width)
	}
	return nil
}

// DeserializeState restores a state produced by SerializeState.
func (c *Core) DeserializeState(data []byte) error {
	if err := c.verifyState(data); err != nil {
		return err
	}

	off := stateHeaderSize
	c.frame = binary.LittleEndian.Uint64(data[off:])
	off += 8
	c.cursorX = int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	c.cursorY = int32(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	c.scroll = binary.LittleEndian.Uint32(data[off:])
	off += 4
	c.phase = binary.LittleEndian.Uint32(data[off:])
	off += 4
	c.carry = binary.LittleEndian.Uint32(data[off:])
	off += 4
	c.paused = data[off] != 0
	off++
	c.lastStart = data[off] != 0
	off++
	c.width = int(binary.LittleEndian.Uint16(data[off:]))
	off += 2
	off += copy(c.saveRAM[:], data[off:off+saveRAMSize])
	copy(c.systemRAM[:], data[off:off+systemRAMSize])
	return nil
}

package gamedb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessagePack type bytes used by RDB files.
const (
	mpPosFixIntMax = 0x7f
	mpFixMap       = 0x80
	mpFixMapMax    = 0x8f
	mpFixStr       = 0xa0
	mpFixStrMax    = 0xbf
	mpNil          = 0xc0
	mpFalse        = 0xc2
	mpTrue         = 0xc3
	mpBin8         = 0xc4
	mpBin16        = 0xc5
	mpBin32        = 0xc6
	mpUint8        = 0xcc
	mpUint16       = 0xcd
	mpUint32       = 0xce
	mpUint64       = 0xcf
	mpInt8         = 0xd0
	mpInt16        = 0xd1
	mpInt32        = 0xd2
	mpInt64        = 0xd3
	mpStr8         = 0xd9
	mpStr16        = 0xda
	mpStr32        = 0xdb
	mpMap16        = 0xde
	mpMap32        = 0xdf
	mpNegFixInt    = 0xe0
)

var errTruncated = errors.New("truncated record")

// decoder reads the subset of MessagePack found in RDB files: maps of
// string keys to strings, binary blobs and integers.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, errTruncated
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// length reads a big-endian length of size bytes.
func (d *decoder) length(size int) (int, error) {
	b, err := d.take(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return int(b[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(b)), nil
	default:
		return int(binary.BigEndian.Uint32(b)), nil
	}
}

// atNil reports whether the next value is nil, which terminates an RDB.
func (d *decoder) atNil() bool {
	return d.pos >= len(d.data) || d.data[d.pos] == mpNil
}

// mapLen reads a map header.
func (d *decoder) mapLen() (int, error) {
	t, err := d.take(1)
	if err != nil {
		return 0, err
	}
	switch {
	case t[0] >= mpFixMap && t[0] <= mpFixMapMax:
		return int(t[0] - mpFixMap), nil
	case t[0] == mpMap16:
		return d.length(2)
	case t[0] == mpMap32:
		return d.length(4)
	}
	return 0, fmt.Errorf("expected map at offset %d, got type %#02x", d.pos-1, t[0])
}

// value reads a scalar. Strings and binary data are returned as []byte,
// integers as uint64 (negative values as their two's complement).
func (d *decoder) value() (any, error) {
	tb, err := d.take(1)
	if err != nil {
		return nil, err
	}
	t := tb[0]

	switch {
	case t <= mpPosFixIntMax:
		return uint64(t), nil
	case t >= mpNegFixInt:
		return uint64(int64(int8(t))), nil
	case t >= mpFixStr && t <= mpFixStrMax:
		return d.take(int(t - mpFixStr))
	}

	switch t {
	case mpNil:
		return nil, nil
	case mpFalse:
		return false, nil
	case mpTrue:
		return true, nil
	case mpStr8, mpBin8:
		n, err := d.length(1)
		if err != nil {
			return nil, err
		}
		return d.take(n)
	case mpStr16, mpBin16:
		n, err := d.length(2)
		if err != nil {
			return nil, err
		}
		return d.take(n)
	case mpStr32, mpBin32:
		n, err := d.length(4)
		if err != nil {
			return nil, err
		}
		return d.take(n)
	case mpUint8, mpUint16, mpUint32, mpUint64:
		b, err := d.take(1 << (t - mpUint8))
		if err != nil {
			return nil, err
		}
		return beUint(b), nil
	case mpInt8, mpInt16, mpInt32, mpInt64:
		b, err := d.take(1 << (t - mpInt8))
		if err != nil {
			return nil, err
		}
		shift := 64 - 8*uint(len(b))
		return uint64(int64(beUint(b)<<shift) >> shift), nil
	}
	return nil, fmt.Errorf("unsupported type %#02x at offset %d", t, d.pos-1)
}

// beUint decodes up to 8 big-endian bytes.
func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

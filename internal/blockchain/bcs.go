package blockchain

import (
	"bytes"
	"encoding/binary"
)

// bcsEncoder writes Binary Canonical Serialization: little-endian integers,
// ULEB128 lengths and enum tags as a single variant byte.
type bcsEncoder struct {
	buf bytes.Buffer
}

func (e *bcsEncoder) u8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *bcsEncoder) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *bcsEncoder) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *bcsEncoder) boolean(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *bcsEncoder) uleb128(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

// fixed writes bytes without a length prefix ([u8; N])
func (e *bcsEncoder) fixed(b []byte) {
	e.buf.Write(b)
}

// bytes writes a length-prefixed byte vector (Vec<u8>)
func (e *bcsEncoder) bytes(b []byte) {
	e.uleb128(uint64(len(b)))
	e.buf.Write(b)
}

func (e *bcsEncoder) str(s string) {
	e.bytes([]byte(s))
}

func (e *bcsEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

// Package digestcodec is the byte level encoding of state digests. Every
// value is written as a little-endian 64-bit word so digests do not depend
// on the platform.
package digestcodec

import "encoding/binary"

type Writer interface {
	Write(p []byte) (n int, err error)
}

func U64(w Writer, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.Write(tmp[:])
}

func I64(w Writer, tmp *[8]byte, v int64) { U64(w, tmp, uint64(v)) }

func BoolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// Bools packs up to 64 flags into one word, first flag in bit 0.
func Bools(w Writer, tmp *[8]byte, vs ...bool) {
	var v uint64
	for i, b := range vs {
		v |= uint64(BoolByte(b)) << uint(i)
	}
	U64(w, tmp, v)
}

// Bytes writes the length of b followed by b.
func Bytes(w Writer, tmp *[8]byte, b []byte) {
	U64(w, tmp, uint64(len(b)))
	w.Write(b)
}

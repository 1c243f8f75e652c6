package wasm

import (
	"bytes"
	"encoding/binary"
	"math"
)

func writeByte(buf *bytes.Buffer, b byte) {
	buf.WriteByte(b)
}

func writeBytes(buf *bytes.Buffer, data []byte) {
	buf.Write(data)
}

func writeLEB128(buf *bytes.Buffer, val uint32) {
	for val >= 0x80 {
		buf.WriteByte(byte(val&0x7F) | 0x80)
		val >>= 7
	}
	buf.WriteByte(byte(val & 0x7F))
}

func writeLEB128Signed(buf *bytes.Buffer, val int64) {
	for {
		b := byte(val & 0x7F)
		val >>= 7

		if (val == 0 && (b&0x40) == 0) || (val == -1 && (b&0x40) != 0) {
			buf.WriteByte(b)
			break
		}

		buf.WriteByte(b | 0x80)
	}
}

// writeName writes a length-prefixed UTF-8 name.
func writeName(buf *bytes.Buffer, name string) {
	writeLEB128(buf, uint32(len(name)))
	buf.WriteString(name)
}

func writeF32(buf *bytes.Buffer, v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	buf.Write(b[:])
}

func writeF64(buf *bytes.Buffer, v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	buf.Write(b[:])
}

// writeSection writes a section header followed by the section content.
// The content is built in a separate buffer so its size is known up front.
func writeSection(buf *bytes.Buffer, id byte, content *bytes.Buffer) {
	writeByte(buf, id)
	writeLEB128(buf, uint32(content.Len()))
	writeBytes(buf, content.Bytes())
}

package mcwire

// AppendVarInt appends the VarInt encoding of v to dst and returns the
// extended slice. Encodings are minimal: values below 128 take one byte and no
// value takes more than MaxVarIntBytes.
func AppendVarInt(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if v == 0 {
			return dst
		}
	}
}

// VarIntSize returns the number of bytes AppendVarInt would emit for v.
func VarIntSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// AppendString appends a VarInt length prefix followed by the raw bytes of s.
func AppendString(dst []byte, s string) []byte {
	dst = AppendVarInt(dst, uint64(len(s)))
	return append(dst, s...)
}

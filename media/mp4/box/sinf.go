package box

import "encoding/binary"

// ProtectionSchemeInfoBox (sinf) wraps the original unprotected sample
// entry type (frma), the protection scheme identifier (schm), and its
// scheme-specific info (schi, here just a tenc).

func NewFrma(dataFormat [4]byte) []byte {
	out := make([]byte, BasicBoxLen+4)
	(&BasicBox{Size: uint64(len(out)), Type: TypeFRMA}).Encode(out)
	copy(out[BasicBoxLen:], dataFormat[:])
	return out
}

// NewSchm builds the SchemeTypeBox (schm): identifies the protection
// scheme (cenc, cens, cbc1, cbcs) and its version (always 0x00010000 for
// CENC v1).
func NewSchm(schemeType [4]byte, schemeVersion uint32) []byte {
	fb := NewFullBox(TypeSCHM, 0)
	size := uint64(FullBoxLen + 4 + 4)
	fb.Box.Size = size
	out := make([]byte, size)
	n := fb.Encode(out)
	copy(out[n:], schemeType[:])
	n += 4
	binary.BigEndian.PutUint32(out[n:], schemeVersion)
	return out
}

func NewSchi(tenc []byte) []byte {
	return container(TypeSCHI, tenc)
}

func NewSinf(dataFormat, schemeType [4]byte, schemeVersion uint32, tenc []byte) []byte {
	return container(TypeSINF, NewFrma(dataFormat), NewSchm(schemeType, schemeVersion), NewSchi(tenc))
}

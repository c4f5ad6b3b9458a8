package box

import "encoding/binary"

// ProtectionSystemSpecificHeaderBox (pssh), ISO/IEC 23001-7 §8.1. Carries a
// DRM system's own license-acquisition payload; this packager writes
// whatever bytes the key source returns without interpreting them.
type ProtectionSystemHeaderBox struct {
	Box      *FullBox
	SystemID [16]byte
	KeyIDs   [][16]byte
	Data     []byte
}

func NewPssh(systemID [16]byte, keyIDs [][16]byte, data []byte) *ProtectionSystemHeaderBox {
	version := uint8(0)
	if len(keyIDs) > 0 {
		version = 1
	}
	return &ProtectionSystemHeaderBox{
		Box:      NewFullBox(TypePSSH, version),
		SystemID: systemID,
		KeyIDs:   keyIDs,
		Data:     data,
	}
}

func (b *ProtectionSystemHeaderBox) Size() uint64 {
	n := FullBoxLen + 16 + 4 + len(b.Data)
	if b.Box.Version > 0 {
		n += 4 + 16*len(b.KeyIDs)
	}
	return uint64(n)
}

func (b *ProtectionSystemHeaderBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	copy(out[n:], b.SystemID[:])
	n += 16
	if b.Box.Version > 0 {
		binary.BigEndian.PutUint32(out[n:], uint32(len(b.KeyIDs)))
		n += 4
		for _, kid := range b.KeyIDs {
			copy(out[n:], kid[:])
			n += 16
		}
	}
	binary.BigEndian.PutUint32(out[n:], uint32(len(b.Data)))
	n += 4
	copy(out[n:], b.Data)
	return out
}

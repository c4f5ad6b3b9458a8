package box

import "encoding/binary"

// MovieFragmentHeaderBox (mfhd): one per moof, carrying the fragment's
// 1-based sequence number.
type MovieFragmentHeaderBox struct {
	Box            *FullBox
	SequenceNumber uint32
}

func NewMfhd(sequenceNumber uint32) *MovieFragmentHeaderBox {
	return &MovieFragmentHeaderBox{Box: NewFullBox(TypeMFHD, 0), SequenceNumber: sequenceNumber}
}

func (b *MovieFragmentHeaderBox) Size() uint64 { return FullBoxLen + 4 }

func (b *MovieFragmentHeaderBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint32(out[n:], b.SequenceNumber)
	return out
}

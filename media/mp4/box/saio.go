package box

import "encoding/binary"

// SampleAuxiliaryInformationOffsetsBox (saio), ISO/IEC 14496-12 §8.7.9.
// Points at the byte offset, relative to this traf's enclosing moof, of
// the first aux-info entry in the matching senc box. Always written with
// a single entry; this packager never splits one traf's aux info across
// more than one run.
type SampleAuxInfoOffsetsBox struct {
	Box    *FullBox
	Offset uint64
}

func NewSaio(offsetFromMoofStart uint64) *SampleAuxInfoOffsetsBox {
	return &SampleAuxInfoOffsetsBox{Box: NewFullBox(TypeSAIO, 0), Offset: offsetFromMoofStart}
}

func (b *SampleAuxInfoOffsetsBox) Size() uint64 { return FullBoxLen + 4 + 4 }

func (b *SampleAuxInfoOffsetsBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint32(out[n:], 1) // entry_count
	n += 4
	binary.BigEndian.PutUint32(out[n:], uint32(b.Offset))
	return out
}

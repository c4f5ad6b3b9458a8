package box

import "encoding/binary"

// SampleAuxiliaryInformationSizesBox (saiz), ISO/IEC 14496-12 §8.7.9. Lists
// the per-sample size of the auxiliary (CENC) info stored in the matching
// senc box; encrypted samples using subsample encryption rarely share one
// size, so this always writes an explicit per-sample table rather than a
// single default.
type SampleAuxInfoSizesBox struct {
	Box        *FullBox
	SampleInfo []uint8
}

func NewSaiz(sampleInfo []uint8) *SampleAuxInfoSizesBox {
	return &SampleAuxInfoSizesBox{Box: NewFullBox(TypeSAIZ, 0), SampleInfo: sampleInfo}
}

func (b *SampleAuxInfoSizesBox) Size() uint64 {
	return uint64(FullBoxLen + 1 + 4 + len(b.SampleInfo))
}

func (b *SampleAuxInfoSizesBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	out[n] = 0 // default_sample_info_size
	n++
	binary.BigEndian.PutUint32(out[n:], uint32(len(b.SampleInfo)))
	n += 4
	copy(out[n:], b.SampleInfo)
	return out
}

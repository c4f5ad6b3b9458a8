package box

import "encoding/binary"

// NewStsd wraps a single sample entry (this packager always emits exactly
// one sample description per track) in the SampleDescriptionBox.
func NewStsd(sampleEntry []byte) []byte {
	fb := NewFullBox(TypeSTSD, 0)
	size := uint64(FullBoxLen+4) + uint64(len(sampleEntry))
	fb.Box.Size = size
	out := make([]byte, size)
	n := fb.Encode(out)
	binary.BigEndian.PutUint32(out[n:], 1) // entry_count
	n += 4
	copy(out[n:], sampleEntry)
	return out
}

// empty versions of the sample-table boxes a fragmented-only init segment
// still needs to carry (ISO/IEC 14496-12 requires stbl to be present and
// well-formed even when every sample lives in movie fragments).
func emptyFullBox(boxType [4]byte) []byte {
	fb := NewFullBox(boxType, 0)
	fb.Box.Size = FullBoxLen + 4
	out := make([]byte, fb.Box.Size)
	n := fb.Encode(out)
	binary.BigEndian.PutUint32(out[n:], 0) // entry_count / sample_count
	return out
}

func NewEmptyStts() []byte { return emptyFullBox(TypeSTTS) }
func NewEmptyStsc() []byte { return emptyFullBox(TypeSTSC) }
func NewEmptyStco() []byte { return emptyFullBox(TypeSTCO) }

func NewEmptyStsz() []byte {
	fb := NewFullBox(TypeSTSZ, 0)
	fb.Box.Size = FullBoxLen + 4 + 4
	out := make([]byte, fb.Box.Size)
	n := fb.Encode(out)
	binary.BigEndian.PutUint32(out[n:], 0) // sample_size
	n += 4
	binary.BigEndian.PutUint32(out[n:], 0) // sample_count
	return out
}

// NewStbl assembles the sample table box for a fragmented track's init
// segment: a real stsd plus empty stts/stsc/stsz/stco.
func NewStbl(sampleEntry []byte) []byte {
	return container(TypeSTBL, NewStsd(sampleEntry), NewEmptyStts(), NewEmptyStsc(), NewEmptyStsz(), NewEmptyStco())
}

package box

import "encoding/binary"

const (
	TfFlagBaseDataOffset               uint32 = 0x000001
	TfFlagSampleDescriptionIndex       uint32 = 0x000002
	TfFlagDefaultSampleDuration        uint32 = 0x000008
	TfFlagDefaultSampleSize            uint32 = 0x000010
	TfFlagDefaultSampleFlags           uint32 = 0x000020
	TfFlagDurationIsEmpty              uint32 = 0x010000
	TfFlagDefaultBaseIsMoof            uint32 = 0x020000
)

// TrackFragmentHeaderBox (tfhd) carries the defaults a traf's trun entries
// fall back to when they omit a field.
type TrackFragmentHeaderBox struct {
	Box                    *FullBox
	TrackID                uint32
	SampleDescriptionIndex uint32
	DefaultSampleDuration  uint32
	DefaultSampleSize      uint32
	DefaultSampleFlags     uint32
}

func NewTfhd(trackID uint32) *TrackFragmentHeaderBox {
	tfhd := &TrackFragmentHeaderBox{
		Box:                    NewFullBox(TypeTFHD, 0),
		TrackID:                trackID,
		SampleDescriptionIndex: 1,
	}
	tfhd.Box.SetFlags(TfFlagSampleDescriptionIndex | TfFlagDefaultBaseIsMoof |
		TfFlagDefaultSampleDuration | TfFlagDefaultSampleSize | TfFlagDefaultSampleFlags)
	return tfhd
}

func (b *TrackFragmentHeaderBox) Size() uint64 {
	return FullBoxLen + 4 + 4 + 4 + 4 + 4
}

func (b *TrackFragmentHeaderBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint32(out[n:], b.TrackID)
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.SampleDescriptionIndex)
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.DefaultSampleDuration)
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.DefaultSampleSize)
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.DefaultSampleFlags)
	return out
}

package box

import "encoding/binary"

// TrackFragmentBaseMediaDecodeTimeBox (tfdt), version 1: the decode time of
// this fragment's first sample, on the track's own timescale.
type TrackFragmentBaseMediaDecodeTimeBox struct {
	BaseMediaDecodeTime uint64
}

func NewTfdt(baseMediaDecodeTime uint64) *TrackFragmentBaseMediaDecodeTimeBox {
	return &TrackFragmentBaseMediaDecodeTimeBox{BaseMediaDecodeTime: baseMediaDecodeTime}
}

func (b *TrackFragmentBaseMediaDecodeTimeBox) Size() uint64 { return FullBoxLen + 8 }

func (b *TrackFragmentBaseMediaDecodeTimeBox) Encode() []byte {
	fb := NewFullBox(TypeTFDT, 1)
	fb.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := fb.Encode(out)
	binary.BigEndian.PutUint64(out[n:], b.BaseMediaDecodeTime)
	return out
}

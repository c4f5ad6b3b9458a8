package box

import "github.com/nevil/edash-packager/media/base"

// TrackInit is everything NewTrak needs to build one trak's init-segment
// subtree.
type TrackInit struct {
	TrackID     uint32
	Type        base.TrackType
	Timescale   uint32
	Width       uint32
	Height      uint32
	SampleEntry []byte // avc1/hvc1/encv/mp4a/enca, already boxed
}

func mediaHandler(t base.TrackType) ([4]byte, string) {
	if t == base.TrackVideo {
		return fourcc("vide"), "VideoHandler"
	}
	return fourcc("soun"), "SoundHandler"
}

func mediaHeader(t base.TrackType) []byte {
	if t == base.TrackVideo {
		return NewVmhd()
	}
	return NewSmhd()
}

// NewTrak assembles tkhd + mdia[mdhd + hdlr + minf[vmhd/smhd + dinf + stbl]].
func NewTrak(t TrackInit) []byte {
	tkhd := NewTkhd(t.TrackID)
	tkhd.Width = t.Width << 16
	tkhd.Height = t.Height << 16

	mdhd := NewMdhd(t.Timescale)

	handlerType, handlerName := mediaHandler(t.Type)
	hdlr := NewHdlr(handlerType, handlerName)

	minf := container(TypeMINF, mediaHeader(t.Type), NewDinf(), NewStbl(t.SampleEntry))
	mdia := container(TypeMDIA, mdhd.Encode(), hdlr.Encode(), minf)

	return container(TypeTRAK, tkhd.Encode(), mdia)
}

// NewMoov assembles mvhd + one trak per track + mvex (with one trex per
// track, required for fragmented movies).
func NewMoov(timescale uint32, nextTrackID uint32, traks [][]byte, trackIDs []uint32) []byte {
	children := [][]byte{NewMvhd(timescale, nextTrackID).Encode()}
	children = append(children, traks...)

	trexes := make([][]byte, 0, len(trackIDs))
	for _, id := range trackIDs {
		trexes = append(trexes, NewTrex(id))
	}
	children = append(children, container(TypeMVEX, trexes...))

	return container(TypeMOOV, children...)
}

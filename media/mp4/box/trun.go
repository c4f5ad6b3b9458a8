package box

import "encoding/binary"

const (
	TrFlagDataOffset              uint32 = 0x000001
	TrFlagFirstSampleFlags        uint32 = 0x000004
	TrFlagSampleDuration          uint32 = 0x000100
	TrFlagSampleSize              uint32 = 0x000200
	TrFlagSampleFlags             uint32 = 0x000400
	TrFlagSampleCompositionOffset uint32 = 0x000800

	// SampleFlagNonSync marks a sample that isn't usable as a random
	// access point; a sync sample leaves sample_flags at zero (ffmpeg's
	// convention for IDR/sync samples).
	SampleFlagNonSync uint32 = 0x00010000
)

// TrunEntry is one per-sample row inside a trun box.
type TrunEntry struct {
	Duration              uint32
	Size                  uint32
	Flags                 uint32
	CompositionTimeOffset int32
}

// TrackRunBox (trun), version 1: the fragment's actual sample table, with a
// signed composition time offset to accommodate B-frame reordering.
type TrackRunBox struct {
	Box        *FullBox
	DataOffset int32
	Entries    []TrunEntry
}

// NewTrun builds a trun box whose byte offset from the start of its moof
// will be patched in once the surrounding moof/traf layout is known; call
// SetDataOffset before Encode.
func NewTrun(entries []TrunEntry) *TrackRunBox {
	trun := &TrackRunBox{Box: NewFullBox(TypeTRUN, 1), Entries: entries}
	flags := TrFlagDataOffset | TrFlagSampleDuration | TrFlagSampleSize | TrFlagSampleFlags
	if hasCompositionOffset(entries) {
		flags |= TrFlagSampleCompositionOffset
	}
	trun.Box.SetFlags(flags)
	return trun
}

func hasCompositionOffset(entries []TrunEntry) bool {
	for _, e := range entries {
		if e.CompositionTimeOffset != 0 {
			return true
		}
	}
	return false
}

func (b *TrackRunBox) SetDataOffset(offset int32) { b.DataOffset = offset }

func (b *TrackRunBox) Size() uint64 {
	n := FullBoxLen + 4 + 4 // sample_count, data_offset
	flags := b.Box.FlagsUint32()
	perEntry := 0
	if flags&TrFlagSampleDuration > 0 {
		perEntry += 4
	}
	if flags&TrFlagSampleSize > 0 {
		perEntry += 4
	}
	if flags&TrFlagSampleFlags > 0 {
		perEntry += 4
	}
	if flags&TrFlagSampleCompositionOffset > 0 {
		perEntry += 4
	}
	return uint64(n + perEntry*len(b.Entries))
}

func (b *TrackRunBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint32(out[n:], uint32(len(b.Entries)))
	n += 4
	binary.BigEndian.PutUint32(out[n:], uint32(b.DataOffset))
	n += 4
	flags := b.Box.FlagsUint32()
	for _, e := range b.Entries {
		if flags&TrFlagSampleDuration > 0 {
			binary.BigEndian.PutUint32(out[n:], e.Duration)
			n += 4
		}
		if flags&TrFlagSampleSize > 0 {
			binary.BigEndian.PutUint32(out[n:], e.Size)
			n += 4
		}
		if flags&TrFlagSampleFlags > 0 {
			binary.BigEndian.PutUint32(out[n:], e.Flags)
			n += 4
		}
		if flags&TrFlagSampleCompositionOffset > 0 {
			binary.BigEndian.PutUint32(out[n:], uint32(e.CompositionTimeOffset))
			n += 4
		}
	}
	return out
}

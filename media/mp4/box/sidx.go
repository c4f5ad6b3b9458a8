package box

import "encoding/binary"

// SegmentIndexReferenceEntry is one sidx reference, after consecutive
// fragment references have been coalesced into subsegments.
type SegmentIndexReferenceEntry struct {
	ReferencedSize     uint32
	SubsegmentDuration uint32
	StartsWithSAP      bool
	SAPType            uint8
	SAPDeltaTime       uint32
}

// SegmentIndexBox (sidx), ISO/IEC 14496-12 §8.16.3, version 1 (64-bit
// times to carry large presentation timelines without wraparound).
type SegmentIndexBox struct {
	Box                      *FullBox
	ReferenceID              uint32
	TimeScale                uint32
	EarliestPresentationTime uint64
	FirstOffset              uint64
	Entries                  []SegmentIndexReferenceEntry
}

func NewSidx(referenceID, timescale uint32, earliestPresentationTime uint64, entries []SegmentIndexReferenceEntry) *SegmentIndexBox {
	return &SegmentIndexBox{
		Box:                      NewFullBox(TypeSIDX, 1),
		ReferenceID:              referenceID,
		TimeScale:                timescale,
		EarliestPresentationTime: earliestPresentationTime,
		Entries:                  entries,
	}
}

func (b *SegmentIndexBox) Size() uint64 {
	return uint64(FullBoxLen + 4 + 4 + 8 + 8 + 2 + 2 + 12*len(b.Entries))
}

func (b *SegmentIndexBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint32(out[n:], b.ReferenceID)
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.TimeScale)
	n += 4
	binary.BigEndian.PutUint64(out[n:], b.EarliestPresentationTime)
	n += 8
	binary.BigEndian.PutUint64(out[n:], b.FirstOffset)
	n += 8
	n += 2 // reserved
	binary.BigEndian.PutUint16(out[n:], uint16(len(b.Entries)))
	n += 2
	for _, e := range b.Entries {
		binary.BigEndian.PutUint32(out[n:], e.ReferencedSize&0x7FFFFFFF) // reference_type=0 (movie fragment)
		n += 4
		binary.BigEndian.PutUint32(out[n:], e.SubsegmentDuration)
		n += 4
		var sap uint32
		if e.StartsWithSAP {
			sap |= 1 << 31
		}
		sap |= uint32(e.SAPType&0x7) << 28
		sap |= e.SAPDeltaTime & 0x0FFFFFFF
		binary.BigEndian.PutUint32(out[n:], sap)
		n += 4
	}
	return out
}

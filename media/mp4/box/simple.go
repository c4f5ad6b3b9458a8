package box

import "encoding/binary"

// FileTypeBox (ftyp) and SegmentTypeBox (styp) share layout: major_brand,
// minor_version, compatible_brands[].
type FileTypeBox struct {
	Box               [4]byte
	MajorBrand        [4]byte
	MinorVersion      uint32
	CompatibleBrands  [][4]byte
}

func NewFtyp(major [4]byte, minorVersion uint32, compat ...[4]byte) *FileTypeBox {
	return &FileTypeBox{Box: TypeFTYP, MajorBrand: major, MinorVersion: minorVersion, CompatibleBrands: compat}
}

func NewStyp(major [4]byte, minorVersion uint32, compat ...[4]byte) *FileTypeBox {
	return &FileTypeBox{Box: TypeSTYP, MajorBrand: major, MinorVersion: minorVersion, CompatibleBrands: compat}
}

func (b *FileTypeBox) Size() uint64 {
	return uint64(BasicBoxLen + 8 + 4*len(b.CompatibleBrands))
}

func (b *FileTypeBox) Encode() []byte {
	out := make([]byte, b.Size())
	n := (&BasicBox{Size: b.Size(), Type: b.Box}).Encode(out)
	copy(out[n:], b.MajorBrand[:])
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.MinorVersion)
	n += 4
	for _, c := range b.CompatibleBrands {
		copy(out[n:], c[:])
		n += 4
	}
	return out
}

// MovieHeaderBox (mvhd), version 1 (64-bit times, matching large durations).
type MovieHeaderBox struct {
	Box            *FullBox
	CreationTime   uint64
	ModTime        uint64
	Timescale      uint32
	Duration       uint64
	NextTrackID    uint32
}

func NewMvhd(timescale uint32, nextTrackID uint32) *MovieHeaderBox {
	return &MovieHeaderBox{Box: NewFullBox(TypeMVHD, 1), Timescale: timescale, NextTrackID: nextTrackID}
}

func (b *MovieHeaderBox) Size() uint64 {
	return FullBoxLen + 8 + 8 + 4 + 8 + 4 + 2 + 2 + 8 + 36 + 24 + 4
}

func (b *MovieHeaderBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint64(out[n:], b.CreationTime)
	n += 8
	binary.BigEndian.PutUint64(out[n:], b.ModTime)
	n += 8
	binary.BigEndian.PutUint32(out[n:], b.Timescale)
	n += 4
	binary.BigEndian.PutUint64(out[n:], b.Duration)
	n += 8
	binary.BigEndian.PutUint32(out[n:], 0x00010000) // rate = 1.0
	n += 4
	n += 2 // volume = 0 (reserved here, unused by a packager)
	n += 2 + 8
	identity := [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, v := range identity {
		binary.BigEndian.PutUint32(out[n:], uint32(v))
		n += 4
	}
	n += 24 // pre_defined
	binary.BigEndian.PutUint32(out[n:], b.NextTrackID)
	return out
}

// TrackHeaderBox (tkhd), version 1.
type TrackHeaderBox struct {
	Box          *FullBox
	CreationTime uint64
	ModTime      uint64
	TrackID      uint32
	Duration     uint64
	Width        uint32 // fixed-point 16.16, video only
	Height       uint32 // fixed-point 16.16, video only
}

func NewTkhd(trackID uint32) *TrackHeaderBox {
	b := &TrackHeaderBox{Box: NewFullBox(TypeTKHD, 1), TrackID: trackID}
	b.Box.SetFlags(0x000007) // enabled, in movie, in preview
	return b
}

func (b *TrackHeaderBox) Size() uint64 {
	return FullBoxLen + 8 + 8 + 4 + 4 + 8 + 8 + 2 + 2 + 2 + 2 + 36 + 4 + 4
}

func (b *TrackHeaderBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint64(out[n:], b.CreationTime)
	n += 8
	binary.BigEndian.PutUint64(out[n:], b.ModTime)
	n += 8
	binary.BigEndian.PutUint32(out[n:], b.TrackID)
	n += 4
	n += 4 // reserved
	binary.BigEndian.PutUint64(out[n:], b.Duration)
	n += 8
	n += 8 + 2 + 2 + 2 + 2 // reserved, layer, alternate_group, volume, reserved
	identity := [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}
	for _, v := range identity {
		binary.BigEndian.PutUint32(out[n:], uint32(v))
		n += 4
	}
	binary.BigEndian.PutUint32(out[n:], b.Width)
	n += 4
	binary.BigEndian.PutUint32(out[n:], b.Height)
	return out
}

// MediaHeaderBox (mdhd), version 1.
type MediaHeaderBox struct {
	Box          *FullBox
	CreationTime uint64
	ModTime      uint64
	Timescale    uint32
	Duration     uint64
}

func NewMdhd(timescale uint32) *MediaHeaderBox {
	return &MediaHeaderBox{Box: NewFullBox(TypeMDHD, 1), Timescale: timescale}
}

func (b *MediaHeaderBox) Size() uint64 {
	return FullBoxLen + 8 + 8 + 4 + 8 + 4
}

func (b *MediaHeaderBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint64(out[n:], b.CreationTime)
	n += 8
	binary.BigEndian.PutUint64(out[n:], b.ModTime)
	n += 8
	binary.BigEndian.PutUint32(out[n:], b.Timescale)
	n += 4
	binary.BigEndian.PutUint64(out[n:], b.Duration)
	n += 8
	binary.BigEndian.PutUint16(out[n:], 0x55c4) // "und" packed language code
	return out
}

// HandlerBox (hdlr).
type HandlerBox struct {
	Box         *FullBox
	HandlerType [4]byte // "vide" or "soun"
	Name        string
}

func NewHdlr(handlerType [4]byte, name string) *HandlerBox {
	return &HandlerBox{Box: NewFullBox(TypeHDLR, 0), HandlerType: handlerType, Name: name}
}

func (b *HandlerBox) Size() uint64 {
	return FullBoxLen + 4 + 4 + 12 + uint64(len(b.Name)) + 1
}

func (b *HandlerBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	n += 4 // pre_defined
	copy(out[n:], b.HandlerType[:])
	n += 4
	n += 12 // reserved
	copy(out[n:], b.Name)
	return out
}

// VideoMediaHeaderBox (vmhd) / SoundMediaHeaderBox (smhd) are fixed,
// content-free headers required inside minf.
func NewVmhd() []byte {
	fb := NewFullBox(TypeVMHD, 0)
	fb.SetFlags(1)
	fb.Box.Size = FullBoxLen + 8
	out := make([]byte, fb.Box.Size)
	fb.Encode(out)
	return out
}

func NewSmhd() []byte {
	fb := NewFullBox(TypeSMHD, 0)
	fb.Box.Size = FullBoxLen + 4
	out := make([]byte, fb.Box.Size)
	fb.Encode(out)
	return out
}

// DataReferenceBox (dref) with a single self-contained "url " entry, plus
// its DataInformationBox (dinf) wrapper.
func NewDinf() []byte {
	urlFb := NewFullBox(TypeURLB, 0)
	urlFb.SetFlags(1) // media data is in the same file
	urlFb.Box.Size = FullBoxLen
	url := make([]byte, urlFb.Box.Size)
	urlFb.Encode(url)

	drefSize := uint64(FullBoxLen + 4 + len(url))
	dref := make([]byte, drefSize)
	fb := NewFullBox(TypeDREF, 0)
	fb.Box.Size = drefSize
	n := fb.Encode(dref)
	binary.BigEndian.PutUint32(dref[n:], 1)
	n += 4
	copy(dref[n:], url)

	return container(TypeDINF, dref)
}

// MovieExtendsBox (mvex) wraps one TrackExtendsBox (trex) per track.
func NewTrex(trackID uint32) []byte {
	fb := NewFullBox(TypeTREX, 0)
	fb.Box.Size = FullBoxLen + 20
	out := make([]byte, fb.Box.Size)
	n := fb.Encode(out)
	binary.BigEndian.PutUint32(out[n:], trackID)
	n += 4
	binary.BigEndian.PutUint32(out[n:], 1) // default_sample_description_index
	return out
}

package box

import "encoding/binary"

// visualSampleEntryFixed writes the 70-byte fixed-layout body common to
// avc1/hvc1/encv: pre_defined/reserved, width, height, resolution,
// frame_count, compressorname, depth, and the closing pre_defined(-1).
func visualSampleEntryFixed(width, height uint16) []byte {
	out := make([]byte, 70)
	n := 16
	binary.BigEndian.PutUint16(out[n:], width)
	n += 2
	binary.BigEndian.PutUint16(out[n:], height)
	n += 2
	binary.BigEndian.PutUint32(out[n:], 0x00480000) // horizresolution, 72dpi
	n += 4
	binary.BigEndian.PutUint32(out[n:], 0x00480000) // vertresolution, 72dpi
	n += 4
	n += 4 // reserved
	binary.BigEndian.PutUint16(out[n:], 1)
	n += 2
	n += 32 // compressorname, left empty
	binary.BigEndian.PutUint16(out[n:], 0x0018)
	n += 2
	binary.BigEndian.PutUint16(out[n:], 0xFFFF)
	return out
}

// sampleEntryHeader writes the 8-byte reserved + data_reference_index
// prefix shared by every SampleEntry.
func sampleEntryHeader() []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint16(out[6:], 1) // data_reference_index
	return out
}

// NewAvc1 / NewHvc1 build a clear visual sample entry wrapping the
// track's decoder configuration record.
func NewAvc1(width, height uint16, avcC []byte) []byte {
	return newVisualSampleEntry(TypeAVC1, width, height, container(TypeAVCC, avcC), nil)
}

func NewHvc1(width, height uint16, hvcC []byte) []byte {
	return newVisualSampleEntry(TypeHVC1, width, height, container(TypeHVCC, hvcC), nil)
}

// WrapAVCC / WrapHVCC box up a raw avcC/hvcC decoder configuration record,
// for callers (encv) that must pass an already-wrapped box rather than the
// bare record NewAvc1/NewHvc1 wrap internally.
func WrapAVCC(avcC []byte) []byte { return container(TypeAVCC, avcC) }
func WrapHVCC(hvcC []byte) []byte { return container(TypeHVCC, hvcC) }

// NewEncv builds the encrypted visual sample entry (encv): the same
// layout as avc1/hvc1, but the original coding name moves into sinf's
// frma box and the visible fourcc becomes "encv".
func NewEncv(originalFormat [4]byte, width, height uint16, decoderConfig, sinf []byte) []byte {
	return newVisualSampleEntry(TypeENCV, width, height, decoderConfig, sinf)
}

func newVisualSampleEntry(format [4]byte, width, height uint16, decoderConfig, sinf []byte) []byte {
	children := [][]byte{sampleEntryHeader(), visualSampleEntryFixed(width, height), decoderConfig}
	if sinf != nil {
		children = append(children, sinf)
	}
	return container(format, children...)
}

// NewMp4a / NewEnca build clear and encrypted AAC audio sample entries.
func NewMp4a(trackID uint32, channelCount, sampleSize uint16, sampleRate uint32, audioSpecificConfig []byte) []byte {
	return newAudioSampleEntry(TypeMP4A, trackID, channelCount, sampleSize, sampleRate, audioSpecificConfig, nil)
}

func NewEnca(trackID uint32, channelCount, sampleSize uint16, sampleRate uint32, audioSpecificConfig, sinf []byte) []byte {
	return newAudioSampleEntry(TypeENCA, trackID, channelCount, sampleSize, sampleRate, audioSpecificConfig, sinf)
}

func newAudioSampleEntry(format [4]byte, trackID uint32, channelCount, sampleSize uint16, sampleRate uint32, audioSpecificConfig, sinf []byte) []byte {
	body := make([]byte, 20)
	n := 8
	binary.BigEndian.PutUint16(body[n:], channelCount)
	n += 2
	binary.BigEndian.PutUint16(body[n:], sampleSize)
	n += 2
	n += 4 // pre_defined + reserved
	binary.BigEndian.PutUint32(body[n:], sampleRate<<16)

	esds := buildEsds(uint16(trackID), audioSpecificConfig)
	children := [][]byte{sampleEntryHeader(), body, esds}
	if sinf != nil {
		children = append(children, sinf)
	}
	return container(format, children...)
}

package box

import "encoding/binary"

// AAC object type per ISO/IEC 14496-1 Table 5; this packager only ever
// sources AAC audio from the upstream demuxer.
const mp4ObjectTypeAAC = 0x40

func encodeDescriptorLen(n int) []byte {
	return []byte{
		1<<7 | byte(n>>21),
		1<<7 | byte(n>>14),
		1<<7 | byte(n>>7),
		byte(n) & 0x7F,
	}
}

// buildEsds encodes an ES_Descriptor wrapping a DecoderConfigDescriptor
// around the AudioSpecificConfig bytes the demuxer already produced,
// following ffmpeg's mov_write_esds_tag layout.
func buildEsds(trackID uint16, audioSpecificConfig []byte) []byte {
	decSpecificInfo := []byte{}
	if len(audioSpecificConfig) > 0 {
		decSpecificInfo = append([]byte{0x05}, encodeDescriptorLen(len(audioSpecificConfig))...)
		decSpecificInfo = append(decSpecificInfo, audioSpecificConfig...)
	}

	dcd := []byte{mp4ObjectTypeAAC, 0x15, 0, 0, 0, 0, 0, 0, 0}
	dcd = append(dcd, decSpecificInfo...)
	dcdFull := append([]byte{0x04}, encodeDescriptorLen(len(dcd))...)
	dcdFull = append(dcdFull, dcd...)

	sld := []byte{0x02}
	sld = append(append(sld, encodeDescriptorLen(1)...), 0x00)

	body := make([]byte, 3)
	binary.BigEndian.PutUint16(body, trackID)
	body = append(body, dcdFull...)
	body = append(body, sld...)

	esd := append([]byte{0x03}, encodeDescriptorLen(len(body))...)
	esd = append(esd, body...)

	fb := NewFullBox(TypeESDS, 0)
	fb.Box.Size = uint64(FullBoxLen + len(esd))
	out := make([]byte, fb.Box.Size)
	n := fb.Encode(out)
	copy(out[n:], esd)
	return out
}

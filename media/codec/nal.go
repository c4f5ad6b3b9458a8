// Package codec implements the BitstreamConverter capability: turning an
// Annex-B NAL stream into the length-prefixed form ISO-BMFF sample entries
// require, and building the avcC/hvcC decoder configuration record.
package codec

import "bytes"

// H264NALUType is the 5-bit nal_unit_type field of an H.264 NAL header.
type H264NALUType byte

const (
	H264NALUUnspecified        H264NALUType = 0
	H264NALUNonIDRPicture      H264NALUType = 1
	H264NALUDataPartitionA     H264NALUType = 2
	H264NALUDataPartitionB     H264NALUType = 3
	H264NALUDataPartitionC     H264NALUType = 4
	H264NALUIDRPicture         H264NALUType = 5
	H264NALUSEI                H264NALUType = 6
	H264NALUSPS                H264NALUType = 7
	H264NALUPPS                H264NALUType = 8
	H264NALUAccessUnitDelim    H264NALUType = 9
	H264NALUSequenceEnd        H264NALUType = 10
	H264NALUStreamEnd          H264NALUType = 11
	H264NALUFillerData         H264NALUType = 12
	H264NALUSPSExtension       H264NALUType = 13
	H264NALUPrefix             H264NALUType = 14
	H264NALUSPSSubset          H264NALUType = 15
)

func ParseH264NALUType(b byte) H264NALUType { return H264NALUType(b & 0x1F) }

func (t H264NALUType) IsSlice() bool {
	switch t {
	case H264NALUNonIDRPicture, H264NALUIDRPicture, H264NALUDataPartitionA:
		return true
	default:
		return false
	}
}

// H265NALUType is the 6-bit nal_unit_type field of an H.265 NAL header.
type H265NALUType byte

const (
	H265NALUTrailN  H265NALUType = 0
	H265NALUTrailR  H265NALUType = 1
	H265NALUTSAN    H265NALUType = 2
	H265NALUTSAR    H265NALUType = 3
	H265NALUSTSAN   H265NALUType = 4
	H265NALUSTSAR   H265NALUType = 5
	H265NALURADLN   H265NALUType = 6
	H265NALURADLR   H265NALUType = 7
	H265NALURASLN   H265NALUType = 8
	H265NALURASLR   H265NALUType = 9
	H265NALUBLAWLP  H265NALUType = 16
	H265NALUBLAWRADL H265NALUType = 17
	H265NALUBLANLP  H265NALUType = 18
	H265NALUIDRWRADL H265NALUType = 19
	H265NALUIDRNLP  H265NALUType = 20
	H265NALUCRA     H265NALUType = 21
	H265NALUVPS     H265NALUType = 32
	H265NALUSPS     H265NALUType = 33
	H265NALUPPS     H265NALUType = 34
	H265NALUAUD     H265NALUType = 35
	H265NALUSEIPrefix H265NALUType = 39
)

func ParseH265NALUType(b byte) H265NALUType { return H265NALUType((b >> 1) & 0x3F) }

func (t H265NALUType) IsSlice() bool {
	return t <= H265NALURASLR || (t >= H265NALUBLAWLP && t <= H265NALUCRA)
}

func (t H265NALUType) IsIRAP() bool {
	return t >= H265NALUBLAWLP && t <= H265NALUCRA
}

var (
	startCode3 = []byte{0x00, 0x00, 0x01}
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
)

// SplitAnnexB splits an Annex-B byte stream (arbitrary mix of 3- and 4-byte
// start codes) into individual NAL units, each without its start code.
func SplitAnnexB(stream []byte) [][]byte {
	var nalus [][]byte
	for _, chunk := range bytes.SplitN(stream, startCode4, -1) {
		if len(chunk) == 0 {
			continue
		}
		for _, nalu := range bytes.SplitN(chunk, startCode3, -1) {
			if len(nalu) > 0 {
				nalus = append(nalus, nalu)
			}
		}
	}
	return nalus
}

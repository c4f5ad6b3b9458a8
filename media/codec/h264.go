package codec

import (
	"bytes"

	"github.com/deepch/vdk/codec/h264parser"
	"github.com/yapingcat/gomedia/go-codec"

	"github.com/nevil/edash-packager/media/base"
)

// H264Converter implements BitstreamConverter for H.264/AVC. It strips
// SPS/PPS NAL units out of the emitted sample (they live only in the avcC
// decoder configuration record) and passes AUD/SEI through unchanged.
type H264Converter struct {
	sps, pps          []byte
	avcC              []byte
	locked            bool
	clearLeadOverride int
}

func NewH264Converter(clearLeadOverride int) *H264Converter {
	return &H264Converter{clearLeadOverride: clearLeadOverride}
}

func (c *H264Converter) Convert(dst []byte, nalus [][]byte) ([]byte, bool, []int, error) {
	isKeyFrame := false
	var clearLeads []int
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		switch ParseH264NALUType(nalu[0]) {
		case H264NALUSPS:
			if err := c.observeSPS(nalu); err != nil {
				return dst, false, nil, err
			}
			continue
		case H264NALUPPS:
			if err := c.observePPS(nalu); err != nil {
				return dst, false, nil, err
			}
			continue
		case H264NALUIDRPicture:
			isKeyFrame = true
		}
		dst = appendLengthPrefixed(dst, nalu)
		// +4 for the length-prefix field buildSubsamples counts as part of
		// the unit; that field is never encrypted regardless of how much
		// of the NAL body itself is clear.
		clearLeads = append(clearLeads, 4+clampClearLead(h264ClearLead(nalu), c.clearLeadOverride, len(nalu)))
	}
	return dst, isKeyFrame, clearLeads, nil
}

func (c *H264Converter) observeSPS(nalu []byte) error {
	if c.sps != nil && c.locked {
		if bytes.Equal(c.sps, nalu) {
			return nil
		}
		return paramSetChangeError("H264Converter.observeSPS")
	}
	c.sps = append([]byte(nil), nalu...)
	return c.rebuildCodecData()
}

func (c *H264Converter) observePPS(nalu []byte) error {
	if c.pps != nil && c.locked {
		if bytes.Equal(c.pps, nalu) {
			return nil
		}
		return paramSetChangeError("H264Converter.observePPS")
	}
	c.pps = append([]byte(nil), nalu...)
	return c.rebuildCodecData()
}

func (c *H264Converter) rebuildCodecData() error {
	if c.sps == nil || c.pps == nil {
		return nil
	}
	if _, err := h264parser.ParseSPS(c.sps); err != nil {
		return base.NewError(base.ParserFailure, "H264Converter.rebuildCodecData", "invalid sps", err)
	}
	avcC, err := codec.CreateH264AVCCExtradata([][]byte{c.sps}, [][]byte{c.pps})
	if err != nil {
		return base.NewError(base.ParserFailure, "H264Converter.rebuildCodecData", "avcC build failed", err)
	}
	c.avcC = avcC
	c.locked = true
	return nil
}

func (c *H264Converter) DecoderConfigRecord() ([]byte, bool) {
	if !c.locked {
		return nil, false
	}
	return c.avcC, true
}

// h264ClearLead returns the number of leading bytes of a VCL NAL unit that
// must stay unencrypted: the 1-byte NAL header plus the
// first_mb_in_slice/slice_type/pic_parameter_set_id Exp-Golomb prefix of the
// slice header, rounded up to a byte boundary.
func h264ClearLead(nalu []byte) int {
	naluType := ParseH264NALUType(nalu[0])
	if !naluType.IsSlice() {
		return len(nalu)
	}
	if len(nalu) < 2 {
		return len(nalu)
	}
	r := newBitReader(nalu[1:])
	r.ue() // first_mb_in_slice
	r.ue() // slice_type
	r.ue() // pic_parameter_set_id
	return 1 + r.byteOffset()
}

func appendLengthPrefixed(dst, nalu []byte) []byte {
	var lenBytes [4]byte
	n := uint32(len(nalu))
	lenBytes[0] = byte(n >> 24)
	lenBytes[1] = byte(n >> 16)
	lenBytes[2] = byte(n >> 8)
	lenBytes[3] = byte(n)
	dst = append(dst, lenBytes[:]...)
	return append(dst, nalu...)
}

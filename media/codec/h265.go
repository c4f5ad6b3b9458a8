package codec

import (
	"bytes"

	"github.com/deepch/vdk/codec/h265parser"
	"github.com/nevil/edash-packager/media/base"
)

// H265Converter implements BitstreamConverter for H.265/HEVC. It strips
// VPS/SPS/PPS out of the emitted sample and passes AUD/SEI through.
type H265Converter struct {
	vps, sps, pps     []byte
	hvcC              []byte
	locked            bool
	clearLeadOverride int
}

func NewH265Converter(clearLeadOverride int) *H265Converter {
	return &H265Converter{clearLeadOverride: clearLeadOverride}
}

func (c *H265Converter) Convert(dst []byte, nalus [][]byte) ([]byte, bool, []int, error) {
	isKeyFrame := false
	var clearLeads []int
	for _, nalu := range nalus {
		if len(nalu) < 2 {
			continue
		}
		naluType := ParseH265NALUType(nalu[0])
		switch naluType {
		case H265NALUVPS:
			if err := c.observe(&c.vps, nalu); err != nil {
				return dst, false, nil, err
			}
			continue
		case H265NALUSPS:
			if err := c.observeSPS(nalu); err != nil {
				return dst, false, nil, err
			}
			continue
		case H265NALUPPS:
			if err := c.observe(&c.pps, nalu); err != nil {
				return dst, false, nil, err
			}
			continue
		}
		if naluType.IsIRAP() {
			isKeyFrame = true
		}
		dst = appendLengthPrefixed(dst, nalu)
		// +4 for the length-prefix field buildSubsamples counts as part of
		// the unit; that field is never encrypted regardless of how much
		// of the NAL body itself is clear.
		clearLeads = append(clearLeads, 4+clampClearLead(h265ClearLead(nalu, naluType), c.clearLeadOverride, len(nalu)))
	}
	if c.sps != nil && c.pps != nil && !c.locked {
		c.hvcC = buildHvcC(nonNilSlice(c.vps), [][]byte{c.sps}, [][]byte{c.pps})
		c.locked = true
	}
	return dst, isKeyFrame, clearLeads, nil
}

func (c *H265Converter) observe(slot *[]byte, nalu []byte) error {
	if *slot != nil && c.locked {
		if bytes.Equal(*slot, nalu) {
			return nil
		}
		return paramSetChangeError("H265Converter.observe")
	}
	*slot = append([]byte(nil), nalu...)
	return nil
}

func (c *H265Converter) observeSPS(nalu []byte) error {
	if c.sps != nil && c.locked {
		if bytes.Equal(c.sps, nalu) {
			return nil
		}
		return paramSetChangeError("H265Converter.observeSPS")
	}
	if _, err := h265parser.ParseSPS(nalu); err != nil {
		return base.NewError(base.ParserFailure, "H265Converter.observeSPS", "invalid sps", err)
	}
	c.sps = append([]byte(nil), nalu...)
	return nil
}

func (c *H265Converter) DecoderConfigRecord() ([]byte, bool) {
	if !c.locked {
		return nil, false
	}
	return c.hvcC, true
}

func nonNilSlice(b []byte) [][]byte {
	if b == nil {
		return nil
	}
	return [][]byte{b}
}

// h265ClearLead covers the 2-byte NAL header plus
// first_slice_segment_in_pic_flag and, for IRAP pictures,
// no_output_of_prior_pics_flag, plus the slice_pic_parameter_set_id
// Exp-Golomb field, rounded up to a byte boundary.
func h265ClearLead(nalu []byte, naluType H265NALUType) int {
	if !naluType.IsSlice() {
		return len(nalu)
	}
	if len(nalu) < 3 {
		return len(nalu)
	}
	r := newBitReader(nalu[2:])
	r.bit() // first_slice_segment_in_pic_flag
	if naluType.IsIRAP() {
		r.bit() // no_output_of_prior_pics_flag
	}
	r.ue() // slice_pic_parameter_set_id
	return 2 + r.byteOffset()
}

package codec

import (
	"bytes"
	"testing"
)

func TestParseH264NALUTypeAndIsSlice(t *testing.T) {
	cases := []struct {
		header byte
		want   H264NALUType
		slice  bool
	}{
		{0x65, H264NALUIDRPicture, true},
		{0x41, H264NALUNonIDRPicture, true},
		{0x67, H264NALUSPS, false},
		{0x68, H264NALUPPS, false},
		{0x06, H264NALUSEI, false},
	}
	for _, c := range cases {
		got := ParseH264NALUType(c.header)
		if got != c.want {
			t.Errorf("ParseH264NALUType(%#x) = %v, want %v", c.header, got, c.want)
		}
		if got.IsSlice() != c.slice {
			t.Errorf("IsSlice(%#x) = %v, want %v", c.header, got.IsSlice(), c.slice)
		}
	}
}

func TestParseH265NALUTypeAndClassification(t *testing.T) {
	cases := []struct {
		header    byte
		want      H265NALUType
		slice     bool
		irap      bool
	}{
		{0x02, H265NALUTrailR, true, false},
		{0x26, H265NALUIDRWRADL, true, true},
		{0x40, H265NALUVPS, false, false},
		{0x42, H265NALUSPS, false, false},
		{0x44, H265NALUPPS, false, false},
	}
	for _, c := range cases {
		got := ParseH265NALUType(c.header)
		if got != c.want {
			t.Errorf("ParseH265NALUType(%#x) = %v, want %v", c.header, got, c.want)
		}
		if got.IsSlice() != c.slice {
			t.Errorf("IsSlice(%#x) = %v, want %v", c.header, got.IsSlice(), c.slice)
		}
		if got.IsIRAP() != c.irap {
			t.Errorf("IsIRAP(%#x) = %v, want %v", c.header, got.IsIRAP(), c.irap)
		}
	}
}

func buildAnnexB(startCode4 bool, nalus ...[]byte) []byte {
	var buf bytes.Buffer
	for i, nalu := range nalus {
		if startCode4 || i%2 == 0 {
			buf.Write([]byte{0x00, 0x00, 0x00, 0x01})
		} else {
			buf.Write([]byte{0x00, 0x00, 0x01})
		}
		buf.Write(nalu)
	}
	return buf.Bytes()
}

// TestSplitAnnexBRoundTrip covers invariant 5: splitting recovers every
// NAL unit's exact payload, regardless of whether 3- or 4-byte start
// codes separate them.
func TestSplitAnnexBRoundTrip(t *testing.T) {
	want := [][]byte{
		{0x67, 0x42, 0x00, 0x1f},
		{0x68, 0xce, 0x3c, 0x80},
		{0x65, 0x88, 0x84, 0x00, 0x00, 0x03},
		{0x41, 0x9a, 0x00, 0x00},
	}
	stream := buildAnnexB(false, want...)

	got := SplitAnnexB(stream)
	if len(got) != len(want) {
		t.Fatalf("got %d NAL units, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("nalu %d = %x, want %x", i, got[i], want[i])
		}
	}
}

func TestClampClearLead(t *testing.T) {
	cases := []struct {
		computed, override, naluLen, want int
	}{
		{5, 0, 10, 5},   // no override, within bounds
		{5, 3, 10, 3},   // override replaces computed
		{20, 0, 10, 10}, // computed clamped to nalu length
		{-1, 0, 10, 0},  // negative computed clamped to zero
	}
	for _, c := range cases {
		got := clampClearLead(c.computed, c.override, c.naluLen)
		if got != c.want {
			t.Errorf("clampClearLead(%d,%d,%d) = %d, want %d", c.computed, c.override, c.naluLen, got, c.want)
		}
	}
}

// TestH264ClearLeadSliceNAL builds a slice NAL whose
// first_mb_in_slice/slice_type/pic_parameter_set_id fields are all
// ue(0), encoded as three consecutive '1' bits right after the NAL
// header, and checks the resulting clear lead covers exactly the header
// byte plus the one byte those three bits round up to.
func TestH264ClearLeadSliceNAL(t *testing.T) {
	nalu := []byte{0x41, 0xE0, 0xAB, 0xCD, 0xEF} // non-IDR slice
	if got, want := h264ClearLead(nalu), 2; got != want {
		t.Fatalf("h264ClearLead = %d, want %d", got, want)
	}
}

func TestH264ClearLeadNonSliceReturnsFullLength(t *testing.T) {
	nalu := []byte{0x06, 0x01, 0x02, 0x03} // SEI
	if got, want := h264ClearLead(nalu), len(nalu); got != want {
		t.Fatalf("h264ClearLead(non-slice) = %d, want %d (full length)", got, want)
	}
}

// TestH265ClearLeadSliceNAL mirrors the H.264 case for a non-IRAP slice:
// 2-byte NAL header, then first_slice_segment_in_pic_flag=1 and
// slice_pic_parameter_set_id=ue(0), both encoded as '1' bits.
func TestH265ClearLeadSliceNAL(t *testing.T) {
	nalu := []byte{0x02, 0x01, 0xC0, 0xAB, 0xCD} // TrailR slice
	naluType := ParseH265NALUType(nalu[0])
	if got, want := h265ClearLead(nalu, naluType), 3; got != want {
		t.Fatalf("h265ClearLead = %d, want %d", got, want)
	}
}

func TestH265ClearLeadNonSliceReturnsFullLength(t *testing.T) {
	nalu := []byte{0x40, 0x01, 0x0c, 0x01} // VPS
	naluType := ParseH265NALUType(nalu[0])
	if got, want := h265ClearLead(nalu, naluType), len(nalu); got != want {
		t.Fatalf("h265ClearLead(non-slice) = %d, want %d (full length)", got, want)
	}
}

// TestH264ConverterConvertSliceOnly drives Convert with only slice NALs
// (no SPS/PPS, keeping the external SPS parser out of the loop) and
// checks the length-prefixed output format and keyframe detection.
func TestH264ConverterConvertSliceOnly(t *testing.T) {
	c := NewH264Converter(0)
	idr := []byte{0x65, 0x88, 0x84, 0x00, 0x00, 0x03}
	out, isKeyFrame, clearLeads, err := c.Convert(nil, [][]byte{idr})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !isKeyFrame {
		t.Fatalf("isKeyFrame = false, want true for an IDR slice")
	}
	if len(clearLeads) != 1 {
		t.Fatalf("got %d clearLeads, want 1", len(clearLeads))
	}
	wantLen := uint32(len(idr))
	gotLen := uint32(out[0])<<24 | uint32(out[1])<<16 | uint32(out[2])<<8 | uint32(out[3])
	if gotLen != wantLen {
		t.Fatalf("length prefix = %d, want %d", gotLen, wantLen)
	}
	if !bytes.Equal(out[4:], idr) {
		t.Fatalf("payload = %x, want %x", out[4:], idr)
	}

	nonIDR := []byte{0x41, 0x9a, 0x00, 0x00}
	_, isKeyFrame2, _, err := c.Convert(nil, [][]byte{nonIDR})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if isKeyFrame2 {
		t.Fatalf("isKeyFrame = true, want false for a non-IDR slice")
	}
}

// TestH265ConverterConvertSliceOnly mirrors the H.264 case: a non-IRAP
// slice is not a keyframe, an IRAP slice is.
func TestH265ConverterConvertSliceOnly(t *testing.T) {
	c := NewH265Converter(0)
	trailR := []byte{0x02, 0x01, 0xC0, 0xAB, 0xCD}
	out, isKeyFrame, clearLeads, err := c.Convert(nil, [][]byte{trailR})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if isKeyFrame {
		t.Fatalf("isKeyFrame = true, want false for a TRAIL_R slice")
	}
	if len(clearLeads) != 1 {
		t.Fatalf("got %d clearLeads, want 1", len(clearLeads))
	}
	gotLen := uint32(out[0])<<24 | uint32(out[1])<<16 | uint32(out[2])<<8 | uint32(out[3])
	if gotLen != uint32(len(trailR)) {
		t.Fatalf("length prefix = %d, want %d", gotLen, len(trailR))
	}

	idrWRADL := []byte{0x26, 0x01, 0xaf, 0x00, 0x00}
	_, isKeyFrame2, _, err := c.Convert(nil, [][]byte{idrWRADL})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if !isKeyFrame2 {
		t.Fatalf("isKeyFrame = false, want true for an IDR_W_RADL slice")
	}
}

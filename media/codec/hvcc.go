package codec

// hevcProfileTierLevel is the subset of the H.265 profile_tier_level()
// structure the hvcC decoder configuration record needs.
type hevcProfileTierLevel struct {
	profileSpace         uint8
	tierFlag             uint8
	profileIdc           uint8
	compatibilityFlags   uint32
	constraintFlags      uint64 // only the low 48 bits are meaningful
	levelIdc             uint8
}

// parseProfileTierLevel reads the general profile_tier_level() fields from
// a raw (start-code-stripped) SPS NAL unit. It assumes sps_max_sub_layers
// is small enough that the general profile_tier_level begins at a byte
// boundary right after the 2-byte NAL header and the 1-byte
// sps_video_parameter_set_id/sps_max_sub_layers_minus1/sps_temporal_id_nesting_flag
// field, per ISO/IEC 23008-2 §7.3.2.2.
func parseProfileTierLevel(sps []byte) hevcProfileTierLevel {
	var ptl hevcProfileTierLevel
	const headerBytes = 2 + 1 // NAL header + sps id/sublayers/nesting byte
	if len(sps) < headerBytes+12 {
		return ptl
	}
	b := sps[headerBytes:]
	ptl.profileSpace = b[0] >> 6
	ptl.tierFlag = (b[0] >> 5) & 1
	ptl.profileIdc = b[0] & 0x1F
	ptl.compatibilityFlags = uint32(b[1])<<24 | uint32(b[2])<<16 | uint32(b[3])<<8 | uint32(b[4])
	ptl.constraintFlags = uint64(b[5])<<40 | uint64(b[6])<<32 | uint64(b[7])<<24 |
		uint64(b[8])<<16 | uint64(b[9])<<8 | uint64(b[10])
	ptl.levelIdc = b[11]
	return ptl
}

// buildHvcC encodes an HEVCDecoderConfigurationRecord (ISO/IEC 14496-15
// §8.3.3.1) wrapping the vps/sps/pps NAL unit arrays, using a 4-byte sample
// length field to match the length-prefixed stream this converter emits.
func buildHvcC(vps, sps, pps [][]byte) []byte {
	var ptl hevcProfileTierLevel
	if len(sps) > 0 {
		ptl = parseProfileTierLevel(sps[0])
	}

	out := make([]byte, 0, 64)
	out = append(out, 1) // configurationVersion

	out = append(out, ptl.profileSpace<<6|ptl.tierFlag<<5|ptl.profileIdc)
	out = append(out,
		byte(ptl.compatibilityFlags>>24), byte(ptl.compatibilityFlags>>16),
		byte(ptl.compatibilityFlags>>8), byte(ptl.compatibilityFlags))
	out = append(out,
		byte(ptl.constraintFlags>>40), byte(ptl.constraintFlags>>32),
		byte(ptl.constraintFlags>>24), byte(ptl.constraintFlags>>16),
		byte(ptl.constraintFlags>>8), byte(ptl.constraintFlags))
	out = append(out, ptl.levelIdc)

	out = append(out, 0xF0, 0x00) // reserved(1111) + min_spatial_segmentation_idc(0)
	out = append(out, 0xFC)       // reserved(111111) + parallelismType(0)
	out = append(out, 0xFD)       // reserved(111111) + chroma_format_idc(1, 4:2:0)
	out = append(out, 0xF8)       // reserved(11111) + bit_depth_luma_minus8(0)
	out = append(out, 0xF8)       // reserved(11111) + bit_depth_chroma_minus8(0)
	out = append(out, 0x00, 0x00) // avgFrameRate
	out = append(out, 0x0F)       // constantFrameRate(0)+numTemporalLayers(1)+temporalIdNested(1)+lengthSizeMinusOne(3)

	type arr struct {
		nalType byte
		nalus   [][]byte
	}
	arrays := []arr{
		{32, vps},
		{33, sps},
		{34, pps},
	}
	numArrays := 0
	for _, a := range arrays {
		if len(a.nalus) > 0 {
			numArrays++
		}
	}
	out = append(out, byte(numArrays))
	for _, a := range arrays {
		if len(a.nalus) == 0 {
			continue
		}
		out = append(out, 0x80|a.nalType) // array_completeness=1, reserved=0
		out = append(out, byte(len(a.nalus)>>8), byte(len(a.nalus)))
		for _, nalu := range a.nalus {
			out = append(out, byte(len(nalu)>>8), byte(len(nalu)))
			out = append(out, nalu...)
		}
	}
	return out
}

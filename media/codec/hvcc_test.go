package codec

import (
	"bytes"
	"testing"
)

// sps bytes: 2-byte NAL header + 1 id/sublayers/nesting byte, then the 12
// profile_tier_level bytes parseProfileTierLevel reads.
func buildProfileTierLevelSPS() []byte {
	header := []byte{0x42, 0x01, 0x04}
	ptl := []byte{
		0x62,                         // profile_space=1, tier_flag=1, profile_idc=2
		0x11, 0x22, 0x33, 0x44,       // compatibility_flags
		0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, // constraint_flags (low 48 bits)
		0x5A, // level_idc
	}
	return append(header, ptl...)
}

func TestParseProfileTierLevel(t *testing.T) {
	sps := buildProfileTierLevelSPS()
	ptl := parseProfileTierLevel(sps)

	if ptl.profileSpace != 1 {
		t.Errorf("profileSpace = %d, want 1", ptl.profileSpace)
	}
	if ptl.tierFlag != 1 {
		t.Errorf("tierFlag = %d, want 1", ptl.tierFlag)
	}
	if ptl.profileIdc != 2 {
		t.Errorf("profileIdc = %d, want 2", ptl.profileIdc)
	}
	if ptl.compatibilityFlags != 0x11223344 {
		t.Errorf("compatibilityFlags = %#x, want %#x", ptl.compatibilityFlags, 0x11223344)
	}
	if ptl.constraintFlags != 0xAABBCCDDEEFF {
		t.Errorf("constraintFlags = %#x, want %#x", ptl.constraintFlags, 0xAABBCCDDEEFF)
	}
	if ptl.levelIdc != 0x5A {
		t.Errorf("levelIdc = %d, want %#x", ptl.levelIdc, 0x5A)
	}
}

func TestParseProfileTierLevelShortSPSReturnsZeroValue(t *testing.T) {
	ptl := parseProfileTierLevel([]byte{0x42, 0x01})
	if ptl.profileSpace != 0 || ptl.profileIdc != 0 || ptl.levelIdc != 0 {
		t.Fatalf("short SPS should yield the zero value, got %+v", ptl)
	}
}

// TestBuildHvcCStructure checks the fixed-layout prefix, the numArrays
// count, and that each non-empty NAL array is tagged with the right
// nal_unit_type and carries every NAL unit's 2-byte length prefix.
func TestBuildHvcCStructure(t *testing.T) {
	sps := buildProfileTierLevelSPS()
	vps := [][]byte{{0x40, 0x01, 0x0c}}
	pps := [][]byte{{0x44, 0x01, 0x01}, {0x44, 0x01, 0x02}}

	out := buildHvcC(vps, [][]byte{sps}, pps)

	if out[0] != 1 {
		t.Fatalf("configurationVersion = %d, want 1", out[0])
	}
	wantProfileByte := byte(1<<6 | 1<<5 | 2)
	if out[1] != wantProfileByte {
		t.Fatalf("profile byte = %#x, want %#x", out[1], wantProfileByte)
	}
	levelIdc := out[12]
	if levelIdc != 0x5A {
		t.Fatalf("level_idc = %#x, want %#x", levelIdc, 0x5A)
	}

	numArrays := out[22]
	if numArrays != 3 {
		t.Fatalf("numArrays = %d, want 3 (vps, sps, pps present)", numArrays)
	}

	n := 23
	readArray := func() (nalType byte, nalus [][]byte) {
		tagged := out[n]
		nalType = tagged &^ 0x80
		n++
		count := int(out[n])<<8 | int(out[n+1])
		n += 2
		for i := 0; i < count; i++ {
			length := int(out[n])<<8 | int(out[n+1])
			n += 2
			nalus = append(nalus, out[n:n+length])
			n += length
		}
		return
	}

	gotVPSType, gotVPS := readArray()
	if gotVPSType != 32 || len(gotVPS) != 1 || !bytes.Equal(gotVPS[0], vps[0]) {
		t.Fatalf("vps array wrong: type=%d nalus=%v", gotVPSType, gotVPS)
	}
	gotSPSType, gotSPS := readArray()
	if gotSPSType != 33 || len(gotSPS) != 1 || !bytes.Equal(gotSPS[0], sps) {
		t.Fatalf("sps array wrong: type=%d", gotSPSType)
	}
	gotPPSType, gotPPS := readArray()
	if gotPPSType != 34 || len(gotPPS) != 2 || !bytes.Equal(gotPPS[0], pps[0]) || !bytes.Equal(gotPPS[1], pps[1]) {
		t.Fatalf("pps array wrong: type=%d nalus=%v", gotPPSType, gotPPS)
	}
	if n != len(out) {
		t.Fatalf("trailing bytes after the last array: consumed %d of %d", n, len(out))
	}
}

func TestBuildHvcCOmitsEmptyArrays(t *testing.T) {
	sps := buildProfileTierLevelSPS()
	out := buildHvcC(nil, [][]byte{sps}, nil)
	numArrays := out[22]
	if numArrays != 1 {
		t.Fatalf("numArrays = %d, want 1 (only sps present)", numArrays)
	}
	nalType := out[23] &^ 0x80
	if nalType != 33 {
		t.Fatalf("sole array nal_unit_type = %d, want 33 (sps)", nalType)
	}
}

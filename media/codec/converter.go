package codec

import "github.com/nevil/edash-packager/media/base"

// BitstreamConverter turns one Annex-B access unit into the length-prefixed
// form the fragmenter writes to mdat, and reports, per emitted NAL unit, how
// many leading bytes must stay clear of encryption. It also owns decoder
// configuration record state (avcC/hvcC) captured from in-band parameter
// sets and refuses a parameter-set change once locked.
type BitstreamConverter interface {
	// Convert rewrites one access unit (already Annex-B NAL-split) into its
	// length-prefixed form, appended to dst. It returns the updated buffer,
	// whether the access unit is a stream access point (SAP/keyframe), and
	// the clear-leader byte count for each emitted NAL unit in order. Each
	// clear-leader count is measured from the start of the 4-byte length
	// field, not the NAL body: it always covers at least the length field
	// itself.
	Convert(dst []byte, nalus [][]byte) (out []byte, isKeyFrame bool, clearLeads []int, err error)

	// DecoderConfigRecord returns the avcC/hvcC payload once parameter sets
	// have been observed, or (nil, false) if none have arrived yet.
	DecoderConfigRecord() ([]byte, bool)
}

// clearLeadOverride, when non-zero, replaces the computed clear lead with a
// fixed byte count (Config.ClearLeadBytes).
func clampClearLead(computed, override, naluLen int) int {
	lead := computed
	if override > 0 {
		lead = override
	}
	if lead > naluLen {
		lead = naluLen
	}
	if lead < 0 {
		lead = 0
	}
	return lead
}

func paramSetChangeError(op string) error {
	return base.NewError(base.ParserFailure, op, "mid-stream parameter set change is not supported; start a new segment instead", nil)
}

package crypto

import (
	"github.com/nevil/edash-packager/media/base"
)

// TrackKey is the per-track secret a KeySource hands to the SampleEncryptor
// at pipeline setup: a key id, the raw key bytes, and an optional constant
// IV reused across every sample instead of a per-sample derived one. The
// two pattern schemes (cens/cbcs) require the constant IV.
type TrackKey struct {
	KeyID      [16]byte
	Key        []byte
	ConstantIV []byte // 8 or 16 bytes; non-nil forces constant-IV mode
}

// SampleEncryptor turns a plaintext base.Sample into encrypted Payload plus
// a base.DecryptConfig describing how to reverse it, for one track. It owns
// the track's running IV/counter state and is not safe for concurrent use.
type SampleEncryptor struct {
	scheme         base.ProtectionScheme
	cryptByteBlock uint8
	skipByteBlock  uint8

	keyID [16]byte
	iv    []byte // current per-sample IV, 8 or 16 bytes

	ctr        *CtrCryptor
	cbc        *CbcCryptor
	constantIV []byte // non-nil in constant-IV mode
}

// NewSampleEncryptor builds the per-track encryptor. cryptByteBlock and
// skipByteBlock are only meaningful for the pattern schemes (cens/cbcs) and
// must otherwise be zero.
func NewSampleEncryptor(scheme base.ProtectionScheme, key TrackKey, cryptByteBlock, skipByteBlock uint8) (*SampleEncryptor, error) {
	if scheme == base.ProtectionNone {
		return nil, base.NewError(base.InvalidArgument, "NewSampleEncryptor", "protection scheme must not be none", nil)
	}
	se := &SampleEncryptor{
		scheme:         scheme,
		cryptByteBlock: cryptByteBlock,
		skipByteBlock:  skipByteBlock,
		keyID:          key.KeyID,
	}
	if scheme.IsPattern() && key.ConstantIV == nil {
		return nil, base.NewError(base.InvalidArgument, "NewSampleEncryptor", "cens/cbcs require a constant IV", nil)
	}
	se.constantIV = key.ConstantIV

	if scheme.IsCBC() {
		cbc, err := NewCbcCryptor(key.Key, PaddingCTS)
		if err != nil {
			return nil, err
		}
		se.cbc = cbc
	} else {
		ctr, err := NewCtrCryptor(key.Key)
		if err != nil {
			return nil, err
		}
		se.ctr = ctr
	}

	if se.constantIV != nil {
		se.iv = se.constantIV
	} else {
		se.iv = make([]byte, 8)
	}
	return se, nil
}

// TencParams returns the fields the Segmenter needs to build this track's
// tenc box: key id, constant IV (nil outside constant-IV mode), and the
// per-sample IV size tenc should advertise (0 when a constant IV is used,
// 8 otherwise).
func (se *SampleEncryptor) TencParams() (keyID [16]byte, constantIV []byte, perSampleIVSize uint8) {
	if se.constantIV != nil {
		return se.keyID, se.constantIV, 0
	}
	return se.keyID, nil, 8
}

// Encrypt encrypts sample.Payload in place (replacing it with ciphertext)
// and returns the DecryptConfig describing the result. clearLeads gives,
// per contiguous run in the payload, how many leading bytes the
// BitstreamConverter has marked as must-stay-clear (NAL headers and the
// covered slice-header prefix); a nil/empty slice means the whole payload
// is subject to the scheme's normal byte-alignment/pattern rule.
func (se *SampleEncryptor) Encrypt(sample *base.Sample) (*base.DecryptConfig, error) {
	perSampleIV := se.constantIV == nil
	if perSampleIV {
		if err := se.resetCryptorIV(); err != nil {
			return nil, err
		}
	}

	subsamples := se.buildSubsamples(sample.Payload, sample.ClearLeads)
	if err := se.encryptSubsamples(sample.Payload, subsamples); err != nil {
		return nil, err
	}

	dc := &base.DecryptConfig{
		KeyID:      se.keyID,
		IV:         append([]byte(nil), se.iv...),
		Subsamples: subsamples,
		Scheme:     se.scheme,
	}
	if se.scheme.IsPattern() {
		dc.CryptByteBlock = se.cryptByteBlock
		dc.SkipByteBlock = se.skipByteBlock
	}

	if perSampleIV {
		se.advanceIV(subsamples)
	}
	return dc, nil
}

// resetCryptorIV points the underlying cryptor's chaining state back at
// se.iv before each sample: CTR resets its counter block to (iv, 0), CBC
// resets its chaining value to iv, so every sample starts from the IV
// recorded in its DecryptConfig rather than continuing whatever state the
// previous sample's encryption left behind.
func (se *SampleEncryptor) resetCryptorIV() error {
	if se.ctr != nil {
		return se.ctr.SetIV(se.iv)
	}
	return se.cbc.SetIV(padIVTo16(se.iv))
}

// advanceIV derives the next sample's starting IV, per CENC IV derivation:
// CTR advances by the number of 16-byte blocks the finished sample's
// cipher bytes consumed; CBC advances by exactly one.
func (se *SampleEncryptor) advanceIV(subsamples []base.SubsampleEntry) {
	delta := uint64(1)
	if se.ctr != nil {
		var cipherBytes uint64
		for _, s := range subsamples {
			cipherBytes += uint64(s.CipherBytes)
		}
		delta = (cipherBytes + blockSize - 1) / blockSize
	}
	addUint64BigEndian(se.iv, delta)
}

// addUint64BigEndian adds delta to b, treating b as a big-endian unsigned
// integer of whatever length it has (8 or 16 bytes); overflow past the top
// byte is dropped, matching CtrCryptor's counter-wrap behavior.
func addUint64BigEndian(b []byte, delta uint64) {
	carry := delta
	for i := len(b) - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(b[i]) + carry
		b[i] = byte(sum)
		carry = sum >> 8
	}
}

// SetIV installs the starting IV for a fresh track (before the first
// sample). Required once per track unless running in constant-IV mode.
func (se *SampleEncryptor) SetIV(iv []byte) error {
	if se.constantIV != nil {
		return base.NewError(base.InvalidArgument, "SetIV", "track uses a constant IV", nil)
	}
	se.iv = append([]byte(nil), iv...)
	return se.resetCryptorIV()
}

// buildSubsamples splits payload into clear/cipher runs. payload is the
// length-prefixed NAL-unit stream the BitstreamConverter produced; clearLeads
// gives, per NAL unit in order, the number of leading bytes of that unit
// (the 4-byte length field plus NAL header plus whatever slice-header prefix
// the converter decided must stay clear) to leave unencrypted. A NAL unit
// whose entire body is clear (cipher run length zero) has no subsample entry
// of its own: its clear bytes accumulate and are folded into the ClearBytes
// count of the next entry that actually has a cipher run.
func (se *SampleEncryptor) buildSubsamples(payload []byte, clearLeads []int) []base.SubsampleEntry {
	if len(clearLeads) == 0 {
		return []base.SubsampleEntry{{ClearBytes: 0, CipherBytes: uint32(len(payload))}}
	}
	var entries []base.SubsampleEntry
	offset := 0
	pendingClear := 0
	for _, lead := range clearLeads {
		if offset+4 > len(payload) {
			break
		}
		nalLen := int(payload[offset])<<24 | int(payload[offset+1])<<16 | int(payload[offset+2])<<8 | int(payload[offset+3])
		unitLen := 4 + nalLen
		if offset+unitLen > len(payload) {
			unitLen = len(payload) - offset
		}
		clear := lead
		if clear > unitLen {
			clear = unitLen
		}
		cipher := unitLen - clear
		pendingClear += clear
		if cipher == 0 {
			offset += unitLen
			continue
		}
		for pendingClear > 0xFFFF {
			entries = append(entries, base.SubsampleEntry{ClearBytes: 0xFFFF})
			pendingClear -= 0xFFFF
		}
		entries = append(entries, base.SubsampleEntry{ClearBytes: uint16(pendingClear), CipherBytes: uint32(cipher)})
		pendingClear = 0
		offset += unitLen
	}
	if offset < len(payload) {
		// trailing bytes with no corresponding clearLeads entry (should not
		// happen when the converter is consistent) are treated as cipher.
		entries = append(entries, base.SubsampleEntry{ClearBytes: uint16(pendingClear), CipherBytes: uint32(len(payload) - offset)})
		pendingClear = 0
	}
	if pendingClear > 0 {
		entries = append(entries, base.SubsampleEntry{ClearBytes: uint16(pendingClear)})
	}
	if len(entries) == 0 {
		entries = append(entries, base.SubsampleEntry{ClearBytes: uint16(len(payload)), CipherBytes: 0})
	}
	return entries
}

// encryptSubsamples walks the subsample plan in place, skipping each
// ClearBytes prefix and encrypting each CipherBytes run. For the pattern
// schemes, each cipher run is itself split into crypt_byte_block:skip_byte_block
// 16-byte groups, with any trailing partial group left clear.
func (se *SampleEncryptor) encryptSubsamples(payload []byte, subsamples []base.SubsampleEntry) error {
	offset := 0
	for _, s := range subsamples {
		offset += int(s.ClearBytes)
		cipherLen := int(s.CipherBytes)
		if cipherLen == 0 {
			continue
		}
		run := payload[offset : offset+cipherLen]
		var err error
		if se.scheme.IsPattern() {
			err = se.encryptPattern(run)
		} else {
			err = se.encryptContiguous(run)
		}
		if err != nil {
			return err
		}
		offset += cipherLen
	}
	return nil
}

func (se *SampleEncryptor) encryptContiguous(run []byte) error {
	if se.cbc != nil {
		out, err := se.cbc.Encrypt(run)
		if err != nil {
			return err
		}
		copy(run, out)
		return nil
	}
	se.ctr.Transform(run, run)
	return nil
}

// encryptPattern encrypts in groups of (cryptByteBlock+skipByteBlock) 16-byte
// blocks: cryptByteBlock blocks are encrypted, skipByteBlock blocks are left
// clear, repeating; any final group shorter than one full block stays clear.
func (se *SampleEncryptor) encryptPattern(run []byte) error {
	groupBlocks := int(se.cryptByteBlock) + int(se.skipByteBlock)
	if groupBlocks == 0 {
		return se.encryptContiguous(run)
	}
	groupSize := groupBlocks * blockSize
	cryptSize := int(se.cryptByteBlock) * blockSize
	for offset := 0; offset+blockSize <= len(run); offset += groupSize {
		n := cryptSize
		if remaining := len(run) - offset; n > remaining {
			n = (remaining / blockSize) * blockSize
		}
		if n == 0 {
			continue
		}
		if err := se.encryptContiguous(run[offset : offset+n]); err != nil {
			return err
		}
	}
	return nil
}

func padIVTo16(iv []byte) []byte {
	if len(iv) == 16 {
		return iv
	}
	out := make([]byte, 16)
	copy(out, iv)
	return out
}

package box

import (
	"encoding/binary"

	"github.com/nevil/edash-packager/media/base"
)

const UseSubsampleEncryption uint32 = 0x000002

// SampleEncryptionBox (senc), ISO/IEC 23001-7 §7.2 and the CMAF
// specification: per-sample IV plus, when subsample encryption is in use,
// the (clear, cipher) byte-count pairs the SampleEncryptor computed.
type SampleEncryptionBox struct {
	Box     *FullBox
	Entries []base.DecryptConfig
}

func NewSenc(entries []base.DecryptConfig) *SampleEncryptionBox {
	fb := NewFullBox(TypeSENC, 0)
	if usesSubsamples(entries) {
		fb.SetFlags(UseSubsampleEncryption)
	}
	return &SampleEncryptionBox{Box: fb, Entries: entries}
}

func usesSubsamples(entries []base.DecryptConfig) bool {
	for _, e := range entries {
		if len(e.Subsamples) > 0 {
			return true
		}
	}
	return false
}

// AuxInfoSizes returns the saiz DefaultSampleInfoSize=0 per-sample table:
// IV length plus, when present, 2 bytes of subsample count and 6 bytes per
// subsample entry.
func (b *SampleEncryptionBox) AuxInfoSizes() []uint8 {
	sizes := make([]uint8, len(b.Entries))
	for i, e := range b.Entries {
		n := len(e.IV)
		if len(e.Subsamples) > 0 {
			n += 2 + 6*len(e.Subsamples)
		}
		sizes[i] = uint8(n)
	}
	return sizes
}

func (b *SampleEncryptionBox) Size() uint64 {
	n := FullBoxLen + 4
	subsample := b.Box.FlagsUint32()&UseSubsampleEncryption > 0
	for _, e := range b.Entries {
		n += len(e.IV)
		if subsample {
			n += 2 + 6*len(e.Subsamples)
		}
	}
	return uint64(n)
}

func (b *SampleEncryptionBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	binary.BigEndian.PutUint32(out[n:], uint32(len(b.Entries)))
	n += 4
	subsample := b.Box.FlagsUint32()&UseSubsampleEncryption > 0
	for _, e := range b.Entries {
		copy(out[n:], e.IV)
		n += len(e.IV)
		if !subsample {
			continue
		}
		binary.BigEndian.PutUint16(out[n:], uint16(len(e.Subsamples)))
		n += 2
		for _, s := range e.Subsamples {
			binary.BigEndian.PutUint16(out[n:], s.ClearBytes)
			n += 2
			binary.BigEndian.PutUint32(out[n:], s.CipherBytes)
			n += 4
		}
	}
	return out
}

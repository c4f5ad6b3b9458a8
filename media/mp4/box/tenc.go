package box

// TrackEncryptionBox (tenc), ISO/IEC 23001-7 §8.2. Carries the default
// protection parameters for every sample in the track: scheme pattern,
// key id, and (for constant-IV schemes) the IV itself.
type TrackEncryptionBox struct {
	Box             *FullBox
	CryptByteBlock  uint8
	SkipByteBlock   uint8
	IsProtected     uint8
	PerSampleIVSize uint8
	KeyID           [16]byte
	ConstantIV      []byte
}

func NewTenc(keyID [16]byte, perSampleIVSize uint8, constantIV []byte, cryptByteBlock, skipByteBlock uint8) *TrackEncryptionBox {
	return &TrackEncryptionBox{
		Box:             NewFullBox(TypeTENC, 0),
		CryptByteBlock:  cryptByteBlock,
		SkipByteBlock:   skipByteBlock,
		IsProtected:     1,
		PerSampleIVSize: perSampleIVSize,
		KeyID:           keyID,
		ConstantIV:      constantIV,
	}
}

func (b *TrackEncryptionBox) Size() uint64 {
	n := FullBoxLen + 1 + 1 + 1 + 16
	if b.PerSampleIVSize == 0 {
		n += 1 + len(b.ConstantIV)
	}
	return uint64(n)
}

func (b *TrackEncryptionBox) Encode() []byte {
	b.Box.Box.Size = b.Size()
	out := make([]byte, b.Size())
	n := b.Box.Encode(out)
	out[n] = b.CryptByteBlock<<4 | b.SkipByteBlock
	n++
	out[n] = b.IsProtected
	n++
	out[n] = b.PerSampleIVSize
	n++
	copy(out[n:], b.KeyID[:])
	n += 16
	if b.PerSampleIVSize == 0 {
		out[n] = byte(len(b.ConstantIV))
		n++
		copy(out[n:], b.ConstantIV)
	}
	return out
}

// Package crypto implements the AES-CTR and AES-CBC primitives the CENC
// pipeline needs. It binds to the standard library's crypto/aes and
// crypto/cipher rather than reimplementing a block cipher.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/nevil/edash-packager/media/base"
)

// Padding selects the residual-block handling for AES-CBC.
type Padding int

const (
	PaddingNone Padding = iota
	PaddingPKCS5
	PaddingCTS // ciphertext stealing, NIST SP 800-38A Appendix
)

const blockSize = aes.BlockSize // 16

// CtrCryptor implements AES-CTR with the CENC counter-block convention:
// bytes 0-7 of the counter block carry the IV, bytes 8-15 are a 64-bit
// big-endian block counter that increments once per 16 ciphertext bytes.
// The high 64 bits (the IV half) never change between one SetIV call and
// the next, matching ISO/IEC 23001-7.
type CtrCryptor struct {
	block       cipher.Block
	counter     [blockSize]byte
	keystream   [blockSize]byte
	keystreamAt int // offset within keystream already consumed, preserved across calls
}

// NewCtrCryptor validates the key size (128/192/256 bits only) and builds
// the underlying block cipher.
func NewCtrCryptor(key []byte) (*CtrCryptor, error) {
	if l := len(key); l != 16 && l != 24 && l != 32 {
		return nil, base.NewError(base.InvalidArgument, "NewCtrCryptor", "key must be 128, 192, or 256 bits", nil)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, base.NewError(base.InvalidArgument, "NewCtrCryptor", "aes.NewCipher failed", err)
	}
	return &CtrCryptor{block: block}, nil
}

// SetIV resets the counter block to iv and discards any buffered
// keystream, starting a fresh per-sample encryption. An 8-byte iv fills
// the high half and starts the block counter at zero; a 16-byte iv sets
// the whole counter block, block counter included.
func (c *CtrCryptor) SetIV(iv []byte) error {
	if len(iv) != 8 && len(iv) != 16 {
		return base.NewError(base.InvalidArgument, "SetIV", "iv must be 8 or 16 bytes", nil)
	}
	var block [blockSize]byte
	copy(block[:8], iv[:8])
	if len(iv) == 16 {
		copy(block[8:], iv[8:])
	}
	c.counter = block
	c.keystreamAt = blockSize // force regeneration on next byte
	return nil
}

// Transform XORs plaintext/ciphertext with the keystream, advancing the
// counter block once per 16 consumed bytes. The high 64 bits of the
// counter (the IV) never change; only the low 64 bits increment and
// wrap on overflow, per ISO/IEC 23001-7.
func (c *CtrCryptor) Transform(dst, src []byte) {
	for i := 0; i < len(src); i++ {
		if c.keystreamAt == blockSize {
			c.block.Encrypt(c.keystream[:], c.counter[:])
			incrementCounter(&c.counter)
			c.keystreamAt = 0
		}
		dst[i] = src[i] ^ c.keystream[c.keystreamAt]
		c.keystreamAt++
	}
}

func incrementCounter(counter *[blockSize]byte) {
	for i := blockSize - 1; i >= 8; i-- {
		counter[i]++
		if counter[i] != 0 {
			return
		}
	}
	// low 64 bits wrapped past all-ones; the high 64 bits (the IV) are
	// left untouched per the CENC convention.
}

// CbcCryptor implements AES-CBC with the three residual-block handling
// schemes cbcs/cbc1 encryption needs: no padding (residual left clear),
// PKCS5 padding, and ciphertext stealing.
type CbcCryptor struct {
	block   cipher.Block
	iv      [blockSize]byte
	padding Padding
}

func NewCbcCryptor(key []byte, padding Padding) (*CbcCryptor, error) {
	if l := len(key); l != 16 && l != 24 && l != 32 {
		return nil, base.NewError(base.InvalidArgument, "NewCbcCryptor", "key must be 128, 192, or 256 bits", nil)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, base.NewError(base.InvalidArgument, "NewCbcCryptor", "aes.NewCipher failed", err)
	}
	return &CbcCryptor{block: block, padding: padding}, nil
}

func (c *CbcCryptor) SetIV(iv []byte) error {
	if len(iv) != blockSize {
		return base.NewError(base.InvalidArgument, "SetIV", "cbc iv must be 16 bytes", nil)
	}
	copy(c.iv[:], iv)
	return nil
}

// Encrypt produces ciphertext per c.padding. IV chaining: when padding is
// PaddingNone the internal IV advances to the last encrypted block so a
// follow-up call on the next subsample continues the chain; with PKCS5 or
// CTS each call resets to the IV last set via SetIV.
func (c *CbcCryptor) Encrypt(plaintext []byte) ([]byte, error) {
	switch c.padding {
	case PaddingNone:
		return c.encryptNoPadding(plaintext)
	case PaddingPKCS5:
		return c.encryptPKCS5(plaintext)
	case PaddingCTS:
		return c.encryptCTS(plaintext)
	default:
		return nil, base.NewError(base.InvalidArgument, "Encrypt", "unknown padding scheme", nil)
	}
}

func (c *CbcCryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	switch c.padding {
	case PaddingNone:
		return c.decryptNoPadding(ciphertext)
	case PaddingPKCS5:
		return c.decryptPKCS5(ciphertext)
	case PaddingCTS:
		return c.decryptCTS(ciphertext)
	default:
		return nil, base.NewError(base.InvalidArgument, "Decrypt", "unknown padding scheme", nil)
	}
}

func (c *CbcCryptor) encryptNoPadding(plaintext []byte) ([]byte, error) {
	wholeLen := len(plaintext) - len(plaintext)%blockSize
	out := make([]byte, len(plaintext))
	if wholeLen > 0 {
		mode := cipher.NewCBCEncrypter(c.block, c.iv[:])
		mode.CryptBlocks(out[:wholeLen], plaintext[:wholeLen])
		copy(c.iv[:], out[wholeLen-blockSize:wholeLen])
	}
	copy(out[wholeLen:], plaintext[wholeLen:]) // residual left clear
	return out, nil
}

func (c *CbcCryptor) decryptNoPadding(ciphertext []byte) ([]byte, error) {
	wholeLen := len(ciphertext) - len(ciphertext)%blockSize
	out := make([]byte, len(ciphertext))
	if wholeLen > 0 {
		mode := cipher.NewCBCDecrypter(c.block, c.iv[:])
		lastCipher := append([]byte(nil), ciphertext[wholeLen-blockSize:wholeLen]...)
		mode.CryptBlocks(out[:wholeLen], ciphertext[:wholeLen])
		copy(c.iv[:], lastCipher)
	}
	copy(out[wholeLen:], ciphertext[wholeLen:])
	return out, nil
}

func (c *CbcCryptor) encryptPKCS5(plaintext []byte) ([]byte, error) {
	padCount := blockSize - len(plaintext)%blockSize
	padded := make([]byte, len(plaintext)+padCount)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(padCount)
	}
	out := make([]byte, len(padded))
	iv := c.iv
	mode := cipher.NewCBCEncrypter(c.block, iv[:])
	mode.CryptBlocks(out, padded)
	return out, nil
}

func (c *CbcCryptor) decryptPKCS5(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, base.NewError(base.EncryptionFailure, "decryptPKCS5", "ciphertext not block-aligned", nil)
	}
	out := make([]byte, len(ciphertext))
	iv := c.iv
	mode := cipher.NewCBCDecrypter(c.block, iv[:])
	mode.CryptBlocks(out, ciphertext)
	padCount := int(out[len(out)-1])
	if padCount <= 0 || padCount > blockSize || padCount > len(out) {
		return nil, base.NewError(base.EncryptionFailure, "decryptPKCS5", "invalid pkcs5 padding", nil)
	}
	return out[:len(out)-padCount], nil
}

// encryptCTS implements CBC ciphertext stealing (NIST SP 800-38A, CS3
// convention). Plaintext shorter than one block passes through unchanged.
// A plaintext whose length is an exact multiple of the block size has
// nothing to steal and is encrypted as plain CBC.
func (c *CbcCryptor) encryptCTS(plaintext []byte) ([]byte, error) {
	n := len(plaintext)
	if n < blockSize {
		return append([]byte(nil), plaintext...), nil
	}
	d := n % blockSize
	if d == 0 {
		out := make([]byte, n)
		iv := c.iv
		cipher.NewCBCEncrypter(c.block, iv[:]).CryptBlocks(out, plaintext)
		return out, nil
	}
	front := n - blockSize - d // bytes strictly before the final full block
	out := make([]byte, n)
	ivPrime := c.iv
	if front > 0 {
		mode := cipher.NewCBCEncrypter(c.block, ivPrime[:])
		mode.CryptBlocks(out[:front], plaintext[:front])
		copy(ivPrime[:], out[front-blockSize:front])
	}
	pLast := plaintext[front : front+blockSize] // P_{n-1}, full block
	pTail := plaintext[front+blockSize:]         // P_n*, d bytes

	var e1 [blockSize]byte
	var xored [blockSize]byte
	xorBytes(xored[:], pLast, ivPrime[:])
	c.block.Encrypt(e1[:], xored[:])

	pPadded := make([]byte, blockSize)
	copy(pPadded, pTail)

	var xoredPadded [blockSize]byte
	xorBytes(xoredPadded[:], pPadded, e1[:])
	var slotNMinus1 [blockSize]byte
	c.block.Encrypt(slotNMinus1[:], xoredPadded[:])

	copy(out[front:front+blockSize], slotNMinus1[:])
	copy(out[front+blockSize:], e1[:d])
	return out, nil
}

func (c *CbcCryptor) decryptCTS(ciphertext []byte) ([]byte, error) {
	n := len(ciphertext)
	if n < blockSize {
		return append([]byte(nil), ciphertext...), nil
	}
	d := n % blockSize
	if d == 0 {
		out := make([]byte, n)
		iv := c.iv
		cipher.NewCBCDecrypter(c.block, iv[:]).CryptBlocks(out, ciphertext)
		return out, nil
	}
	front := n - blockSize - d
	out := make([]byte, n)
	ivPrime := c.iv
	if front > 0 {
		mode := cipher.NewCBCDecrypter(c.block, ivPrime[:])
		mode.CryptBlocks(out[:front], ciphertext[:front])
		copy(ivPrime[:], ciphertext[front-blockSize:front])
	}
	slotNMinus1 := ciphertext[front : front+blockSize] // 16 bytes
	xn := ciphertext[front+blockSize:]                 // d bytes

	var pPadded [blockSize]byte
	c.block.Decrypt(pPadded[:], slotNMinus1)

	var e1 [blockSize]byte
	copy(e1[:d], xn)
	copy(e1[d:], pPadded[d:])

	var pLast [blockSize]byte
	c.block.Decrypt(pLast[:], e1[:])
	xorBytes(pLast[:], pLast[:], ivPrime[:])
	xorBytes(pPadded[:d], pPadded[:d], xn)

	copy(out[front:front+blockSize], pLast[:])
	copy(out[front+blockSize:], pPadded[:d])
	return out, nil
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

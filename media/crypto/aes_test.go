package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"testing"
)

// TestCtrCounterOverflow matches the documented overflow scenario: a
// 64-bit counter half that wraps from all-ones to zero must leave the
// IV prefix (bytes 0-7) untouched, and the resulting ciphertext must
// match a reference crypto/cipher CTR stream built from the same
// counter block.
func TestCtrCounterOverflow(t *testing.T) {
	key := make([]byte, 16)
	iv := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x11, 0x22}
	// Seed the counter half one increment short of wrapping: two 16-byte
	// blocks (32 bytes of plaintext) advance it 0xFFFFFFFFFFFFFFFE ->
	// 0xFFFFFFFFFFFFFFFF -> 0x0000000000000000.
	counterHalf := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFE}
	fullIV := append(append([]byte(nil), iv...), counterHalf...)

	c, err := NewCtrCryptor(key)
	if err != nil {
		t.Fatalf("NewCtrCryptor: %v", err)
	}
	if err := c.SetIV(fullIV); err != nil {
		t.Fatalf("SetIV: %v", err)
	}

	plaintext := make([]byte, 32)
	got := make([]byte, 32)
	c.Transform(got, plaintext)

	var counterBlock [16]byte
	copy(counterBlock[:], fullIV)
	block, _ := aes.NewCipher(key)
	stream := cipher.NewCTR(block, counterBlock[:])
	want := make([]byte, 32)
	stream.XORKeyStream(want, plaintext)

	if !bytes.Equal(got, want) {
		t.Fatalf("ciphertext mismatch:\n got  %x\n want %x", got, want)
	}
	if !bytes.Equal(c.counter[:8], iv) {
		t.Fatalf("IV prefix changed after overflow: %x", c.counter[:8])
	}
	if !bytes.Equal(c.counter[8:], make([]byte, 8)) {
		t.Fatalf("counter half did not wrap to zero: %x", c.counter[8:])
	}
}

// TestCtrEncryptDecryptRoundTrip covers invariant 2: encrypt-then-decrypt
// with the same key and starting IV recovers the plaintext.
func TestCtrEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 16)
	iv := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	plaintext := []byte("the quick brown fox jumps over the lazy dog!!!!")

	enc, err := NewCtrCryptor(key)
	if err != nil {
		t.Fatalf("NewCtrCryptor: %v", err)
	}
	if err := enc.SetIV(iv); err != nil {
		t.Fatalf("SetIV: %v", err)
	}
	ciphertext := make([]byte, len(plaintext))
	enc.Transform(ciphertext, plaintext)

	dec, err := NewCtrCryptor(key)
	if err != nil {
		t.Fatalf("NewCtrCryptor: %v", err)
	}
	if err := dec.SetIV(iv); err != nil {
		t.Fatalf("SetIV: %v", err)
	}
	recovered := make([]byte, len(ciphertext))
	dec.Transform(recovered, ciphertext)

	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("round trip mismatch:\n got  %q\n want %q", recovered, plaintext)
	}
}

// TestPKCS5EmptyInput matches the documented scenario: a 0-byte
// plaintext under PKCS#5 padding encrypts to exactly one block of
// 0x10 repeated 16 times, encrypted under the zero key/IV.
func TestPKCS5EmptyInput(t *testing.T) {
	key := make([]byte, 16)
	c, err := NewCbcCryptor(key, PaddingPKCS5)
	if err != nil {
		t.Fatalf("NewCbcCryptor: %v", err)
	}
	if err := c.SetIV(make([]byte, 16)); err != nil {
		t.Fatalf("SetIV: %v", err)
	}

	ciphertext, err := c.Encrypt(nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(ciphertext) != blockSize {
		t.Fatalf("expected one block, got %d bytes", len(ciphertext))
	}

	block, _ := aes.NewCipher(key)
	want := make([]byte, blockSize)
	block.Encrypt(want, bytes.Repeat([]byte{0x10}, blockSize))
	if !bytes.Equal(ciphertext, want) {
		t.Fatalf("ciphertext mismatch:\n got  %x\n want %x", ciphertext, want)
	}
}

// TestPKCS5RoundTrip covers invariant 3: ciphertext length follows the
// padding formula and decryption strips the pad back to the original.
func TestPKCS5RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x7A}, 16)
	for _, n := range []int{0, 1, 15, 16, 17, 31, 32} {
		plaintext := bytes.Repeat([]byte{0x5A}, n)

		enc, _ := NewCbcCryptor(key, PaddingPKCS5)
		enc.SetIV(make([]byte, 16))
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("n=%d: Encrypt: %v", n, err)
		}
		wantLen := n + (blockSize - n%blockSize)
		if len(ciphertext) != wantLen {
			t.Fatalf("n=%d: ciphertext length = %d, want %d", n, len(ciphertext), wantLen)
		}

		dec, _ := NewCbcCryptor(key, PaddingPKCS5)
		dec.SetIV(make([]byte, 16))
		recovered, err := dec.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("n=%d: Decrypt: %v", n, err)
		}
		if !bytes.Equal(recovered, plaintext) {
			t.Fatalf("n=%d: round trip mismatch:\n got  %x\n want %x", n, recovered, plaintext)
		}
	}
}

// TestCTSShortInput matches the documented scenario: plaintext shorter
// than one block passes through unchanged under ciphertext stealing.
func TestCTSShortInput(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	c, err := NewCbcCryptor(key, PaddingCTS)
	if err != nil {
		t.Fatalf("NewCbcCryptor: %v", err)
	}
	c.SetIV(make([]byte, 16))

	ciphertext, err := c.Encrypt([]byte("hi"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if string(ciphertext) != "hi" {
		t.Fatalf("got %q, want %q", ciphertext, "hi")
	}
}

// TestCTSRoundTrip covers invariant 4 across block-aligned and
// non-aligned plaintexts at and beyond the block size.
func TestCTSRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x99}, 16)
	for _, n := range []int{16, 17, 20, 31, 32, 33, 47, 48, 63} {
		plaintext := make([]byte, n)
		for i := range plaintext {
			plaintext[i] = byte(i)
		}

		enc, _ := NewCbcCryptor(key, PaddingCTS)
		enc.SetIV(make([]byte, 16))
		ciphertext, err := enc.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("n=%d: Encrypt: %v", n, err)
		}
		if len(ciphertext) != n {
			t.Fatalf("n=%d: ciphertext length = %d, want %d", n, len(ciphertext), n)
		}

		dec, _ := NewCbcCryptor(key, PaddingCTS)
		dec.SetIV(make([]byte, 16))
		recovered, err := dec.Decrypt(ciphertext)
		if err != nil {
			t.Fatalf("n=%d: Decrypt: %v", n, err)
		}
		if !bytes.Equal(recovered, plaintext) {
			t.Fatalf("n=%d: round trip mismatch:\n got  %x\n want %x", n, recovered, plaintext)
		}
	}
}

// TestCtrBlockCounterAdvance covers invariant 8: the block counter
// advances exactly once per 16 ciphertext bytes and the IV prefix
// never changes mid-sample.
func TestCtrBlockCounterAdvance(t *testing.T) {
	key := make([]byte, 16)
	iv := []byte{0, 0, 0, 0, 0, 0, 0, 1}
	c, err := NewCtrCryptor(key)
	if err != nil {
		t.Fatalf("NewCtrCryptor: %v", err)
	}
	c.SetIV(iv)

	plaintext := make([]byte, 16*5)
	ciphertext := make([]byte, len(plaintext))
	c.Transform(ciphertext, plaintext)

	if !bytes.Equal(c.counter[:8], iv) {
		t.Fatalf("IV prefix changed: %x", c.counter[:8])
	}
	gotCounter := uint64(c.counter[8])<<56 | uint64(c.counter[9])<<48 |
		uint64(c.counter[10])<<40 | uint64(c.counter[11])<<32 |
		uint64(c.counter[12])<<24 | uint64(c.counter[13])<<16 |
		uint64(c.counter[14])<<8 | uint64(c.counter[15])
	if gotCounter != 5 {
		t.Fatalf("counter advanced to %d, want 5 (one per 16-byte block)", gotCounter)
	}
}

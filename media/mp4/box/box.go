// Package box implements ISO-BMFF box serialization for the fragments and
// init segments this packager writes: ftyp/styp, moov and its children,
// moof/traf and the CENC auxiliary boxes, mdat, and sidx. It only encodes —
// parsing an existing MP4 is out of scope for this packager core, so every
// box type here carries a Size()/Encode() pair and no Decode.
package box

import "encoding/binary"

const (
	BasicBoxLen = 8
	FullBoxLen  = 12
)

func fourcc(s string) [4]byte {
	var t [4]byte
	copy(t[:], s)
	return t
}

var (
	TypeFTYP = fourcc("ftyp")
	TypeSTYP = fourcc("styp")
	TypeMOOV = fourcc("moov")
	TypeMVHD = fourcc("mvhd")
	TypeTRAK = fourcc("trak")
	TypeTKHD = fourcc("tkhd")
	TypeMDIA = fourcc("mdia")
	TypeMDHD = fourcc("mdhd")
	TypeHDLR = fourcc("hdlr")
	TypeMINF = fourcc("minf")
	TypeVMHD = fourcc("vmhd")
	TypeSMHD = fourcc("smhd")
	TypeDINF = fourcc("dinf")
	TypeDREF = fourcc("dref")
	TypeURLB = fourcc("url ")
	TypeSTBL = fourcc("stbl")
	TypeSTSD = fourcc("stsd")
	TypeSTTS = fourcc("stts")
	TypeSTSC = fourcc("stsc")
	TypeSTSZ = fourcc("stsz")
	TypeSTCO = fourcc("stco")
	TypeSTSS = fourcc("stss")
	TypeMDAT = fourcc("mdat")
	TypeFREE = fourcc("free")

	TypeAVC1 = fourcc("avc1")
	TypeHVC1 = fourcc("hvc1")
	TypeENCV = fourcc("encv")
	TypeMP4A = fourcc("mp4a")
	TypeENCA = fourcc("enca")
	TypeAVCC = fourcc("avcC")
	TypeHVCC = fourcc("hvcC")
	TypeESDS = fourcc("esds")

	TypeSINF = fourcc("sinf")
	TypeFRMA = fourcc("frma")
	TypeSCHM = fourcc("schm")
	TypeSCHI = fourcc("schi")
	TypeTENC = fourcc("tenc")
	TypePSSH = fourcc("pssh")

	TypeMVEX = fourcc("mvex")
	TypeTREX = fourcc("trex")
	TypeMOOF = fourcc("moof")
	TypeMFHD = fourcc("mfhd")
	TypeTRAF = fourcc("traf")
	TypeTFHD = fourcc("tfhd")
	TypeTFDT = fourcc("tfdt")
	TypeTRUN = fourcc("trun")
	TypeSENC = fourcc("senc")
	TypeSAIZ = fourcc("saiz")
	TypeSAIO = fourcc("saio")
	TypeSIDX = fourcc("sidx")

	TypeISOM = fourcc("isom")
	TypeISO6 = fourcc("iso6")
	TypeMP41 = fourcc("mp41")
	TypeDASH = fourcc("dash")
	TypeCMFC = fourcc("cmfc")
)

// aligned(8) class Box(unsigned int(32) boxtype) {
//     unsigned int(32) size;
//     unsigned int(32) type = boxtype;
// }
type BasicBox struct {
	Size uint64
	Type [4]byte
}

func NewBasicBox(boxtype [4]byte) *BasicBox {
	return &BasicBox{Type: boxtype}
}

// Encode writes the 8-byte header into buf[0:8] and returns the header
// length; the caller fills the payload starting at the returned offset and
// must call SetSize once the total box length is known (small boxes know it
// up front; callers building a box around a variable payload pass its final
// length directly here instead).
func (b *BasicBox) Encode(buf []byte) int {
	binary.BigEndian.PutUint32(buf, uint32(b.Size))
	copy(buf[4:], b.Type[:])
	return BasicBoxLen
}

// aligned(8) class FullBox(unsigned int(32) boxtype, unsigned int(8) v, bit(24) f)
//     extends Box(boxtype) {
//     unsigned int(8) version = v;
//     bit(24) flags = f;
// }
type FullBox struct {
	Box     *BasicBox
	Version uint8
	Flags   [3]byte
}

func NewFullBox(boxtype [4]byte, version uint8) *FullBox {
	return &FullBox{Box: NewBasicBox(boxtype), Version: version}
}

func (b *FullBox) Encode(buf []byte) int {
	n := b.Box.Encode(buf)
	buf[n] = b.Version
	copy(buf[n+1:], b.Flags[:])
	return n + 4
}

func (b *FullBox) FlagsUint32() uint32 {
	return uint32(b.Flags[0])<<16 | uint32(b.Flags[1])<<8 | uint32(b.Flags[2])
}

func (b *FullBox) SetFlags(f uint32) {
	b.Flags[0] = byte(f >> 16)
	b.Flags[1] = byte(f >> 8)
	b.Flags[2] = byte(f)
}

// Encoder is implemented by every box type in this package.
type Encoder interface {
	Size() uint64
	Encode() []byte
}

// container concatenates a sequence of already-encoded child boxes under a
// plain (non-full) box header, the way moov/trak/mdia/minf/stbl/traf/moof
// wrap their children.
func container(boxType [4]byte, children ...[]byte) []byte {
	total := uint64(BasicBoxLen)
	for _, c := range children {
		total += uint64(len(c))
	}
	out := make([]byte, BasicBoxLen, total)
	(&BasicBox{Size: total, Type: boxType}).Encode(out)
	for _, c := range children {
		out = append(out, c...)
	}
	return out
}

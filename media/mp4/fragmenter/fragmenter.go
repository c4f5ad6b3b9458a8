// Package fragmenter accumulates samples into moof/mdat fragments, one
// instance per track. Each sample arrives already converted (and, if a
// key is installed, encrypted) as one payload.
package fragmenter

import (
	"github.com/nevil/edash-packager/media/base"
	"github.com/nevil/edash-packager/media/mp4/box"
)

// FragmenterPerTrack buffers FragmentSamples for one track until Flush
// closes out the current fragment.
type FragmenterPerTrack struct {
	trackID   uint32
	isVideo   bool
	scheme    base.ProtectionScheme

	pending []base.FragmentSample
	payload []byte

	baseDecodeTime uint64
	nextDecodeTime uint64
}

func NewFragmenterPerTrack(trackID uint32, isVideo bool, scheme base.ProtectionScheme) *FragmenterPerTrack {
	return &FragmenterPerTrack{trackID: trackID, isVideo: isVideo, scheme: scheme}
}

// AddSample appends one already-encoded (and, if a key is installed,
// already-encrypted) sample to the pending fragment.
func (f *FragmenterPerTrack) AddSample(payload []byte, duration uint32, ctsOffset int32, isKeyFrame bool, decrypt *base.DecryptConfig) {
	if len(f.pending) == 0 {
		f.baseDecodeTime = f.nextDecodeTime
	}
	flags := box.SampleFlagNonSync
	if isKeyFrame {
		flags = 0
	}
	f.pending = append(f.pending, base.FragmentSample{
		Size:       uint32(len(payload)),
		Duration:   duration,
		Flags:      flags,
		CTSOffset:  ctsOffset,
		IsKeyFrame: isKeyFrame,
		Decrypt:    decrypt,
	})
	f.payload = append(f.payload, payload...)
	f.nextDecodeTime += uint64(duration)
}

// Empty reports whether this track has no buffered samples.
func (f *FragmenterPerTrack) Empty() bool { return len(f.pending) == 0 }

// SampleCount reports how many samples are pending.
func (f *FragmenterPerTrack) SampleCount() int { return len(f.pending) }

// Duration sums the buffered samples' durations, on the track timescale.
func (f *FragmenterPerTrack) Duration() uint64 {
	var total uint64
	for _, s := range f.pending {
		total += uint64(s.Duration)
	}
	return total
}

// StartsWithSAP reports whether the first buffered sample is a stream
// access point (used by the segmenter to populate sidx SAP fields).
func (f *FragmenterPerTrack) StartsWithSAP() bool {
	return len(f.pending) > 0 && f.pending[0].IsKeyFrame
}

// Fragment is the result of Flush: the accumulated samples plus their
// concatenated (possibly encrypted) payload, ready for the moof/mdat the
// segmenter assembles around it.
type Fragment struct {
	TrackID        uint32
	BaseDecodeTime uint64
	Samples        []base.FragmentSample
	Payload        []byte
}

// Flush detaches the current fragment and resets the buffer for the next
// one. It is a no-op (returns ok=false) when nothing is pending.
func (f *FragmenterPerTrack) Flush() (Fragment, bool) {
	if len(f.pending) == 0 {
		return Fragment{}, false
	}
	frag := Fragment{
		TrackID:        f.trackID,
		BaseDecodeTime: f.baseDecodeTime,
		Samples:        f.pending,
		Payload:        f.payload,
	}
	f.pending = nil
	f.payload = nil
	return frag, true
}

// Traf is a built track fragment box plus, when the track is encrypted,
// the bookkeeping the segmenter needs to patch the saio box's offset
// field once it knows how many bytes of moof precede this traf:
// SaioPatchAt is where inside Bytes to write the 4-byte offset, and
// SencIVStart is the offset from the start of this traf to the first
// auxiliary-info byte (the IV immediately after senc's sample_count).
// The final value written at SaioPatchAt is (bytes of moof preceding
// this traf) + SencIVStart.
type Traf struct {
	Bytes       []byte
	SaioPatchAt int // -1 when not every sample carries a DecryptConfig
	SencIVStart int
}

// BuildTraf encodes a Fragment's tfhd/tfdt/trun (and, when every sample
// carries a DecryptConfig, senc/saiz/saio) into one traf box. dataOffset
// is the trun's data_offset field: the byte distance from the start of
// the enclosing moof to this fragment's first sample byte in the
// following mdat.
func BuildTraf(frag Fragment, dataOffset int32) Traf {
	tfhd := box.NewTfhd(frag.TrackID).Encode()
	tfdt := box.NewTfdt(frag.BaseDecodeTime).Encode()

	entries := make([]box.TrunEntry, len(frag.Samples))
	var decrypts []base.DecryptConfig
	for i, s := range frag.Samples {
		entries[i] = box.TrunEntry{
			Duration:              s.Duration,
			Size:                  s.Size,
			Flags:                 s.Flags,
			CompositionTimeOffset: s.CTSOffset,
		}
		if s.Decrypt != nil {
			decrypts = append(decrypts, *s.Decrypt)
		}
	}
	trun := box.NewTrun(entries)
	trun.SetDataOffset(dataOffset)

	var senc, saiz, saio []byte
	saioPatchAt, sencIVStart := -1, 0
	if len(decrypts) == len(frag.Samples) && len(decrypts) > 0 {
		sencBox := box.NewSenc(decrypts)
		senc = sencBox.Encode()
		saiz = box.NewSaiz(sencBox.AuxInfoSizes()).Encode()
		saio = box.NewSaio(0).Encode()

		// traf = Box(8) + tfhd + tfdt + saiz + saio + senc(FullBox(12)+sample_count(4)) + ...
		sencIVStart = box.BasicBoxLen + len(tfhd) + len(tfdt) + len(saiz) + len(saio) + box.FullBoxLen + 4
		saioPatchAt = box.BasicBoxLen + len(tfhd) + len(tfdt) + len(saiz) + len(saio) - 4
	}

	trafBytes := box.NewTraf(tfhd, tfdt, trun.Encode(), senc, saiz, saio)
	return Traf{Bytes: trafBytes, SaioPatchAt: saioPatchAt, SencIVStart: sencIVStart}
}

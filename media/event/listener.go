// Package event defines the Segmenter's notification contract. Every
// method is optional to implement; callers that don't care about a
// particular callback embed NopListener.
package event

import "github.com/nevil/edash-packager/media/base"

// Listener receives Segmenter lifecycle notifications. All methods may
// be called from the goroutine driving the Segmenter; implementations
// that need to hand work off elsewhere must do their own buffering.
type Listener interface {
	// OnNewSegment fires once a segment file has been fully written and
	// closed.
	OnNewSegment(summary base.SegmentSummary)

	// OnSampleDurationReady fires once per track, with the duration of
	// the first sample written to that track whose Duration is non-zero.
	OnSampleDurationReady(trackID uint32, duration uint32)

	// OnEncryptionInfoReady fires once, per track, when the first
	// DecryptConfig for that track is produced.
	OnEncryptionInfoReady(trackID uint32, scheme base.ProtectionScheme, keyID [16]byte)
}

// NopListener implements Listener with no-ops; embed it to implement
// only the callbacks a caller cares about.
type NopListener struct{}

func (NopListener) OnNewSegment(base.SegmentSummary)                            {}
func (NopListener) OnSampleDurationReady(uint32, uint32)                       {}
func (NopListener) OnEncryptionInfoReady(uint32, base.ProtectionScheme, [16]byte) {}

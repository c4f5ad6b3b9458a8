package event

import (
	"testing"

	"github.com/nevil/edash-packager/media/base"
)

var _ Listener = NopListener{}

func TestNopListenerMethodsAreSafeToCall(t *testing.T) {
	var l NopListener
	l.OnNewSegment(base.SegmentSummary{})
	l.OnSampleDurationReady(1, 3000)
	l.OnEncryptionInfoReady(1, base.ProtectionCenc, [16]byte{})
}

package segmenter

import (
	"bytes"
	"testing"

	"github.com/nevil/edash-packager/config"
	"github.com/nevil/edash-packager/media/base"
	"github.com/nevil/edash-packager/media/event"
	"github.com/nevil/edash-packager/media/iofile"
	"github.com/nevil/edash-packager/media/mp4/box"
)

// memFile is an in-memory iofile.File stand-in for tests, avoiding real
// disk writes.
type memFile struct {
	buf bytes.Buffer
}

func (m *memFile) Write(p []byte) (int, error) { return m.buf.Write(p) }
func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	return 0, nil
}
func (m *memFile) Size() (int64, error) { return int64(m.buf.Len()), nil }
func (m *memFile) Close() error         { return nil }

func memOpenFunc() iofile.OpenFunc {
	return func(name string) (iofile.File, error) { return &memFile{}, nil }
}

func fragEntries(sizes ...uint32) []box.SegmentIndexReferenceEntry {
	entries := make([]box.SegmentIndexReferenceEntry, len(sizes))
	for i, s := range sizes {
		entries[i] = box.SegmentIndexReferenceEntry{ReferencedSize: s, SubsegmentDuration: s}
	}
	return entries
}

// TestCoalesceSidxGroupsOfP matches the documented scenario: 10 fragments
// coalesced to 3 subsegments group as sizes 4, 4, 2 (P = ceil(10/3) = 4),
// not literal groups of 3.
func TestCoalesceSidxGroupsOfP(t *testing.T) {
	entries := fragEntries(1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	out := coalesceSidx(entries, 3)

	if len(out) != 3 {
		t.Fatalf("got %d references, want 3: %+v", len(out), out)
	}
	wantSizes := []uint32{4, 4, 2}
	for i, w := range wantSizes {
		if out[i].ReferencedSize != w {
			t.Fatalf("group %d size = %d, want %d", i, out[i].ReferencedSize, w)
		}
	}
}

// TestCoalesceSidxReferenceCountInvariant covers invariant 7: after
// coalescing, the reference count equals num_subsegments_per_sidx
// whenever there are at least that many fragments.
func TestCoalesceSidxReferenceCountInvariant(t *testing.T) {
	cases := []struct {
		fragments, n int
	}{
		{10, 3}, {9, 3}, {7, 2}, {5, 5}, {8, 4}, {20, 6},
	}
	for _, c := range cases {
		sizes := make([]uint32, c.fragments)
		for i := range sizes {
			sizes[i] = 1
		}
		out := coalesceSidx(fragEntries(sizes...), c.n)
		if len(out) != c.n {
			t.Fatalf("fragments=%d n=%d: got %d references, want %d", c.fragments, c.n, len(out), c.n)
		}
		var totalSize uint32
		for _, e := range out {
			totalSize += e.ReferencedSize
		}
		if totalSize != uint32(c.fragments) {
			t.Fatalf("fragments=%d n=%d: summed size = %d, want %d", c.fragments, c.n, totalSize, c.fragments)
		}
	}
}

// TestCoalesceSidxDisabledOrTrivial covers the documented edge cases:
// n<=0 is a no-op, and P==1 (n >= len(entries)) skips coalescing too.
func TestCoalesceSidxDisabledOrTrivial(t *testing.T) {
	entries := fragEntries(1, 2, 3)

	if out := coalesceSidx(entries, 0); len(out) != len(entries) {
		t.Fatalf("n=0: got %d references, want %d (passthrough)", len(out), len(entries))
	}
	if out := coalesceSidx(entries, -1); len(out) != len(entries) {
		t.Fatalf("n=-1: got %d references, want %d (passthrough)", len(out), len(entries))
	}
	if out := coalesceSidx(entries, 5); len(out) != len(entries) {
		t.Fatalf("n=5 (>= len(entries), P==1): got %d references, want %d (passthrough)", len(out), len(entries))
	}
}

type recordingListener struct {
	event.NopListener
	summaries []base.SegmentSummary
}

func (r *recordingListener) OnNewSegment(s base.SegmentSummary) {
	r.summaries = append(r.summaries, s)
}

// TestSAPAlignedSegmentCut matches the documented scenario: SAP flags at
// indices {0,5,10}, segment duration configured to cut once elapsed time
// reaches 5 ticks. Segment 1 must hold samples 0..4; segment 2 must start
// at sample 5 (a SAP) and hold the rest.
func TestSAPAlignedSegmentCut(t *testing.T) {
	cfg := config.Default()
	cfg.OutputFileName = "out.mp4"
	cfg.SegmentDuration = 5
	cfg.TimeScale = 1

	listener := &recordingListener{}
	s := New(cfg, listener, memOpenFunc())

	trackID := s.AddTrack(base.StreamInfo{TrackType: base.TrackVideo, TimeScale: 1}, nil, nil)
	tr := s.trackByID[trackID]
	tr.sampleEntry = []byte{0} // bypass codec wiring; only box presence is checked downstream

	sapIndices := map[int]bool{0: true, 5: true, 10: true}
	for i := 0; i <= 10; i++ {
		sample := &base.Sample{
			Payload:    []byte{byte(i)},
			DTS:        uint64(i),
			PTS:        uint64(i),
			Duration:   1,
			IsKeyFrame: sapIndices[i],
		}
		if err := s.writeSample(tr, sample); err != nil {
			t.Fatalf("writeSample(%d): %v", i, err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if len(listener.summaries) != 3 {
		t.Fatalf("got %d segments, want 3: %+v", len(listener.summaries), listener.summaries)
	}
	seg1, seg2, seg3 := listener.summaries[0], listener.summaries[1], listener.summaries[2]
	if seg1.EarliestPresentationTS != 0 || seg1.Duration != 5 {
		t.Fatalf("segment 1 = %+v, want start=0 duration=5 (samples 0..4)", seg1)
	}
	if seg2.EarliestPresentationTS != 5 || seg2.Duration != 5 || seg3.EarliestPresentationTS != 10 || seg3.Duration != 1 {
		t.Fatalf("segments 2,3 = %+v, %+v, want start=5 duration=5 (samples 5..9) and start=10 duration=1 (sample 10)", seg2, seg3)
	}
}

// TestFragmentDurationZeroNeverCutsIndependently checks that a
// fragment_duration of 0 (the zero-value default) never triggers a
// fragment-only cut, leaving all cutting to the segment boundary.
func TestFragmentDurationZeroNeverCutsIndependently(t *testing.T) {
	cfg := config.Default()
	cfg.OutputFileName = "out.mp4"
	cfg.SegmentDuration = 100
	cfg.TimeScale = 1

	listener := &recordingListener{}
	s := New(cfg, listener, memOpenFunc())
	trackID := s.AddTrack(base.StreamInfo{TrackType: base.TrackVideo, TimeScale: 1}, nil, nil)
	tr := s.trackByID[trackID]
	tr.sampleEntry = []byte{0}

	for i := 0; i < 20; i++ {
		sample := &base.Sample{
			Payload:    []byte{byte(i)},
			DTS:        uint64(i),
			PTS:        uint64(i),
			Duration:   1,
			IsKeyFrame: i == 0,
		}
		if err := s.writeSample(tr, sample); err != nil {
			t.Fatalf("writeSample(%d): %v", i, err)
		}
	}
	if len(s.segmentBuffer) != 0 {
		t.Fatalf("expected no fragment cuts before the segment boundary, got %d buffered fragments", len(s.segmentBuffer))
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(listener.summaries) != 1 {
		t.Fatalf("got %d segments, want 1", len(listener.summaries))
	}
	if listener.summaries[0].Duration != 20 {
		t.Fatalf("segment duration = %d, want 20", listener.summaries[0].Duration)
	}
}

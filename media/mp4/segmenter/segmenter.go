// Package segmenter orchestrates every track's FragmenterPerTrack,
// cuts fragments and segments at SAP boundaries, and writes the
// resulting ftyp/moov/styp/sidx/moof/mdat byte streams to either a
// single file or a template-named sequence of files.
package segmenter

import (
	"bytes"
	"encoding/binary"

	"github.com/nevil/edash-packager/config"
	"github.com/nevil/edash-packager/media/base"
	"github.com/nevil/edash-packager/media/codec"
	"github.com/nevil/edash-packager/media/crypto"
	"github.com/nevil/edash-packager/media/event"
	"github.com/nevil/edash-packager/media/iofile"
	"github.com/nevil/edash-packager/media/mp4/box"
	"github.com/nevil/edash-packager/media/mp4/fragmenter"
)

type trackState struct {
	trackID     uint32
	info        base.StreamInfo
	converter   codec.BitstreamConverter // nil for audio
	encryptor   *crypto.SampleEncryptor  // nil when the track is not encrypted
	frag        *fragmenter.FragmenterPerTrack
	sampleEntry []byte // built once the decoder config record is known

	durationSent        bool
	encryptionInfoSent  bool
}

// Segmenter is the top-level orchestrator: one instance per output
// presentation, driving N tracks through fragment/segment cuts.
type Segmenter struct {
	cfg      config.Config
	listener event.Listener
	openFn   iofile.OpenFunc

	tracks      []*trackState
	trackByID   map[uint32]*trackState
	nextTrackID uint32
	refTrackID  uint32 // the track whose SAPs drive boundary decisions

	fragmentSeq uint32 // global moof sequence_number, monotonic across the presentation
	segmentSeq  uint32

	initFile    iofile.File
	segmentFile iofile.File // current open output file (single-file mode: the one and only file)
	singleFile  bool

	segmentOpen     bool // true once the reference track has started the current segment
	segmentStartDTS uint64
	segmentStartPTS uint64
	segmentBuffer   [][]byte // encoded moof+mdat bytes for each fragment cut so far in the current segment
	pendingSidx     []box.SegmentIndexReferenceEntry

	moovWritten bool
}

// New builds a Segmenter. openFn resolves a segment file name to a
// writable File; in single-file mode it is called exactly once, for
// cfg.OutputFileName.
func New(cfg config.Config, listener event.Listener, openFn iofile.OpenFunc) *Segmenter {
	if listener == nil {
		listener = event.NopListener{}
	}
	return &Segmenter{
		cfg:         cfg,
		listener:    listener,
		openFn:      openFn,
		trackByID:   make(map[uint32]*trackState),
		nextTrackID: 1,
		singleFile:  !cfg.MultiFile(),
	}
}

// AddTrack registers a track and returns its track ID. converter is nil
// for audio tracks. encryptor is nil for a clear track.
func (s *Segmenter) AddTrack(info base.StreamInfo, converter codec.BitstreamConverter, encryptor *crypto.SampleEncryptor) uint32 {
	id := s.nextTrackID
	s.nextTrackID++
	isVideo := info.TrackType == base.TrackVideo
	var scheme base.ProtectionScheme
	if encryptor != nil {
		scheme, _ = s.cfg.Scheme()
	}
	t := &trackState{
		trackID:   id,
		info:      info,
		converter: converter,
		encryptor: encryptor,
		frag:      fragmenter.NewFragmenterPerTrack(id, isVideo, scheme),
	}
	s.tracks = append(s.tracks, t)
	s.trackByID[id] = t
	if isVideo || s.refTrackID == 0 {
		s.refTrackID = id
	}
	return id
}

// WriteVideoSample converts one Annex-B access unit and pushes it
// through the encryption/fragmentation pipeline.
func (s *Segmenter) WriteVideoSample(trackID uint32, nalus [][]byte, pts, dts uint64, duration uint32) error {
	t := s.trackByID[trackID]
	if t == nil {
		return base.NewError(base.InvalidArgument, "Segmenter.WriteVideoSample", "unknown track", nil)
	}
	payload, isKeyFrame, clearLeads, err := t.converter.Convert(nil, nalus)
	if err != nil {
		return err
	}
	if cfgRecord, ok := t.converter.DecoderConfigRecord(); ok && t.sampleEntry == nil {
		t.sampleEntry = s.buildVideoSampleEntry(t, cfgRecord)
	}
	sample := &base.Sample{
		Payload:    payload,
		DTS:        dts,
		PTS:        pts,
		Duration:   duration,
		IsKeyFrame: isKeyFrame,
		ClearLeads: clearLeads,
	}
	return s.writeSample(t, sample)
}

// WriteAudioSample pushes one already-framed audio access unit (e.g.
// one ADTS-stripped AAC frame) through the pipeline.
func (s *Segmenter) WriteAudioSample(trackID uint32, payload []byte, pts, dts uint64, duration uint32) error {
	t := s.trackByID[trackID]
	if t == nil {
		return base.NewError(base.InvalidArgument, "Segmenter.WriteAudioSample", "unknown track", nil)
	}
	if t.sampleEntry == nil {
		t.sampleEntry = s.buildAudioSampleEntry(t)
	}
	sample := &base.Sample{
		Payload:    append([]byte(nil), payload...),
		DTS:        dts,
		PTS:        pts,
		Duration:   duration,
		IsKeyFrame: true,
	}
	return s.writeSample(t, sample)
}

func (s *Segmenter) buildVideoSampleEntry(t *trackState, decoderConfig []byte) []byte {
	isHEVC := t.info.FourCC == box.TypeHVC1
	if t.encryptor == nil {
		if isHEVC {
			return box.NewHvc1(uint16(t.info.Width), uint16(t.info.Height), decoderConfig)
		}
		return box.NewAvc1(uint16(t.info.Width), uint16(t.info.Height), decoderConfig)
	}
	var wrapped []byte
	if isHEVC {
		wrapped = box.WrapHVCC(decoderConfig)
	} else {
		wrapped = box.WrapAVCC(decoderConfig)
	}
	scheme, _ := s.cfg.Scheme()
	keyID, constantIV, perSampleIVSize := t.encryptor.TencParams()
	tenc := box.NewTenc(keyID, perSampleIVSize, constantIV, s.cfg.CryptByteBlock, s.cfg.SkipByteBlock).Encode()
	schemeFourCC := fourccOf(scheme.FourCC())
	sinf := box.NewSinf(t.info.FourCC, schemeFourCC, 0x00010000, tenc)
	return box.NewEncv(t.info.FourCC, uint16(t.info.Width), uint16(t.info.Height), wrapped, sinf)
}

func (s *Segmenter) buildAudioSampleEntry(t *trackState) []byte {
	if t.encryptor == nil {
		return box.NewMp4a(t.trackID, t.info.ChannelCnt, t.info.SampleBits, t.info.SampleRate, nil)
	}
	scheme, _ := s.cfg.Scheme()
	keyID, constantIV, perSampleIVSize := t.encryptor.TencParams()
	tenc := box.NewTenc(keyID, perSampleIVSize, constantIV, 0, 0).Encode()
	schemeFourCC := fourccOf(scheme.FourCC())
	sinf := box.NewSinf(fourccOf("mp4a"), schemeFourCC, 0x00010000, tenc)
	return box.NewEnca(t.trackID, t.info.ChannelCnt, t.info.SampleBits, t.info.SampleRate, nil, sinf)
}

func fourccOf(s string) [4]byte {
	var t [4]byte
	copy(t[:], s)
	return t
}

func (s *Segmenter) writeSample(t *trackState, sample *base.Sample) error {
	var decrypt *base.DecryptConfig
	if t.encryptor != nil {
		dc, err := t.encryptor.Encrypt(sample)
		if err != nil {
			return err
		}
		decrypt = dc
		if !t.encryptionInfoSent {
			t.encryptionInfoSent = true
			s.listener.OnEncryptionInfoReady(t.trackID, dc.Scheme, dc.KeyID)
		}
	}

	if t.trackID == s.refTrackID {
		if s.segmentOpen && !t.frag.Empty() {
			if err := s.maybeCutBoundary(t, sample); err != nil {
				return err
			}
		}
		// maybeCutBoundary may have just closed the segment (cutSegment
		// clears segmentOpen); this sample starts the next one, so the
		// start timestamps must track it rather than the sample after it.
		if !s.segmentOpen {
			s.segmentStartDTS = sample.DTS
			s.segmentStartPTS = sample.PTS
			s.segmentOpen = true
		}
	}

	if !t.durationSent && sample.Duration > 0 {
		t.durationSent = true
		s.listener.OnSampleDurationReady(t.trackID, sample.Duration)
	}

	ctsOffset := int32(int64(sample.PTS) - int64(sample.DTS))
	t.frag.AddSample(sample.Payload, sample.Duration, ctsOffset, sample.IsKeyFrame, decrypt)
	return nil
}

// maybeCutBoundary decides, on the reference track's incoming sample,
// whether the pending fragment/segment should be closed before this
// sample is added. Non-reference tracks are cut in lockstep whenever
// the reference track cuts.
func (s *Segmenter) maybeCutBoundary(ref *trackState, next *base.Sample) error {
	ts := ref.info.TimeScale
	fragElapsed := ref.frag.Duration()
	atSAP := next.IsKeyFrame

	segTarget := uint64(s.cfg.SegmentDuration * float64(ts))
	fragTarget := uint64(s.cfg.FragmentDuration * float64(ts))

	segElapsed := next.DTS - s.segmentStartDTS
	wantSegCut := segTarget > 0 && segElapsed >= segTarget && (!s.cfg.SegmentSapAligned || atSAP)
	wantFragCut := fragTarget > 0 && fragElapsed >= fragTarget && (!s.cfg.FragmentSapAligned || atSAP)

	switch {
	case wantSegCut:
		return s.cutSegment()
	case wantFragCut:
		return s.cutFragment()
	}
	return nil
}

// Flush forces a fragment cut (used at end of stream or on explicit caller request).
func (s *Segmenter) Flush() error { return s.cutFragment() }

// Close forces a final segment cut and flushes/closes all open files.
func (s *Segmenter) Close() error {
	if err := s.cutSegment(); err != nil {
		return err
	}
	if s.initFile != nil && s.initFile != s.segmentFile {
		if err := s.initFile.Close(); err != nil {
			return err
		}
	}
	if s.segmentFile != nil {
		return s.segmentFile.Close()
	}
	return nil
}

// pendingFragment is one track's flushed Fragment, still waiting to be
// assembled into the current moof/mdat pair.
type pendingFragment struct {
	track *trackState
	frag  fragmenter.Fragment
}

// cutFragment flushes every track's pending samples into one moof/mdat pair
// and appends it to the current segment's buffer. It is a no-op if no track
// has anything pending. Grounded on Movmuxer.flushFragment's two-pass build:
// the trun's data_offset field has fixed width regardless of its value (the
// DataOffset flag is always set), so the first pass only needs to learn how
// long the moof will be, not to discard and rebuild every box.
func (s *Segmenter) cutFragment() error {
	var entries []pendingFragment
	for _, t := range s.tracks {
		frag, ok := t.frag.Flush()
		if !ok {
			continue
		}
		entries = append(entries, pendingFragment{t, frag})
	}
	if len(entries) == 0 {
		return nil
	}

	s.fragmentSeq++

	placeholderTrafs := make([][]byte, len(entries))
	for i, e := range entries {
		placeholderTrafs[i] = fragmenter.BuildTraf(e.frag, 0).Bytes
	}
	moofSize := len(box.NewMoof(s.fragmentSeq, placeholderTrafs))
	mdatStart := moofSize + box.BasicBoxLen

	trafs := make([][]byte, len(entries))
	trafInfos := make([]fragmenter.Traf, len(entries))
	cumPayload := 0
	for i, e := range entries {
		dataOffset := int32(mdatStart + cumPayload)
		tf := fragmenter.BuildTraf(e.frag, dataOffset)
		trafs[i] = tf.Bytes
		trafInfos[i] = tf
		cumPayload += len(e.frag.Payload)
	}

	moof := box.NewMoof(s.fragmentSeq, trafs)

	mfhdLen := int(box.NewMfhd(s.fragmentSeq).Size())
	trafOffset := box.BasicBoxLen + mfhdLen
	for i, tf := range trafInfos {
		if tf.SaioPatchAt >= 0 {
			pos := trafOffset + tf.SaioPatchAt
			value := uint32(trafOffset + tf.SencIVStart)
			binary.BigEndian.PutUint32(moof[pos:], value)
		}
		trafOffset += len(trafs[i])
	}

	var mdat bytes.Buffer
	mdat.Write(box.NewMdatHeader(uint64(cumPayload)))
	for _, e := range entries {
		mdat.Write(e.frag.Payload)
	}

	fragmentBytes := make([]byte, 0, len(moof)+mdat.Len())
	fragmentBytes = append(fragmentBytes, moof...)
	fragmentBytes = append(fragmentBytes, mdat.Bytes()...)
	s.segmentBuffer = append(s.segmentBuffer, fragmentBytes)

	s.pendingSidx = append(s.pendingSidx, s.sidxEntryFor(entries, fragmentBytes))
	return nil
}

func (s *Segmenter) sidxEntryFor(entries []pendingFragment, fragmentBytes []byte) box.SegmentIndexReferenceEntry {
	var startsWithSAP bool
	var sapType uint8
	var duration uint32
	for _, e := range entries {
		if e.track.trackID != s.refTrackID {
			continue
		}
		startsWithSAP = len(e.frag.Samples) > 0 && e.frag.Samples[0].IsKeyFrame
		if startsWithSAP {
			sapType = 1
		}
		for _, smp := range e.frag.Samples {
			duration += smp.Duration
		}
	}
	return box.SegmentIndexReferenceEntry{
		ReferencedSize:     uint32(len(fragmentBytes)),
		SubsegmentDuration: duration,
		StartsWithSAP:      startsWithSAP,
		SAPType:            sapType,
	}
}

// cutSegment closes out the current segment: it first flushes any trailing
// partial fragment, then writes styp (multi-file only) + sidx + the
// buffered moof/mdat fragments to the segment's output file, following
// the $Number$/$Time$ naming scheme of its segment_template.
func (s *Segmenter) cutSegment() error {
	if err := s.cutFragment(); err != nil {
		return err
	}
	if len(s.segmentBuffer) == 0 {
		return nil
	}

	if !s.moovWritten {
		if err := s.openAndWriteInitSegment(); err != nil {
			return err
		}
	}

	file, name, err := s.openSegmentFile()
	if err != nil {
		return err
	}

	var sizeWritten uint64
	if !s.singleFile {
		styp := box.NewStyp(box.TypeCMFC, 0, box.TypeDASH).Encode()
		if _, err := file.Write(styp); err != nil {
			return err
		}
		sizeWritten += uint64(len(styp))
	}

	if s.cfg.NumSubsegmentsPerSidx != -1 {
		ref := s.trackByID[s.refTrackID]
		entries := coalesceSidx(s.pendingSidx, s.cfg.NumSubsegmentsPerSidx)
		sidxBytes := box.NewSidx(s.refTrackID, ref.info.TimeScale, s.segmentStartPTS, entries).Encode()
		if _, err := file.Write(sidxBytes); err != nil {
			return err
		}
		sizeWritten += uint64(len(sidxBytes))
	}

	var segDuration uint64
	for _, e := range s.pendingSidx {
		segDuration += uint64(e.SubsegmentDuration)
	}
	for _, frag := range s.segmentBuffer {
		if _, err := file.Write(frag); err != nil {
			return err
		}
		sizeWritten += uint64(len(frag))
	}

	if !s.singleFile {
		if err := file.Close(); err != nil {
			return err
		}
	}

	s.segmentSeq++
	s.listener.OnNewSegment(base.SegmentSummary{
		FileName:               name,
		EarliestPresentationTS: s.segmentStartPTS,
		Duration:               segDuration,
		Size:                   sizeWritten,
		SequenceIndex:          s.segmentSeq,
	})

	s.segmentBuffer = nil
	s.pendingSidx = nil
	s.segmentOpen = false
	return nil
}

// openAndWriteInitSegment writes ftyp+moov once, either as the single
// output file's header (single-file mode) or as its own init file
// (multi-file mode, named by cfg.OutputFileName).
func (s *Segmenter) openAndWriteInitSegment() error {
	for _, t := range s.tracks {
		if t.sampleEntry == nil {
			return base.NewError(base.InvalidArgument, "Segmenter.openAndWriteInitSegment", "track has no sample entry yet; write at least one sample per track before the first segment boundary", nil)
		}
	}

	var file iofile.File
	var err error
	if s.singleFile {
		file, err = s.openFn(s.cfg.OutputFileName)
		if err != nil {
			return err
		}
		s.segmentFile = file
	} else {
		file, err = s.openFn(s.cfg.OutputFileName)
		if err != nil {
			return err
		}
		s.initFile = file
	}

	ftyp := box.NewFtyp(box.TypeISOM, 0, box.TypeISO6, box.TypeMP41, box.TypeCMFC).Encode()
	if _, err := file.Write(ftyp); err != nil {
		return err
	}

	traks := make([][]byte, 0, len(s.tracks))
	trackIDs := make([]uint32, 0, len(s.tracks))
	nextID := uint32(1)
	for _, t := range s.tracks {
		traks = append(traks, box.NewTrak(box.TrackInit{
			TrackID:     t.trackID,
			Type:        t.info.TrackType,
			Timescale:   t.info.TimeScale,
			Width:       t.info.Width,
			Height:      t.info.Height,
			SampleEntry: t.sampleEntry,
		}))
		trackIDs = append(trackIDs, t.trackID)
		if t.trackID >= nextID {
			nextID = t.trackID + 1
		}
	}
	moov := box.NewMoov(s.cfg.TimeScale, nextID, traks, trackIDs)
	if _, err := file.Write(moov); err != nil {
		return err
	}

	s.moovWritten = true
	return nil
}

// openSegmentFile returns the File the current segment's bytes should be
// written to, and the name recorded in the Listener's SegmentSummary.
func (s *Segmenter) openSegmentFile() (iofile.File, string, error) {
	if s.singleFile {
		return s.segmentFile, s.cfg.OutputFileName, nil
	}
	vars := TemplateVars{
		Number:    s.cfg.TemplateNumberRangeStart + s.segmentSeq,
		Time:      s.segmentStartDTS,
		Bandwidth: s.cfg.Bandwidth,
	}
	name := ExpandTemplate(s.cfg.SegmentTemplate, vars)
	file, err := s.openFn(name)
	if err != nil {
		return nil, "", err
	}
	return file, name, nil
}

// coalesceSidx groups consecutive per-fragment sidx entries into exactly n
// subsegments, per the num_subsegments_per_sidx config option: n<=0
// means no coalescing (one reference per fragment). The group size P is
// ceil(F/n), not n itself — grouping by P consecutive entries yields at
// most n groups, with the final group possibly smaller than P. If P==1
// there is nothing to merge.
func coalesceSidx(entries []box.SegmentIndexReferenceEntry, n int) []box.SegmentIndexReferenceEntry {
	if n <= 0 || len(entries) == 0 {
		return entries
	}
	p := (len(entries) + n - 1) / n
	if p <= 1 {
		return entries
	}
	out := make([]box.SegmentIndexReferenceEntry, 0, n)
	for i := 0; i < len(entries); i += p {
		end := i + p
		if end > len(entries) {
			end = len(entries)
		}
		merged := entries[i]
		for _, e := range entries[i+1 : end] {
			merged.ReferencedSize += e.ReferencedSize
			merged.SubsegmentDuration += e.SubsegmentDuration
			if !merged.StartsWithSAP && e.StartsWithSAP {
				merged.StartsWithSAP = true
				merged.SAPType = e.SAPType
			}
		}
		out = append(out, merged)
	}
	return out
}

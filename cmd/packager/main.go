// Command packager is a thin demonstration wrapper around the
// segmenter library: it reads a raw Annex-B elementary stream plus a
// line-oriented timing sidecar and drives one Segmenter end to end.
// It does not attempt multi-representation manifest generation, live
// ingest, or DRM key server integration; those remain an external
// collaborator's concern.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/nevil/edash-packager/config"
	"github.com/nevil/edash-packager/media/base"
	"github.com/nevil/edash-packager/media/codec"
	"github.com/nevil/edash-packager/media/crypto"
	"github.com/nevil/edash-packager/media/event"
	"github.com/nevil/edash-packager/media/iofile"
	"github.com/nevil/edash-packager/media/keysource"
	"github.com/nevil/edash-packager/media/mp4/box"
	"github.com/nevil/edash-packager/media/mp4/segmenter"

	"github.com/nevil/edash-packager/internal/logging"
)

// accessUnit is one timing sidecar line: `dts pts duration`, matching
// one entry in the input stream's NAL-unit groups in order. Keyframe
// status is derived from the NAL units themselves, not the sidecar.
type accessUnit struct {
	dts, pts uint64
	duration uint32
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML packager config (overrides defaults)")
		inputPath  = flag.String("input", "", "path to a raw Annex-B elementary stream (H.264 or H.265)")
		sidecar    = flag.String("timing", "", "path to the timing sidecar (one \"dts pts duration\" line per access unit)")
		codecName  = flag.String("codec", "h264", "video codec: h264 or h265")
		outName    = flag.String("output", "", "output file name / init-segment name (overrides config)")
		segTmpl    = flag.String("segment-template", "", "segment_template, e.g. seg-$Number%05d$.m4s (overrides config)")
		keyHex     = flag.String("key", "", "hex-encoded 16-byte content key (enables encryption)")
		keyIDHex   = flag.String("key-id", "", "hex-encoded 16-byte key id (required with -key)")
		scheme     = flag.String("scheme", "cenc", "protection scheme when -key is set: cenc, cens, cbc1, cbcs")
		logLevel   = flag.String("log-level", "info", "debug, info, warn, error")
	)
	flag.Parse()
	logging.Init(*logLevel)

	if err := run(runOpts{
		configPath: *configPath,
		inputPath:  *inputPath,
		sidecar:    *sidecar,
		codecName:  *codecName,
		outName:    *outName,
		segTmpl:    *segTmpl,
		keyHex:     *keyHex,
		keyIDHex:   *keyIDHex,
		scheme:     *scheme,
	}); err != nil {
		log.Error().Err(err).Msg("packaging failed")
		os.Exit(1)
	}
}

type runOpts struct {
	configPath, inputPath, sidecar, codecName, outName, segTmpl, keyHex, keyIDHex, scheme string
}

func run(opts runOpts) error {
	if opts.inputPath == "" || opts.sidecar == "" {
		return base.NewError(base.InvalidArgument, "run", "-input and -timing are required", nil)
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if opts.outName != "" {
		cfg.OutputFileName = opts.outName
	}
	if opts.segTmpl != "" {
		cfg.SegmentTemplate = opts.segTmpl
	}
	if opts.keyHex != "" {
		cfg.ProtectionScheme = opts.scheme
	}
	if cfg.OutputFileName == "" {
		cfg.OutputFileName = "init.mp4"
	}

	stream, err := os.ReadFile(opts.inputPath)
	if err != nil {
		return base.NewError(base.FileFailure, "run", opts.inputPath, err)
	}
	units, err := readTimingSidecar(opts.sidecar)
	if err != nil {
		return err
	}

	var encryptor *crypto.SampleEncryptor
	if opts.keyHex != "" {
		ks, err := buildKeySource(opts.keyHex, opts.keyIDHex)
		if err != nil {
			return err
		}
		trackKey, err := ks.GetKey(base.TrackVideo)
		if err != nil {
			return err
		}
		schemeVal, err := cfg.Scheme()
		if err != nil {
			return err
		}
		encryptor, err = crypto.NewSampleEncryptor(schemeVal, trackKey, cfg.CryptByteBlock, cfg.SkipByteBlock)
		if err != nil {
			return err
		}
	}

	var converter codec.BitstreamConverter
	var fourcc [4]byte
	switch strings.ToLower(opts.codecName) {
	case "h264":
		converter = codec.NewH264Converter(cfg.ClearLeadBytes)
		fourcc = box.TypeAVC1
	case "h265":
		converter = codec.NewH265Converter(cfg.ClearLeadBytes)
		fourcc = box.TypeHVC1
	default:
		return base.NewError(base.InvalidArgument, "run", "unsupported -codec: "+opts.codecName, nil)
	}

	outDir := "."
	seg := segmenter.New(cfg, loggingListener{}, iofile.LocalOpenFunc(outDir))
	trackID := seg.AddTrack(base.StreamInfo{
		TrackType: base.TrackVideo,
		FourCC:    fourcc,
		TimeScale: cfg.TimeScale,
		Width:     1280,
		Height:    720,
	}, converter, encryptor)

	groups := groupAccessUnits(stream)
	if len(groups) != len(units) {
		return base.NewError(base.InvalidArgument, "run", fmt.Sprintf("timing sidecar has %d entries but input stream has %d access units", len(units), len(groups)), nil)
	}
	for i, nalus := range groups {
		au := units[i]
		if err := seg.WriteVideoSample(trackID, nalus, au.pts, au.dts, au.duration); err != nil {
			return err
		}
	}
	return seg.Close()
}

// groupAccessUnits splits an Annex-B byte stream into access units: every
// non-VCL NAL (SPS/PPS/VPS/SEI/AUD) joins the access unit currently being
// assembled, and a new access unit starts at the next VCL NAL once the
// current one already holds one.
func groupAccessUnits(stream []byte) [][][]byte {
	nalus := codec.SplitAnnexB(stream)
	var groups [][][]byte
	var current [][]byte
	haveSlice := false
	for _, nalu := range nalus {
		if len(nalu) == 0 {
			continue
		}
		isSlice := codec.ParseH264NALUType(nalu[0]).IsSlice() || codec.ParseH265NALUType(nalu[0]).IsSlice()
		if isSlice && haveSlice {
			groups = append(groups, current)
			current = nil
			haveSlice = false
		}
		current = append(current, nalu)
		if isSlice {
			haveSlice = true
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// readTimingSidecar parses lines of `dts pts duration`, blank lines and
// lines starting with '#' ignored; fields after the third are ignored.
func readTimingSidecar(path string) ([]accessUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, base.NewError(base.FileFailure, "readTimingSidecar", path, err)
	}
	defer f.Close()

	var units []accessUnit
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, base.NewError(base.InvalidArgument, "readTimingSidecar", fmt.Sprintf("%s:%d: expected at least 3 fields", path, lineNo), nil)
		}
		dts, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return nil, base.NewError(base.InvalidArgument, "readTimingSidecar", fmt.Sprintf("%s:%d: bad dts", path, lineNo), err)
		}
		pts, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return nil, base.NewError(base.InvalidArgument, "readTimingSidecar", fmt.Sprintf("%s:%d: bad pts", path, lineNo), err)
		}
		duration, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, base.NewError(base.InvalidArgument, "readTimingSidecar", fmt.Sprintf("%s:%d: bad duration", path, lineNo), err)
		}
		units = append(units, accessUnit{dts: dts, pts: pts, duration: uint32(duration)})
	}
	if err := scanner.Err(); err != nil {
		return nil, base.NewError(base.FileFailure, "readTimingSidecar", path, err)
	}
	return units, nil
}

func buildKeySource(keyHex, keyIDHex string) (keysource.KeySource, error) {
	key, err := decodeHex16(keyHex, "key")
	if err != nil {
		return nil, err
	}
	keyID, err := decodeHex16(keyIDHex, "key-id")
	if err != nil {
		return nil, err
	}
	var trackKey crypto.TrackKey
	copy(trackKey.KeyID[:], keyID)
	trackKey.Key = key
	return keysource.NewSingleKeySource(trackKey), nil
}

func decodeHex16(s, name string) ([]byte, error) {
	if s == "" {
		return nil, base.NewError(base.InvalidArgument, "decodeHex16", "-"+name+" is required when -key is set", nil)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, base.NewError(base.InvalidArgument, "decodeHex16", "invalid -"+name, err)
	}
	if len(b) != 16 {
		return nil, base.NewError(base.InvalidArgument, "decodeHex16", "-"+name+" must be 16 bytes", nil)
	}
	return b, nil
}

type loggingListener struct {
	event.NopListener
}

func (loggingListener) OnNewSegment(summary base.SegmentSummary) {
	log.Info().
		Str("file", summary.FileName).
		Uint64("pts", summary.EarliestPresentationTS).
		Uint64("duration", summary.Duration).
		Uint64("size", summary.Size).
		Uint32("seq", summary.SequenceIndex).
		Msg("segment written")
}

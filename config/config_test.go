package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nevil/edash-packager/media/base"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()
	if !cfg.SegmentSapAligned || !cfg.FragmentSapAligned {
		t.Fatalf("segment/fragment sap alignment should default to true")
	}
	if cfg.NumSubsegmentsPerSidx != 0 {
		t.Fatalf("NumSubsegmentsPerSidx default = %d, want 0", cfg.NumSubsegmentsPerSidx)
	}
	if cfg.TimeScale != 90000 {
		t.Fatalf("TimeScale default = %d, want 90000", cfg.TimeScale)
	}
	if cfg.TemplateNumberRangeStart != 1 {
		t.Fatalf("TemplateNumberRangeStart default = %d, want 1", cfg.TemplateNumberRangeStart)
	}
	if cfg.MultiFile() {
		t.Fatalf("default config with no segment_template should not be MultiFile")
	}
}

func TestLoadOverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
output_file_name: out.mp4
segment_template: "seg-$Number$.m4s"
segment_duration: 6
num_subsegments_per_sidx: 3
protection_scheme: cenc
time_scale: 48000
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputFileName != "out.mp4" {
		t.Fatalf("OutputFileName = %q, want out.mp4", cfg.OutputFileName)
	}
	if cfg.SegmentDuration != 6 {
		t.Fatalf("SegmentDuration = %v, want 6", cfg.SegmentDuration)
	}
	if cfg.NumSubsegmentsPerSidx != 3 {
		t.Fatalf("NumSubsegmentsPerSidx = %d, want 3", cfg.NumSubsegmentsPerSidx)
	}
	if cfg.TimeScale != 48000 {
		t.Fatalf("TimeScale = %d, want 48000 (overridden)", cfg.TimeScale)
	}
	// A field the YAML never set should keep its Default() value.
	if !cfg.SegmentSapAligned {
		t.Fatalf("SegmentSapAligned should retain its default of true when absent from the YAML")
	}
	if !cfg.MultiFile() {
		t.Fatalf("a non-empty segment_template should report MultiFile")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error loading a missing config file")
	}
}

func TestLoadInvalidYAMLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected an error loading malformed yaml")
	}
}

func TestSchemeDefaultsToNone(t *testing.T) {
	cfg := Default()
	scheme, err := cfg.Scheme()
	if err != nil {
		t.Fatalf("Scheme: %v", err)
	}
	if scheme != base.ProtectionNone {
		t.Fatalf("Scheme() = %v, want ProtectionNone for an empty protection_scheme", scheme)
	}
}

func TestSchemeParsesKnownFourCC(t *testing.T) {
	cfg := Default()
	cfg.ProtectionScheme = "cbcs"
	scheme, err := cfg.Scheme()
	if err != nil {
		t.Fatalf("Scheme: %v", err)
	}
	if scheme != base.ProtectionCbcs {
		t.Fatalf("Scheme() = %v, want ProtectionCbcs", scheme)
	}
}

func TestSchemeRejectsUnknownFourCC(t *testing.T) {
	cfg := Default()
	cfg.ProtectionScheme = "bogus"
	if _, err := cfg.Scheme(); err == nil {
		t.Fatalf("expected an error for an unknown protection_scheme")
	}
}

// Package config is the packager's ambient configuration surface,
// decoded once from YAML at Segmenter construction.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nevil/edash-packager/media/base"
)

// Config holds the packager's CLI-exposed options as a Go struct.
type Config struct {
	OutputFileName   string `yaml:"output_file_name"`
	SegmentTemplate  string `yaml:"segment_template"`

	SegmentDuration  float64 `yaml:"segment_duration"`
	FragmentDuration float64 `yaml:"fragment_duration"`

	SegmentSapAligned  bool `yaml:"segment_sap_aligned"`
	FragmentSapAligned bool `yaml:"fragment_sap_aligned"`

	NumSubsegmentsPerSidx int `yaml:"num_subsegments_per_sidx"`

	Bandwidth uint32 `yaml:"bandwidth"`

	ProtectionScheme string `yaml:"protection_scheme"`
	CryptByteBlock   uint8  `yaml:"crypt_byte_block"`
	SkipByteBlock    uint8  `yaml:"skip_byte_block"`

	// ClearLeadBytes overrides the computed clear-leader length when
	// non-zero.
	ClearLeadBytes int `yaml:"clear_lead_bytes"`
	// TimeScale is the movie timescale; defaults to 90000.
	TimeScale uint32 `yaml:"time_scale"`
	// TemplateNumberRangeStart is the first $Number$ value substituted
	// into segment_template; defaults to 1.
	TemplateNumberRangeStart uint32 `yaml:"template_number_range_start"`
}

// Default returns a Config populated with its documented defaults.
func Default() Config {
	return Config{
		SegmentSapAligned:        true,
		FragmentSapAligned:       true,
		NumSubsegmentsPerSidx:    0,
		TimeScale:                90000,
		TemplateNumberRangeStart: 1,
	}
}

// Load decodes a YAML config file over the documented defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, base.NewError(base.FileFailure, "config.Load", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, base.NewError(base.InvalidArgument, "config.Load", "invalid yaml", err)
	}
	return cfg, nil
}

// MultiFile reports whether SegmentTemplate selects multi-file mode.
func (c Config) MultiFile() bool { return c.SegmentTemplate != "" }

// Scheme resolves ProtectionScheme, defaulting to ProtectionNone for an
// empty string (clear output).
func (c Config) Scheme() (base.ProtectionScheme, error) {
	if c.ProtectionScheme == "" {
		return base.ProtectionNone, nil
	}
	scheme, ok := base.ParseProtectionScheme(c.ProtectionScheme)
	if !ok {
		return base.ProtectionNone, base.NewError(base.InvalidArgument, "Config.Scheme", "unknown protection_scheme: "+c.ProtectionScheme, nil)
	}
	return scheme, nil
}

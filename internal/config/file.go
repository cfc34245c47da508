package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/backmassage/downscaler/internal/override"
)

// fileConfig mirrors the subset of Config that may be set from a YAML file.
// Pointer fields distinguish "absent" from zero values.
//
//	source: /media/library
//	destination: /media/small
//	scale: 720
//	overrides:
//	  - movies:1080
//	  - movies/kids:480
type fileConfig struct {
	Source      *string  `yaml:"source"`
	Destination *string  `yaml:"destination"`
	Scale       *int     `yaml:"scale"`
	Overrides   []string `yaml:"overrides"`
	Container   *string  `yaml:"container"`
	CRF         *int     `yaml:"crf"`
	Preset      *string  `yaml:"preset"`
	Extensions  []string `yaml:"extensions"`
	TempDir     *string  `yaml:"temp_dir"`
	FailFast    *bool    `yaml:"fail_fast"`
	FFmpeg      *string  `yaml:"ffmpeg"`
	MetricsFile *string  `yaml:"metrics_file"`
}

// LoadFile reads a YAML config file into cfg. Values whose flag was set on
// the command line (changed reports true for the flag name) are left alone.
// Overrides from the file are placed before those already in cfg so that
// command-line overrides win for duplicate directories.
func LoadFile(path string, cfg *Config, changed func(flag string) bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigError{Field: "--config", Value: path, Err: err}
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return &ConfigError{Field: "--config", Value: path, Err: err}
	}

	if changed == nil {
		changed = func(string) bool { return false }
	}

	if fc.Source != nil && !changed("source") {
		cfg.SourceDir = NormalizeDirArg(*fc.Source)
	}
	if fc.Destination != nil && !changed("destination") {
		cfg.DestinationDir = NormalizeDirArg(*fc.Destination)
	}
	if fc.Scale != nil && !changed("scale") {
		if *fc.Scale <= 0 {
			return &ConfigError{Field: "scale", Value: fmt.Sprint(*fc.Scale), Err: override.ErrInvalidHeight}
		}
		cfg.DefaultHeight = *fc.Scale
	}
	if fc.Container != nil && !changed("container") {
		cfg.OutputContainer = Container(*fc.Container)
	}
	if fc.CRF != nil && !changed("crf") {
		cfg.CRF = *fc.CRF
	}
	if fc.Preset != nil && !changed("preset") {
		cfg.Preset = *fc.Preset
	}
	if len(fc.Extensions) > 0 && !changed("ext") {
		cfg.Extensions = fc.Extensions
	}
	if fc.TempDir != nil && !changed("temp-dir") {
		cfg.StageDir = *fc.TempDir
	}
	if fc.FailFast != nil && !changed("fail-fast") {
		cfg.FailFast = *fc.FailFast
	}
	if fc.FFmpeg != nil && !changed("ffmpeg") {
		cfg.FFmpegPath = *fc.FFmpeg
	}
	if fc.MetricsFile != nil && !changed("metrics-file") {
		cfg.MetricsFile = *fc.MetricsFile
	}
	if len(fc.Overrides) > 0 {
		cfg.Overrides = append(append([]string(nil), fc.Overrides...), cfg.Overrides...)
	}
	return nil
}

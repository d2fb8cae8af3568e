// Package config holds the tflmtool configuration file.
//
// The file lives under os.UserConfigDir()/tflmtool/:
//
//	~/Library/Application Support/tflmtool/tflmtool.yaml   (macOS)
//	~/.config/tflmtool/tflmtool.yaml                       (Linux)
//	%AppData%/tflmtool/tflmtool.yaml                       (Windows)
//
// TFLMTOOL_CONFIG_DIR or the --config flag override the directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/analogdevicesinc/tflite-micro/pkg/audio/resampler"
	"github.com/analogdevicesinc/tflite-micro/pkg/denoise"
)

const (
	appDir   = "tflmtool"
	fileName = "tflmtool.yaml"

	// EnvDir overrides the configuration directory.
	EnvDir = "TFLMTOOL_CONFIG_DIR"
)

// DefaultSampleRate is the rate the denoise models run at.
const DefaultSampleRate = 16000

// File is the content of tflmtool.yaml.
type File struct {
	SampleRate  int         `yaml:"sample_rate"`
	Denoise     Denoise     `yaml:"denoise"`
	ONNXRuntime ONNXRuntime `yaml:"onnxruntime"`
}

// Denoise holds the model paths and block geometry used by the denoise
// command.
type Denoise struct {
	Mask          string `yaml:"mask,omitempty"`
	Synth         string `yaml:"synth,omitempty"`
	MaskManifest  string `yaml:"mask_manifest,omitempty"`
	SynthManifest string `yaml:"synth_manifest,omitempty"`
	Quality       string `yaml:"resample_quality,omitempty"`

	Geometry denoise.Config `yaml:",inline"`
}

// ONNXRuntime locates the runtime shared library.
type ONNXRuntime struct {
	Library string `yaml:"library,omitempty"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		SampleRate: DefaultSampleRate,
		Denoise: Denoise{
			Quality:  resampler.High.String(),
			Geometry: denoise.DefaultConfig(),
		},
	}
}

// Config locates the configuration directory.
type Config struct {
	Dir string
}

// Load resolves the configuration directory: dir if set, then
// TFLMTOOL_CONFIG_DIR, then os.UserConfigDir()/tflmtool.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvDir)
	}
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine config directory: %w", err)
		}
		dir = filepath.Join(base, appDir)
	}
	return &Config{Dir: dir}, nil
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return filepath.Join(c.Dir, fileName)
}

// Read loads the configuration file over the defaults. A missing file
// yields the defaults.
func (c *Config) Read() (*File, error) {
	f := Default()
	if err := loadInto(c.Path(), f); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, err
	}
	return f, nil
}

// Write saves f to the configuration file.
func (c *Config) Write(f *File) error {
	return Save(c.Path(), f)
}

// Exists reports whether the configuration file exists.
func (c *Config) Exists() bool {
	_, err := os.Stat(c.Path())
	return err == nil
}

// LoadFile decodes the YAML file at path into a new T.
func LoadFile[T any](path string) (*T, error) {
	var v T
	if err := loadInto(path, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func loadInto(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config %s: %w", path, os.ErrNotExist)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Save encodes v as YAML to path, creating the parent directory.
func Save[T any](path string, v *T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/analogdevicesinc/tflite-micro/pkg/denoise"
)

func TestReadMissingFileGivesDefaults(t *testing.T) {
	c := &Config{Dir: t.TempDir()}
	if c.Exists() {
		t.Fatal("Exists on an empty dir")
	}
	f, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want %d", f.SampleRate, DefaultSampleRate)
	}
	if f.Denoise.Quality != "high" {
		t.Errorf("Quality = %q, want high", f.Denoise.Quality)
	}
	if f.Denoise.Geometry != denoise.DefaultConfig() {
		t.Errorf("Geometry = %+v", f.Denoise.Geometry)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	c := &Config{Dir: filepath.Join(t.TempDir(), "nested", "tflmtool")}
	f := Default()
	f.SampleRate = 8000
	f.Denoise.Mask = "model_1.onnx"
	f.Denoise.Synth = "model_2.onnx"
	f.Denoise.Geometry.BlockShift = 256
	f.ONNXRuntime.Library = "/opt/ort/libonnxruntime.so"

	if err := c.Write(f); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !c.Exists() {
		t.Fatal("Exists after Write")
	}
	got, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if *got != *f {
		t.Errorf("Read = %+v, want %+v", got, f)
	}
}

func TestReadPartialFileKeepsDefaults(t *testing.T) {
	c := &Config{Dir: t.TempDir()}
	data := "sample_rate: 22050\ndenoise:\n  mask: m.onnx\n"
	if err := os.WriteFile(c.Path(), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := c.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if f.SampleRate != 22050 || f.Denoise.Mask != "m.onnx" {
		t.Errorf("Read = %+v", f)
	}
	if f.Denoise.Quality != "high" || f.Denoise.Geometry.BlockLen != 512 {
		t.Errorf("defaults lost: %+v", f.Denoise)
	}
}

func TestReadMalformed(t *testing.T) {
	c := &Config{Dir: t.TempDir()}
	if err := os.WriteFile(c.Path(), []byte("sample_rate: [1, 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Read(); err == nil {
		t.Error("Read of malformed YAML should fail")
	}
}

func TestLoadOrder(t *testing.T) {
	envDir := t.TempDir()
	flagDir := t.TempDir()
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	tests := []struct {
		name string
		env  string
		dir  string
		want string
	}{
		{"flag over env", envDir, flagDir, flagDir},
		{"flag alone", "", flagDir, flagDir},
		{"env", envDir, "", envDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDir, tt.env)
			c, err := Load(tt.dir)
			if err != nil {
				t.Fatal(err)
			}
			if c.Dir != tt.want {
				t.Errorf("Dir = %q, want %q", c.Dir, tt.want)
			}
			if c.Path() != filepath.Join(tt.want, "tflmtool.yaml") {
				t.Errorf("Path = %q", c.Path())
			}
		})
	}

	t.Run("user config dir", func(t *testing.T) {
		t.Setenv(EnvDir, "")
		c, err := Load("")
		if err != nil {
			t.Skipf("no user config dir: %v", err)
		}
		if filepath.Base(c.Dir) != "tflmtool" {
			t.Errorf("Dir = %q, want a tflmtool directory", c.Dir)
		}
		if runtime.GOOS == "linux" && c.Dir != filepath.Join(base, "tflmtool") {
			t.Errorf("Dir = %q, want %q", c.Dir, filepath.Join(base, "tflmtool"))
		}
	})
}

func TestLoadFileAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	type doc struct {
		Name  string `yaml:"name"`
		Count int    `yaml:"count"`
	}
	if err := Save(path, &doc{Name: "mask", Count: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadFile[doc](path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got.Name != "mask" || got.Count != 2 {
		t.Errorf("LoadFile = %+v", got)
	}
	if _, err := LoadFile[doc](filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadFile of a missing file should fail")
	}
}

package stage

import (
	"fmt"
	"os"

	"github.com/analogdevicesinc/tflite-micro/pkg/tensor"
	"gopkg.in/yaml.v3"
)

// Manifest pins parts of a stage's tensor contract that the runtime does not
// report, typically the quantization parameters of a converted model.
//
//	name: mask
//	inputs:
//	  - index: 1
//	    dtype: int8
//	    quantization: {scale: 0.0421, zero_point: -128}
//	outputs:
//	  - index: 0
//	    shape: [1, 1, 257]
//
// Manifests are YAML; JSON files parse as well.
type Manifest struct {
	Name    string          `yaml:"name,omitempty" json:"name,omitempty"`
	Inputs  []TensorOverlay `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs []TensorOverlay `yaml:"outputs,omitempty" json:"outputs,omitempty"`
}

// TensorOverlay overrides the declared contract of one tensor. Unset fields
// keep the runtime-declared value.
type TensorOverlay struct {
	Index        int                  `yaml:"index" json:"index"`
	Name         string               `yaml:"name,omitempty" json:"name,omitempty"`
	DType        *tensor.DataType     `yaml:"dtype,omitempty" json:"dtype,omitempty"`
	Shape        tensor.Shape         `yaml:"shape,omitempty" json:"shape,omitempty"`
	Quantization *tensor.Quantization `yaml:"quantization,omitempty" json:"quantization,omitempty"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest parses manifest data.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Apply returns copies of the declared inputs and outputs with the manifest
// overlaid. An overlay index outside the declared range is an error. A nil
// manifest returns plain copies.
func (m *Manifest) Apply(inputs, outputs []tensor.Info) ([]tensor.Info, []tensor.Info, error) {
	in := cloneInfos(inputs)
	out := cloneInfos(outputs)
	if m == nil {
		return in, out, nil
	}
	if err := overlay(in, m.Inputs, "input"); err != nil {
		return nil, nil, err
	}
	if err := overlay(out, m.Outputs, "output"); err != nil {
		return nil, nil, err
	}
	return in, out, nil
}

func overlay(infos []tensor.Info, overlays []TensorOverlay, kind string) error {
	for _, o := range overlays {
		if o.Index < 0 || o.Index >= len(infos) {
			return fmt.Errorf("manifest: %s index %d out of range [0,%d)", kind, o.Index, len(infos))
		}
		info := &infos[o.Index]
		if o.Name != "" {
			info.Name = o.Name
		}
		if o.DType != nil {
			info.DType = *o.DType
		}
		if o.Shape != nil {
			info.Shape = append(tensor.Shape(nil), o.Shape...)
		}
		if o.Quantization != nil {
			q := *o.Quantization
			info.Quant = &q
		}
	}
	return nil
}

func cloneInfos(infos []tensor.Info) []tensor.Info {
	out := make([]tensor.Info, len(infos))
	for i, info := range infos {
		out[i] = info
		out[i].Shape = append(tensor.Shape(nil), info.Shape...)
		if info.Quant != nil {
			q := *info.Quant
			out[i].Quant = &q
		}
	}
	return out
}

package resampler

import (
	"fmt"
	"strings"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Quality selects a resampler preset.
type Quality int

const (
	Quick Quality = iota
	Low
	Medium
	High
	VeryHigh
)

var qualityNames = []string{"quick", "low", "medium", "high", "very-high"}

func (q Quality) String() string {
	if q < 0 || int(q) >= len(qualityNames) {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

// ParseQuality parses a preset name such as "high" or "very-high".
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range qualityNames {
		if s == name {
			return Quality(i), nil
		}
	}
	return 0, fmt.Errorf("resampler: unknown quality %q (want one of %s)", s, strings.Join(qualityNames, ", "))
}

func (q Quality) spec() resampling.QualitySpec {
	switch q {
	case Quick:
		return resampling.QualitySpec{Preset: resampling.QualityQuick}
	case Low:
		return resampling.QualitySpec{Preset: resampling.QualityLow}
	case Medium:
		return resampling.QualitySpec{Preset: resampling.QualityMedium}
	case VeryHigh:
		return resampling.QualitySpec{Preset: resampling.QualityVeryHigh}
	default:
		return resampling.QualitySpec{Preset: resampling.QualityHigh}
	}
}

type options struct {
	quality Quality
}

// Option configures Resample.
type Option func(*options)

// WithQuality selects the resampling preset.
func WithQuality(q Quality) Option {
	return func(o *options) { o.quality = q }
}

// Resample converts mono samples from srcRate to dstRate. Equal rates return
// a copy of the input.
func Resample(samples []float32, srcRate, dstRate int, opts ...Option) ([]float32, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate {
		return append([]float32(nil), samples...), nil
	}

	o := options{quality: High}
	for _, opt := range opts {
		opt(&o)
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    o.quality.spec(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush: %w", err)
	}

	out := make([]float32, 0, len(output)+len(tail))
	for _, s := range output {
		out = append(out, float32(s))
	}
	for _, s := range tail {
		out = append(out, float32(s))
	}
	return out, nil
}

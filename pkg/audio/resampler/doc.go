// Package resampler converts mono float32 audio between sample rates using
// the pure Go SoX-derived resampler from github.com/tphakala/go-audio-resampling.
//
// Samples are normalized floats in [-1, 1]. The whole signal is pushed
// through the streaming resampler and flushed, so the output length is
// close to len(input) * dst / src.
//
// Example usage:
//
//	out, err := resampler.Resample(samples, 44100, 16000)
//	if err != nil {
//	    return err
//	}
//
// The quality preset defaults to [High]; pass [WithQuality] to trade
// accuracy for speed.
package resampler

// Package audio groups the sample I/O used by the TFLM audio tooling.
//
//   - wav: mono float32 views of PCM WAV files, and 16-bit output
//   - rawbin: headerless little-endian float32 sample files
//   - resampler: sample rate conversion to the model rate
//
// Samples are float32 in [-1, 1) throughout.
package audio

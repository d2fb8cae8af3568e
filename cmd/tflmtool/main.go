// Package main is the entry point of tflmtool, the asset conversion and
// streaming-denoise tool for TFLM audio firmware.
//
// Usage:
//
//	tflmtool [flags] <command> [args]
//
// Commands:
//
//	bin2wav     - Raw float32 samples to 16-bit WAV
//	wav2bin     - WAV to raw float32 samples at a target rate
//	img2bin     - Image to packed 96x96 grayscale bytes
//	ccarray     - Model, image, audio or test vectors to C++ arrays
//	modelcheck  - Verify generated model sources exist
//	denoise     - Run the two-stage DTLN denoiser over WAV files
//	trace       - Export recorded stage tensors as test vectors
//	config      - Show or initialise the configuration file
//	version     - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/analogdevicesinc/tflite-micro/cmd/tflmtool/commands"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}

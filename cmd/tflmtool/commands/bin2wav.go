package commands

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/pkg/audio/rawbin"
	"github.com/analogdevicesinc/tflite-micro/pkg/audio/wav"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var bin2wavCmd = &cobra.Command{
	Use:   "bin2wav <in.bin> <out.wav> <sample_rate>",
	Short: "Convert raw float32 samples to a 16-bit WAV file",
	Long: `Convert a headerless little-endian float32 sample file, as written by
numpy's tofile, to a mono 16-bit PCM WAV file. Samples outside [-1, 1]
are clipped.`,
	Args: exactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[2])
		if err != nil {
			return err
		}
		samples, err := rawbin.ReadFile(args[0])
		if err != nil {
			return cli.Invalid(err)
		}
		if err := wav.WriteFile(args[1], samples, rate); err != nil {
			return err
		}
		slog.Debug("bin2wav", "input", args[0], "samples", len(samples), "rate", rate)
		printer(cmd).Success("wrote %s (%d samples at %d Hz)", args[1], len(samples), rate)
		return nil
	},
}

// parseRate parses a positive integer sample rate.
func parseRate(s string) (int, error) {
	rate, err := strconv.Atoi(s)
	if err != nil {
		return 0, cli.InvalidArgument("sample rate must be an integer, got %q", s)
	}
	if rate <= 0 {
		return 0, cli.InvalidArgument("sample rate must be positive, got %d", rate)
	}
	return rate, nil
}

func init() {
	rootCmd.AddCommand(bin2wavCmd)
}

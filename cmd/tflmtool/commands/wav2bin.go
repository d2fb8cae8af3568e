package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/pkg/audio/rawbin"
	"github.com/analogdevicesinc/tflite-micro/pkg/audio/resampler"
	"github.com/analogdevicesinc/tflite-micro/pkg/audio/wav"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var wav2binQuality string

var wav2binCmd = &cobra.Command{
	Use:   "wav2bin <in.wav> <out.bin> <sample_rate>",
	Short: "Convert a WAV file to raw float32 samples",
	Long: `Decode a PCM WAV file, average its channels to mono, resample it to
sample_rate when the rates differ, and write headerless little-endian
float32 samples readable with numpy.fromfile(path, dtype="float32").`,
	Args: exactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		rate, err := parseRate(args[2])
		if err != nil {
			return err
		}
		quality, err := parseQuality(wav2binQuality)
		if err != nil {
			return err
		}
		a, err := wav.ReadFile(args[0])
		if err != nil {
			return cli.Invalid(err)
		}
		samples := a.Samples
		if a.SampleRate != rate {
			slog.Debug("wav2bin: resampling", "from", a.SampleRate, "to", rate, "quality", quality)
			samples, err = resampler.Resample(samples, a.SampleRate, rate, resampler.WithQuality(quality))
			if err != nil {
				return err
			}
		}
		if err := rawbin.WriteFile(args[1], samples); err != nil {
			return err
		}
		printer(cmd).Success("wrote %s (%d samples at %d Hz)", args[1], len(samples), rate)
		return nil
	},
}

func init() {
	wav2binCmd.Flags().StringVar(&wav2binQuality, "quality", "high", "resampling quality (quick, low, medium, high, very-high)")
	rootCmd.AddCommand(wav2binCmd)
}

func parseQuality(s string) (resampler.Quality, error) {
	q, err := resampler.ParseQuality(s)
	if err != nil {
		return 0, cli.InvalidArgument("%v", err)
	}
	return q, nil
}

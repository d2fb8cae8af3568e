package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/cmd/tflmtool/internal/config"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var (
	// Global flags
	verbose   bool
	logFormat string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "tflmtool",
	Short: "Asset conversion and streaming denoise for TFLM audio firmware",
	Long: `tflmtool - conversion and evaluation tooling for TFLite Micro audio models.

It converts between raw float32 sample files and WAV, prepares camera
images, embeds models and test vectors as C++ arrays, and runs the
two-stage DTLN denoiser over WAV files with ONNX Runtime.

Configuration is stored in the OS config directory:
  macOS:   ~/Library/Application Support/tflmtool/tflmtool.yaml
  Linux:   ~/.config/tflmtool/tflmtool.yaml
  Windows: %AppData%/tflmtool/tflmtool.yaml

Examples:
  # Round-trip a test signal
  tflmtool wav2bin speech.wav speech.bin 16000
  tflmtool bin2wav speech.bin speech_out.wav 16000

  # Embed a model for the firmware build
  tflmtool ccarray gen/model_data.cc model.tflite

  # Denoise with the converted stages
  tflmtool denoise noisy.wav clean.wav --mask model_1.onnx --synth model_2.onnx`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default is the OS config dir)")

	// Subcommands inherit this, so a malformed flag on any of them exits 2.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.InvalidArgument("%v\n\nUsage: %s", err, cmd.UseLine())
	})
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(logFormat) {
	case "text", "":
		h = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	case "json":
		h = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		return cli.InvalidArgument("unknown log format %q (want text or json)", logFormat)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

// loadConfig resolves the configuration directory and reads the file.
func loadConfig() (*config.Config, *config.File, error) {
	c, err := config.Load(configDir)
	if err != nil {
		return nil, nil, err
	}
	f, err := c.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("config not available: %w", err)
	}
	return c, f, nil
}

// printer returns a status printer bound to the command's streams.
func printer(cmd *cobra.Command) *cli.Printer {
	p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	p.Verbose = verbose
	return p
}

// exactArgs is cobra.ExactArgs reporting an invalid argument.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return cli.InvalidArgument("%s takes %d arguments, got %d\n\nUsage: %s", cmd.Name(), n, len(args), cmd.UseLine())
		}
		return nil
	}
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			return cli.InvalidArgument("%s takes %d to %d arguments, got %d\n\nUsage: %s", cmd.Name(), lo, hi, len(args), cmd.UseLine())
		}
		return nil
	}
}

func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return cli.InvalidArgument("%s takes at least %d arguments, got %d\n\nUsage: %s", cmd.Name(), n, len(args), cmd.UseLine())
		}
		return nil
	}
}

package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/pkg/ccarray"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var ccarrayCmd = &cobra.Command{
	Use:   "ccarray <output> <inputs...>",
	Short: "Convert models, images, audio or test vectors to C++ arrays",
	Long: `Write the contents of an input file as a C++ array definition.

When output ends in .cc or .h, exactly one input is converted into that
file. Otherwise output is a directory: the first input is written to
micro_speech_audio_data.cc and .h inside it, and the .cc path is printed
for the build to pick up.

Supported inputs: .tflite, .bmp, 16-bit .wav, *_int32.csv, *_int16.csv,
*_int8.csv, *_float.csv and .npy.`,
	Args: minArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, inputs := args[0], args[1:]
		single := strings.HasSuffix(output, ".cc") || strings.HasSuffix(output, ".h")
		if single && len(inputs) != 1 {
			return cli.InvalidArgument("output %s takes exactly one input, got %d", output, len(inputs))
		}
		if !single && len(inputs) > 1 {
			slog.Warn("ccarray: directory mode converts only the first input", "ignored", len(inputs)-1)
		}

		a, err := ccarray.FromFile(inputs[0])
		if err != nil {
			return cli.Invalid(err)
		}
		paths, err := ccarray.Emit(output, a)
		if err != nil {
			return err
		}
		if !single {
			fmt.Fprintln(cmd.OutOrStdout(), paths[0])
		}
		slog.Debug("ccarray: generated", "files", paths)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ccarrayCmd)
}

package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
	"github.com/analogdevicesinc/tflite-micro/pkg/denoise"
	"github.com/analogdevicesinc/tflite-micro/pkg/trace"
)

var (
	traceBlock int
	traceStage string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect denoise traces",
}

var traceExportCmd = &cobra.Command{
	Use:   "export <trace.msgpack> <dir>",
	Short: "Export recorded stage tensors as CSV test vectors",
	Long: `Write every tensor of the selected trace records to dir, one CSV line
per file, named <stage>_b<block>_<in|out><index>_<type>.csv. The files
can be embedded with 'tflmtool ccarray' as firmware test vectors.`,
	Args: exactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch traceStage {
		case "", denoise.StageMask, denoise.StageSynth:
		default:
			return cli.InvalidArgument("stage must be %s or %s, got %q", denoise.StageMask, denoise.StageSynth, traceStage)
		}

		f, err := os.Open(args[0])
		if err != nil {
			return cli.Invalid(err)
		}
		defer f.Close()

		r, err := trace.NewReader(bufio.NewReader(f))
		if err != nil {
			return cli.Invalid(fmt.Errorf("%s: %w", args[0], err))
		}
		paths, err := trace.Export(r, args[1], trace.Filter{Block: traceBlock, Stage: traceStage})
		if err != nil {
			return err
		}

		p := printer(cmd)
		h := r.Header()
		p.Verbosef("run %s from %s, recorded %s", h.RunID, h.Source, h.CreatedAt.Format("2006-01-02 15:04:05"))
		for _, path := range paths {
			p.Verbosef("%s", path)
		}
		p.Success("exported %d tensors to %s", len(paths), args[1])
		return nil
	},
}

func init() {
	traceExportCmd.Flags().IntVar(&traceBlock, "block", -1, "export only this block (default all)")
	traceExportCmd.Flags().StringVar(&traceStage, "stage", "", "export only this stage (mask, synth)")

	traceCmd.AddCommand(traceExportCmd)
	rootCmd.AddCommand(traceCmd)
}

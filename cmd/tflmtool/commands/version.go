package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/cmd/tflmtool/internal/build"
	"github.com/analogdevicesinc/tflite-micro/cmd/tflmtool/internal/config"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFormat != "" {
			format, err := cli.ParseOutputFormat(versionFormat)
			if err != nil {
				return err
			}
			return cli.Output(build.Get(), cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, build.String())
		if verbose {
			info := build.Get()
			fmt.Fprintf(out, "  go:     %s\n", info.Go)
			if c, err := config.Load(configDir); err == nil {
				fmt.Fprintf(out, "  config: %s\n", c.Path())
			} else {
				fmt.Fprintf(out, "  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "", "output format (yaml, json)")
	rootCmd.AddCommand(versionCmd)
}

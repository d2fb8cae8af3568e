package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/cmd/tflmtool/internal/config"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var (
	configFormat string
	configForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialise the configuration file",
	Long: `Manage tflmtool.yaml.

The file sets defaults for the denoise command: model paths, manifests,
block geometry, the resampling target and the ONNX Runtime library.
Command-line flags and job files override it.

Example tflmtool.yaml:

  sample_rate: 16000
  denoise:
    mask: /models/dtln/model_1.onnx
    synth: /models/dtln/model_2.onnx
    block_len: 512
    block_shift: 128
  onnxruntime:
    library: /opt/onnxruntime/lib/libonnxruntime.so`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c.Path())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(configFormat)
		if err != nil {
			return err
		}
		_, f, err := loadConfig()
		if err != nil {
			return err
		}
		return cli.Output(f, cli.OutputOptions{Format: format, Writer: cmd.OutOrStdout()})
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  exactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configDir)
		if err != nil {
			return err
		}
		if c.Exists() && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", c.Path())
		}
		if err := c.Write(config.Default()); err != nil {
			return err
		}
		printer(cmd).Success("wrote %s", c.Path())
		return nil
	},
}

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "yaml", "output format (yaml, json)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configPathCmd, configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

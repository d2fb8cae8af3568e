package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/analogdevicesinc/tflite-micro/pkg/ccarray"
	"github.com/analogdevicesinc/tflite-micro/pkg/cli"
)

var modelcheckCmd = &cobra.Command{
	Use:   "modelcheck [dir]",
	Short: "Verify that generated model sources exist",
	Long: `Walk dir (the working directory by default), following symlinks, and
check that it holds at least one .cc and one .h file. The command fails
when either is missing.`,
	Args: rangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		} else if wd, err := os.Getwd(); err == nil {
			dir = wd
		}

		if _, err := os.Stat(dir); err != nil {
			return cli.Invalid(err)
		}
		p := printer(cmd)
		res, err := ccarray.CheckDir(dir)
		if res != nil {
			p.Verbosef("sources: %s", strings.Join(res.Sources, ", "))
			p.Verbosef("headers: %s", strings.Join(res.Headers, ", "))
		}
		if err != nil {
			return err
		}
		p.Success("found %d .cc and %d .h files in %s", len(res.Sources), len(res.Headers), dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelcheckCmd)
}

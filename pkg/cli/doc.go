// Package cli holds the helpers shared by tflmtool subcommands: report
// output in YAML or JSON, job-file loading, duration and size formatting,
// styled status lines, and the invalid-argument error class.
//
//	p := cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
//	p.Success("wrote %s", path)
//
//	cli.Output(report, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    Writer: cmd.OutOrStdout(),
//	})
package cli

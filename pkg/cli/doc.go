/*
Package cli provides helpers shared by the glucobridge commands.

Errors returned by commands are mapped to exit codes with ExitCode:
configuration problems exit with 2, everything else with 1.

	if err := cmd.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}

Command results are written in text or JSON:

	format, err := cli.ParseOutputFormat(flagOutput)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), result)

SetupSignalHandler derives a context that is cancelled on SIGINT/SIGTERM.
*/
package cli

/*
Package cli provides helpers shared by the odd command.

Output Formatting:

Command results print as text or JSON:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, resp)

Values implementing Texter control their text rendering.

Errors:

ConfigError and CommandError map onto process exit codes with ExitCode.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

package cmd

import (
	"errors"
	"io"
	"io/fs"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledef/internal/shorthand"
)

var Version = "0.1.0"

func newRootCmd(webFS fs.FS) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tabledef",
		Short: "Compile column shorthand into CREATE TABLE statements",
		Long: `
tabledef turns compact column shorthand into PostgreSQL CREATE TABLE
statements and keeps the results in a small definitions store.

Shorthand forms:
- Space form: "name t, email t, age in"
- Colon form, one column per line: "title:t"

Run "tabledef types" for the list of type codes.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd(webFS))
	rootCmd.AddCommand(newCompileCmd())
	rootCmd.AddCommand(newTypesCmd())
	return rootCmd
}

// Execute runs the CLI. webFS holds the static form served by "serve".
// Errors are reported on stderr before being returned.
func Execute(webFS fs.FS) error {
	return execute(newRootCmd(webFS))
}

func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(w, "✗ %v\n", err)

	if errors.Is(err, shorthand.ErrUnknownType) {
		color.New(color.FgYellow).Fprintln(w, "  run \"tabledef types\" for the list of type codes")
	}
}

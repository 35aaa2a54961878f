package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledef/internal/shorthand"
)

func newCompileCmd() *cobra.Command {
	var (
		text    string
		grammar string
	)

	cmd := &cobra.Command{
		Use:   "compile <table>",
		Short: "Print the CREATE TABLE statement for a shorthand definition",
		Long: `Compile a shorthand definition and print the resulting statement.

The shorthand is taken from --shorthand, or read from stdin when the flag
is not given. Nothing is stored.`,
		Example: `  tabledef compile users -s "name t, email t, age in"
  printf 'title:t\ndescription:tn\n' | tabledef compile posts`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := shorthand.ParseGrammar(grammar)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("shorthand") {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read shorthand from stdin: %w", err)
				}
				text = strings.TrimRight(string(b), "\n")
			}

			sql, err := shorthand.CompileWith(args[0], text, g)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "shorthand", "s", "", "shorthand definition (default: read stdin)")
	cmd.Flags().StringVarP(&grammar, "grammar", "g", "auto", "shorthand grammar: auto, space or colon")
	return cmd
}

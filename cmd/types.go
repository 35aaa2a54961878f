package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabledef/internal/shorthand"
)

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the shorthand type codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTypes(cmd.OutOrStdout())
		},
	}
}

func printTypes(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := color.New(color.FgCyan, color.Bold)
	header.Fprintln(tw, "CODE\tSQL TYPE\tDEFAULT\tDESCRIPTION")

	for _, t := range shorthand.TypeCodes() {
		def := t.Default
		switch {
		case t.PrimaryKey:
			def = "PRIMARY KEY"
		case def == "" && t.Nullable:
			def = "NULL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Code, t.SQLType, def, t.Description)
	}
	return tw.Flush()
}

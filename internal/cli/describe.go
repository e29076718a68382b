package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Show the signature of a routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, cleanup, err := wrap(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			r, err := w.Get(args[0])
			if err != nil {
				return err
			}
			v := viewOf(args[0], r.Descriptor())

			out := cmd.OutOrStdout()
			if getConfig(cmd.Context()).Output == "json" {
				return renderJSON(out, v)
			}

			_, _ = fmt.Fprintf(out, "%s %s.%s returns %s", v.Kind, v.Schema, r.Name(), v.Returns)
			if v.ReturnType != "" {
				_, _ = fmt.Fprintf(out, " (%s)", v.ReturnType)
			}
			_, _ = fmt.Fprintln(out)
			if !v.SignatureKnown {
				_, _ = fmt.Fprintf(out, "signature unavailable: %s\n", v.SignatureError)
				return nil
			}

			t := newTable(out, "#", "NAME", "DIRECTION", "TYPE")
			for i, p := range v.Parameters {
				t.AppendRow(table.Row{i + 1, p.Name, p.Direction, p.Type})
			}
			t.Render()
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ignaciocaff/dbproc"
)

type routineView struct {
	Name           string          `json:"name"`
	Schema         string          `json:"schema"`
	Kind           string          `json:"kind"`
	Returns        string          `json:"returns"`
	ReturnType     string          `json:"return_type,omitempty"`
	SignatureKnown bool            `json:"signature_known"`
	SignatureError string          `json:"signature_error,omitempty"`
	Parameters     []parameterView `json:"parameters"`
}

type parameterView struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Type      string `json:"type"`
}

func viewOf(name string, p dbproc.Procedure) routineView {
	v := routineView{
		Name:           name,
		Schema:         p.Schema,
		Kind:           p.Kind.String(),
		Returns:        p.Returns.String(),
		ReturnType:     p.ReturnType,
		SignatureKnown: p.SignatureKnown,
		Parameters:     make([]parameterView, 0, len(p.Parameters)),
	}
	if p.SignatureErr != nil {
		v.SignatureError = p.SignatureErr.Error()
	}
	for _, param := range p.Parameters {
		v.Parameters = append(v.Parameters, parameterView{
			Name:      param.Name,
			Direction: param.Direction.String(),
			Type:      param.Type,
		})
	}
	return v
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the routines of the schema",
		Example: `  dbproc list --driver mysql --dsn 'root@tcp(localhost)/app'
  dbproc list -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, cleanup, err := wrap(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var views []routineView
			var signatures []string
			for _, name := range w.Names() {
				r, err := w.Get(name)
				if err != nil {
					return err
				}
				desc := r.Descriptor()
				views = append(views, viewOf(name, desc))
				signatures = append(signatures, desc.String())
			}

			out := cmd.OutOrStdout()
			if getConfig(cmd.Context()).Output == "json" {
				return renderJSON(out, views)
			}

			t := newTable(out, "NAME", "KIND", "RETURNS", "SIGNATURE")
			for i, v := range views {
				t.AppendRow(table.Row{v.Name, v.Kind, v.Returns, signatures[i]})
			}
			t.Render()
			_, _ = fmt.Fprintf(out, "%d routines in %s\n", len(views), w.Schema())
			return nil
		},
	}
}

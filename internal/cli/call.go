package cli

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// nullToken passed as a value binds SQL NULL.
const nullToken = `\N`

func newCallCommand() *cobra.Command {
	var named []string

	cmd := &cobra.Command{
		Use:   "call NAME [ARG...]",
		Short: "Call a routine",
		Long: `Call a stored function or procedure. Positional ARGs are bound in order,
--arg name=value binds by parameter name. Pass \N for NULL.`,
		Example: `  dbproc call add 2 3
  dbproc call upsert 1 --arg name=x -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			callArgs, err := buildArgs(args[1:], named)
			if err != nil {
				return err
			}

			w, cleanup, err := wrap(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := w.Call(cmd.Context(), args[0], callArgs...)
			if err != nil {
				return err
			}
			return renderResult(cmd.OutOrStdout(), res, getConfig(cmd.Context()).Output)
		},
	}

	cmd.Flags().StringArrayVarP(&named, "arg", "a", nil, "named argument as name=value (repeatable)")
	return cmd
}

func buildArgs(positional, named []string) ([]any, error) {
	out := make([]any, 0, len(positional)+len(named))
	for _, v := range positional {
		out = append(out, argValue(v))
	}
	for _, kv := range named {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --arg %q, want name=value", kv)
		}
		out = append(out, sql.Named(name, argValue(value)))
	}
	return out, nil
}

func argValue(s string) any {
	if s == nullToken {
		return nil
	}
	return s
}

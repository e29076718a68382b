package mysql

import (
	"fmt"
	"strings"

	"github.com/ignaciocaff/dbproc/internal/core"
)

// parseParamList decodes the param_list column of mysql.proc, e.g.
// "IN id INT, INOUT total DECIMAL(10,2), OUT label ENUM('a,b','c')".
func parseParamList(list string) ([]core.Parameter, error) {
	params := []core.Parameter{}
	seen := make(map[string]bool)

	for _, part := range splitTopLevel(list) {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}

		dir := core.In
		switch strings.ToUpper(fields[0]) {
		case "IN", "OUT", "INOUT":
			d, err := core.ParseDirection(fields[0])
			if err != nil {
				return nil, err
			}
			dir = d
			fields = fields[1:]
		}
		if len(fields) == 0 {
			return nil, fmt.Errorf("parameter %q has no name", strings.TrimSpace(part))
		}

		name := strings.Trim(fields[0], "`")
		if seen[name] {
			return nil, fmt.Errorf("duplicate parameter %q", name)
		}
		seen[name] = true

		params = append(params, core.Parameter{
			Name:      name,
			Direction: dir,
			Type:      strings.Join(fields[1:], " "),
		})
	}
	return params, nil
}

// splitTopLevel splits on commas outside parentheses and quoted strings.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	var quote rune
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

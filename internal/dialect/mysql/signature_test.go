package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignaciocaff/dbproc/internal/core"
)

func TestParseParamList(t *testing.T) {
	tests := []struct {
		name      string
		list      string
		want      []core.Parameter
		expectErr bool
	}{
		{
			name: "empty list",
			list: "",
			want: []core.Parameter{},
		},
		{
			name: "directions and types",
			list: "IN id INT, OUT prev_name VARCHAR(10), INOUT total DECIMAL(10,2)",
			want: []core.Parameter{
				{Name: "id", Direction: core.In, Type: "INT"},
				{Name: "prev_name", Direction: core.Out, Type: "VARCHAR(10)"},
				{Name: "total", Direction: core.InOut, Type: "DECIMAL(10,2)"},
			},
		},
		{
			name: "function params default to IN",
			list: "a int, b int",
			want: []core.Parameter{
				{Name: "a", Direction: core.In, Type: "int"},
				{Name: "b", Direction: core.In, Type: "int"},
			},
		},
		{
			name: "quoted commas and backticks",
			list: "in `kind` ENUM('a,b','c'),\n\tout n DECIMAL(10, 2) UNSIGNED",
			want: []core.Parameter{
				{Name: "kind", Direction: core.In, Type: "ENUM('a,b','c')"},
				{Name: "n", Direction: core.Out, Type: "DECIMAL(10, 2) UNSIGNED"},
			},
		},
		{
			name:      "duplicate names",
			list:      "IN a INT, OUT a INT",
			expectErr: true,
		},
		{
			name:      "direction without name",
			list:      "IN",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParamList(tt.list)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

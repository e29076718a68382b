package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"":         In,
		"in":       In,
		"OUT":      Out,
		"INOUT":    InOut,
		"IN/OUT":   InOut,
		" in out ": InOut,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDirection("sideways")
	assert.Error(t, err)
}

func TestProcedure(t *testing.T) {
	p := upsert()
	p.Schema = "app"

	assert.Equal(t, 1, p.Index("name"))
	assert.Equal(t, -1, p.Index("NAME"))
	assert.True(t, p.HasOutputs())
	assert.Equal(t, "procedure app.upsert(IN id int, IN name varchar, OUT prev_name varchar)", p.String())

	p.SignatureKnown = false
	assert.Equal(t, "procedure app.upsert(...)", p.String())

	f := &Procedure{Name: "now", Schema: "app", Parameters: []Parameter{}, SignatureKnown: true}
	assert.False(t, f.HasOutputs())
	assert.Equal(t, "function app.now()", f.String())
}

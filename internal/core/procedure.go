package core

import (
	"fmt"
	"strings"
)

// Direction is the data flow of a routine parameter.
type Direction int

const (
	In Direction = iota
	Out
	InOut
)

func (d Direction) String() string {
	switch d {
	case Out:
		return "OUT"
	case InOut:
		return "INOUT"
	default:
		return "IN"
	}
}

// ParseDirection accepts the spellings used by the supported catalogs
// (IN, OUT, INOUT, IN/OUT, IN OUT). Empty means IN.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "IN":
		return In, nil
	case "OUT":
		return Out, nil
	case "INOUT", "IN/OUT", "IN OUT":
		return InOut, nil
	}
	return In, fmt.Errorf("unknown parameter direction %q", s)
}

// Kind tells functions from procedures.
type Kind int

const (
	KindFunction Kind = iota
	KindProcedure
)

func (k Kind) String() string {
	if k == KindProcedure {
		return "procedure"
	}
	return "function"
}

// Returns describes the shape of what a routine hands back.
type Returns int

const (
	ReturnsNone Returns = iota
	ReturnsScalar
	ReturnsRecord
	ReturnsSet
)

func (r Returns) String() string {
	switch r {
	case ReturnsScalar:
		return "scalar"
	case ReturnsRecord:
		return "record"
	case ReturnsSet:
		return "set"
	default:
		return "none"
	}
}

// Parameter is one declared argument of a routine.
type Parameter struct {
	Name      string
	Direction Direction
	Type      string
}

// Procedure describes one stored function or procedure as discovered in
// the catalog. Descriptors are immutable once enumeration returns.
type Procedure struct {
	Name       string
	Schema     string
	Kind       Kind
	Returns    Returns
	ReturnType string
	Parameters []Parameter

	// SignatureKnown is false when the parameter list could not be read.
	// Such routines only accept positional arguments.
	SignatureKnown bool
	SignatureErr   error
}

// Index returns the position of the named parameter or -1.
func (p *Procedure) Index(name string) int {
	for i, param := range p.Parameters {
		if param.Name == name {
			return i
		}
	}
	return -1
}

// HasOutputs reports whether any parameter returns a value.
func (p *Procedure) HasOutputs() bool {
	for _, param := range p.Parameters {
		if param.Direction != In {
			return true
		}
	}
	return false
}

func (p *Procedure) String() string {
	parts := make([]string, len(p.Parameters))
	for i, param := range p.Parameters {
		parts[i] = strings.TrimSpace(fmt.Sprintf("%s %s %s", param.Direction, param.Name, param.Type))
	}
	sig := strings.Join(parts, ", ")
	if !p.SignatureKnown {
		sig = "..."
	}
	return fmt.Sprintf("%s %s.%s(%s)", p.Kind, p.Schema, p.Name, sig)
}

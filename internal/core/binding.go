package core

import (
	"database/sql"
)

// Slot is one bound parameter position of a call.
type Slot struct {
	Param Parameter
	Value any
	// Set is true when the caller supplied the value.
	Set bool
	// Fetch marks OUT and INOUT slots whose value is read back after the call.
	Fetch bool
}

// Binding is the outcome of matching call arguments to a signature.
type Binding struct {
	Procedure *Procedure
	Slots     []Slot
}

// Fetched returns the slots that must be read back after execution.
func (b *Binding) Fetched() []Slot {
	var out []Slot
	for _, s := range b.Slots {
		if s.Fetch {
			out = append(out, s)
		}
	}
	return out
}

// SplitArgs separates sql.NamedArg values from plain positional values.
func SplitArgs(proc string, args []any) ([]any, map[string]any, error) {
	var positional []any
	var named map[string]any
	for _, arg := range args {
		na, ok := arg.(sql.NamedArg)
		if !ok {
			positional = append(positional, arg)
			continue
		}
		if named == nil {
			named = make(map[string]any)
		}
		if _, dup := named[na.Name]; dup {
			return nil, nil, &ArgumentError{Procedure: proc, Argument: na.Name, Err: ErrDuplicateArgument}
		}
		named[na.Name] = na.Value
	}
	return positional, named, nil
}

// Bind matches positional and named arguments against the procedure's
// parameters. It never touches the database.
func Bind(p *Procedure, positional []any, named map[string]any) (*Binding, error) {
	if !p.SignatureKnown {
		return bindPositional(p, positional, named)
	}

	params := p.Parameters
	slots := make([]Slot, len(params))
	for i, param := range params {
		slots[i].Param = param
	}

	required := 0
	for _, param := range params {
		if param.Direction != Out {
			required++
		}
	}

	if len(positional) > len(params) {
		return nil, &ArgumentError{
			Procedure: p.Name,
			Required:  required,
			Given:     len(positional) + len(named),
			Err:       ErrArgumentCountMismatch,
		}
	}
	for i, v := range positional {
		slots[i].Value = v
		slots[i].Set = true
	}

	for name, v := range named {
		idx := p.Index(name)
		if idx < 0 {
			return nil, &ArgumentError{Procedure: p.Name, Argument: name, Err: ErrUnexpectedArgument}
		}
		if slots[idx].Set {
			return nil, &ArgumentError{Procedure: p.Name, Argument: name, Err: ErrDuplicateArgument}
		}
		slots[idx].Value = v
		slots[idx].Set = true
	}

	given, missing := 0, 0
	for i := range slots {
		s := &slots[i]
		switch {
		case s.Param.Direction == Out:
			// unset OUT slots get a nil placeholder and never count as missing
			s.Fetch = true
			if s.Set {
				given++
			}
		case s.Set:
			given++
			s.Fetch = s.Param.Direction == InOut
		default:
			missing++
		}
	}
	if missing > 0 {
		return nil, &ArgumentError{
			Procedure: p.Name,
			Required:  required,
			Given:     given,
			Err:       ErrArgumentCountMismatch,
		}
	}
	return &Binding{Procedure: p, Slots: slots}, nil
}

func bindPositional(p *Procedure, positional []any, named map[string]any) (*Binding, error) {
	if len(named) > 0 {
		return nil, &ArgumentError{Procedure: p.Name, Err: ErrUnexpectedArgument}
	}
	slots := make([]Slot, len(positional))
	for i, v := range positional {
		slots[i] = Slot{Param: Parameter{Direction: In}, Value: v, Set: true}
	}
	return &Binding{Procedure: p, Slots: slots}, nil
}

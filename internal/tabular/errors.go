package tabular

import "fmt"

// ConfigError means the input schema does not match what the caller
// asked for: a required column is missing, or two tables share no
// normalized keys. The fix is in the input, not here, so the run stops.
type ConfigError struct {
	Table  string
	Column string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("table %q: column %q: %s", e.Table, e.Column, e.Reason)
	}
	return fmt.Sprintf("table %q: %s", e.Table, e.Reason)
}

// ParseError means a cell declared numeric did not parse as a float.
// The whole operation aborts rather than drop the row, so a corrupted
// score can never surface as a reported optimum.
type ParseError struct {
	Table  string
	Column string
	RowID  string
	Value  string
}

func (e *ParseError) Error() string {
	id := e.RowID
	if id == "" {
		id = "?"
	}
	return fmt.Sprintf("table %q: column %q: row %q: cannot parse %q as float", e.Table, e.Column, id, e.Value)
}

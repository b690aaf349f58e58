package meta

import (
	"encoding/json"
	"fmt"
)

// Well-known frame table column names produced by the parsers.
const (
	ColX       = "x"
	ColY       = "y"
	ColZ       = "z"
	ColElement = "element"
	ColType    = "type"
	ColRadius  = "radius"
	ColOrder   = "order"
	// ColBondFrom and ColBondTo hold bond endpoint atom ids as rows of the
	// atom table.
	ColBondFrom = "i"
	ColBondTo   = "j"
)

// FrameTable is a read-only columnar frame source: equal-length typed
// columns plus a row count, as produced by an external parser.
//
// Consumers treat an installed table as a borrow and never mutate it.
type FrameTable struct {
	n      int
	floats map[string][]float32
	strs   map[string][]string
}

// NewFrameTable creates an empty table with n rows.
func NewFrameTable(n int) *FrameTable {
	return &FrameTable{
		n:      n,
		floats: make(map[string][]float32),
		strs:   make(map[string][]string),
	}
}

// Len returns the row count.
func (t *FrameTable) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// SetFloat installs a float column. The length must match the row count.
func (t *FrameTable) SetFloat(name string, vals []float32) error {
	if len(vals) != t.n {
		return fmt.Errorf("meta: column %q has %d rows, want %d", name, len(vals), t.n)
	}
	t.floats[name] = vals
	return nil
}

// SetStrings installs a string column. The length must match the row count.
func (t *FrameTable) SetStrings(name string, vals []string) error {
	if len(vals) != t.n {
		return fmt.Errorf("meta: column %q has %d rows, want %d", name, len(vals), t.n)
	}
	t.strs[name] = vals
	return nil
}

// Float returns a float column, or nil if absent.
func (t *FrameTable) Float(name string) []float32 {
	if t == nil {
		return nil
	}
	return t.floats[name]
}

// Strings returns a string column, or nil if absent.
func (t *FrameTable) Strings(name string) []string {
	if t == nil {
		return nil
	}
	return t.strs[name]
}

// FloatAt returns one cell of a float column, or 0 if the column is absent.
func (t *FrameTable) FloatAt(name string, row int) float32 {
	col := t.Float(name)
	if col == nil {
		return 0
	}
	return col[row]
}

// StringAt returns one cell of a string column, or "" if the column is absent.
func (t *FrameTable) StringAt(name string, row int) string {
	col := t.Strings(name)
	if col == nil {
		return ""
	}
	return col[row]
}

// frameTableJSON is the stable snapshot form of a FrameTable.
type frameTableJSON struct {
	N       int                  `json:"n"`
	Floats  map[string][]float32 `json:"floats,omitempty"`
	Strings map[string][]string  `json:"strings,omitempty"`
}

// MarshalJSON implements json.Marshaler via the mirror type, so the table
// round-trips under any snapshot codec.
func (t *FrameTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(frameTableJSON{N: t.n, Floats: t.floats, Strings: t.strs})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FrameTable) UnmarshalJSON(data []byte) error {
	var aux frameTableJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.n = aux.N
	t.floats = aux.Floats
	t.strs = aux.Strings
	if t.floats == nil {
		t.floats = make(map[string][]float32)
	}
	if t.strs == nil {
		t.strs = make(map[string][]string)
	}
	return nil
}

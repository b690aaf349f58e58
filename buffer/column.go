package buffer

// ColumnSpec describes one per-instance attribute of a store.
type ColumnSpec struct {
	// Name is the attribute name the renderer binds by (e.g. "position").
	Name string
	// Stride is the number of float32 components per instance.
	Stride int
}

// Column is one growable numeric array with a fixed per-instance stride.
// Rows for all columns of a store share a single index space; the store
// owns capacity management and the active count.
type Column struct {
	name   string
	stride int
	data   []float32 // len == capacity*stride, managed by the owning store
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Stride returns the number of components per instance.
func (c *Column) Stride() int { return c.stride }

// row returns the backing slice for the given slot.
func (c *Column) row(slot int) []float32 {
	off := slot * c.stride
	return c.data[off : off+c.stride]
}

// copyRow copies the row at src into dst within the same column.
func (c *Column) copyRow(dst, src int) {
	copy(c.row(dst), c.row(src))
}

// grow resizes the backing array to newCap instances, preserving data.
func (c *Column) grow(newCap int) {
	next := make([]float32, newCap*c.stride)
	copy(next, c.data)
	c.data = next
}

// zeroRange clears rows [from, to).
func (c *Column) zeroRange(from, to int) {
	clear(c.data[from*c.stride : to*c.stride])
}

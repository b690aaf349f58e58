package buffer

import "github.com/molvis/molscene/core"

// Renderable is the GPU-facing upload target for one instanced layer.
//
// Implementations wrap whatever the rasterizer binds instance attributes
// with (thin-instance buffers, SSBOs, ...). A store is the exclusive writer
// of its renderable; uploads happen only inside Flush.
type Renderable interface {
	// Layer returns the identity the renderer reports on picks.
	Layer() core.LayerID

	// Upload replaces the named instance attribute with the active prefix
	// of a column. data holds count*stride float32 components.
	Upload(column string, data []float32, count int)

	// SetEnabled shows or hides the layer. A store disables its layer when
	// the instance count drops to zero.
	SetEnabled(enabled bool)
}

// NopRenderable discards all uploads. Useful for headless scenes and tests.
type NopRenderable struct {
	ID core.LayerID
}

// Layer returns the configured layer id.
func (n NopRenderable) Layer() core.LayerID { return n.ID }

// Upload discards the data.
func (NopRenderable) Upload(string, []float32, int) {}

// SetEnabled does nothing.
func (NopRenderable) SetEnabled(bool) {}

// Package molscene is a scene-indexing and GPU instance-buffer management
// engine for an interactive molecular viewer. It keeps domain entities
// (atoms, bonds) synchronized with the packed columnar arrays an instanced
// rasterizer consumes, while supporting live per-entity add/remove/update on
// top of a bulk-loaded frame, stable identities for picking and selection,
// and O(1) editing.
//
// The Scene type is the composition root. It owns one buffer.Store per
// entity layer, a topology.Graph and a meta.Registry, and translates
// renderer hit-test output (layer, slot) into logical identity and back.
//
// Basic usage:
//
//	scene := molscene.New()
//
//	atoms := meta.NewFrameTable(3)
//	_ = atoms.SetFloat(meta.ColX, []float32{0, 1, 2})
//	_ = atoms.SetFloat(meta.ColY, []float32{0, 0, 0})
//	_ = atoms.SetFloat(meta.ColZ, []float32{0, 0, 0})
//
//	err := scene.RegisterFrame(molscene.FrameInput{
//		AtomTarget: renderer.Layer("atoms"),
//		Atoms:      atoms,
//	})
//
//	id, err := scene.CreateAtom(meta.AtomMeta{Element: "H", Position: [3]float32{3, 0, 0}})
//
// All scene operations run synchronously on the caller's goroutine; the
// engine is designed for a single render/UI thread and performs no locking
// on its hot paths.
package molscene

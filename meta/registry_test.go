package meta

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molvis/molscene/core"
)

func atomFrame(t *testing.T) *FrameTable {
	t.Helper()
	ft := NewFrameTable(3)
	require.NoError(t, ft.SetFloat(ColX, []float32{0, 1, 2}))
	require.NoError(t, ft.SetFloat(ColY, []float32{0, 0, 0}))
	require.NoError(t, ft.SetFloat(ColZ, []float32{0, 0, 0}))
	require.NoError(t, ft.SetStrings(ColElement, []string{"C", "O", "H"}))
	return ft
}

func TestFrameTableValidation(t *testing.T) {
	ft := NewFrameTable(2)
	assert.Error(t, ft.SetFloat(ColX, []float32{1}))
	assert.Error(t, ft.SetStrings(ColElement, []string{"C", "O", "H"}))
	assert.Nil(t, ft.Float("missing"))
	assert.Equal(t, float32(0), ft.FloatAt("missing", 0))
	assert.Equal(t, "", ft.StringAt("missing", 1))
}

func TestMetaDerivesFromFrame(t *testing.T) {
	r := NewRegistry()
	r.SetFrame(core.KindAtom, atomFrame(t))

	rec, ok := r.Meta(core.KindAtom, 1)
	require.True(t, ok)
	assert.Equal(t, core.KindAtom, rec.Kind)
	assert.Equal(t, "O", rec.Atom.Element)
	assert.Equal(t, [3]float32{1, 0, 0}, rec.Atom.Position)

	// Past the frame range and without overlay: gone.
	_, ok = r.Meta(core.KindAtom, 3)
	assert.False(t, ok)
}

func TestOverlayWinsOverFrame(t *testing.T) {
	r := NewRegistry()
	r.SetFrame(core.KindAtom, atomFrame(t))

	r.SetEdit(core.KindAtom, 1, AtomRecord(AtomMeta{Element: "N", Position: [3]float32{9, 9, 9}}))
	rec, ok := r.Meta(core.KindAtom, 1)
	require.True(t, ok)
	assert.Equal(t, "N", rec.Atom.Element)

	// Removing the override exposes the frame row again.
	r.RemoveEdit(core.KindAtom, 1)
	rec, ok = r.Meta(core.KindAtom, 1)
	require.True(t, ok)
	assert.Equal(t, "O", rec.Atom.Element)
}

func TestRemoveEditPastFrameEndsExistence(t *testing.T) {
	r := NewRegistry()
	r.SetFrame(core.KindAtom, atomFrame(t))
	r.SetEdit(core.KindAtom, 7, AtomRecord(AtomMeta{Element: "Cl"}))

	r.RemoveEdit(core.KindAtom, 7)
	_, ok := r.Meta(core.KindAtom, 7)
	assert.False(t, ok)
}

func TestSetFrameKeepsOverlay(t *testing.T) {
	r := NewRegistry()
	r.SetEdit(core.KindAtom, 0, AtomRecord(AtomMeta{Element: "Fe"}))
	r.SetFrame(core.KindAtom, atomFrame(t))

	rec, ok := r.Meta(core.KindAtom, 0)
	require.True(t, ok)
	assert.Equal(t, "Fe", rec.Atom.Element)
}

func TestAttributes(t *testing.T) {
	r := NewRegistry()
	r.SetFrame(core.KindAtom, atomFrame(t))

	// Setting an attribute on a frame-backed id materializes the record
	// into the overlay.
	r.SetAttr(core.KindAtom, 2, "charge", Float(-0.4))
	v, ok := r.Attr(core.KindAtom, 2, "charge")
	require.True(t, ok)
	assert.Equal(t, -0.4, v.FloatValue())

	// The materialized record keeps the derived fields.
	rec, ok := r.Meta(core.KindAtom, 2)
	require.True(t, ok)
	assert.Equal(t, "H", rec.Atom.Element)

	// Unknown id: silent no-op.
	r.SetAttr(core.KindAtom, 99, "charge", Int(1))
	_, ok = r.Attr(core.KindAtom, 99, "charge")
	assert.False(t, ok)

	_, ok = r.Attr(core.KindAtom, 0, "charge")
	assert.False(t, ok)
}

func TestSetEditDoesNotAliasCallerAttrs(t *testing.T) {
	r := NewRegistry()
	rec := AtomRecord(AtomMeta{Element: "C"})
	rec.Attrs = map[string]Value{"tag": String("a")}
	r.SetEdit(core.KindAtom, 0, rec)

	rec.Attrs["tag"] = String("b")
	got, ok := r.Attr(core.KindAtom, 0, "tag")
	require.True(t, ok)
	assert.Equal(t, "a", got.StringValue())
}

func TestPromoteFrame(t *testing.T) {
	r := NewRegistry()
	r.SetFrame(core.KindAtom, atomFrame(t))
	r.SetEdit(core.KindAtom, 1, AtomRecord(AtomMeta{Element: "N"}))

	r.PromoteFrame(core.KindAtom)
	assert.Nil(t, r.Frame(core.KindAtom))

	// Frame rows are now overlay entries; existing edits survive.
	rec, ok := r.Meta(core.KindAtom, 0)
	require.True(t, ok)
	assert.Equal(t, "C", rec.Atom.Element)
	rec, _ = r.Meta(core.KindAtom, 1)
	assert.Equal(t, "N", rec.Atom.Element)

	// Idempotent.
	r.PromoteFrame(core.KindAtom)
	assert.Len(t, r.Edits(core.KindAtom), 3)
}

func TestBox(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Box()
	assert.False(t, ok)

	r.SetBox(&BoxMeta{Origin: [3]float32{1, 2, 3}})
	box, ok := r.Box()
	require.True(t, ok)
	assert.Equal(t, [3]float32{1, 2, 3}, box.Origin)

	r.Clear()
	_, ok = r.Box()
	assert.False(t, ok)
}

func TestBondDerivation(t *testing.T) {
	ft := NewFrameTable(2)
	require.NoError(t, ft.SetFloat(ColBondFrom, []float32{0, 1}))
	require.NoError(t, ft.SetFloat(ColBondTo, []float32{1, 2}))
	require.NoError(t, ft.SetFloat(ColOrder, []float32{1, 2}))

	r := NewRegistry()
	r.SetFrame(core.KindBond, ft)

	rec, ok := r.Meta(core.KindBond, 1)
	require.True(t, ok)
	assert.Equal(t, core.EntityID(1), rec.Bond.Atom1)
	assert.Equal(t, core.EntityID(2), rec.Bond.Atom2)
	assert.Equal(t, float32(2), rec.Bond.Order)
}

func TestFrameTableJSONRoundTrip(t *testing.T) {
	ft := atomFrame(t)
	data, err := json.Marshal(ft)
	require.NoError(t, err)

	var got FrameTable
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 3, got.Len())
	assert.Equal(t, ft.Float(ColX), got.Float(ColX))
	assert.Equal(t, ft.Strings(ColElement), got.Strings(ColElement))
}

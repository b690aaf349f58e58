package molscene_test

import (
	"fmt"

	molscene "github.com/molvis/molscene"
	"github.com/molvis/molscene/buffer"
	"github.com/molvis/molscene/meta"
)

func Example() {
	atoms := meta.NewFrameTable(3)
	_ = atoms.SetFloat(meta.ColX, []float32{0, 1, 2})
	_ = atoms.SetFloat(meta.ColY, []float32{0, 0, 0})
	_ = atoms.SetFloat(meta.ColZ, []float32{0, 0, 0})
	_ = atoms.SetStrings(meta.ColElement, []string{"C", "C", "O"})

	bonds := meta.NewFrameTable(2)
	_ = bonds.SetFloat(meta.ColBondFrom, []float32{0, 1})
	_ = bonds.SetFloat(meta.ColBondTo, []float32{1, 2})

	scene := molscene.New()
	if err := scene.RegisterFrame(molscene.FrameInput{
		AtomTarget: buffer.NopRenderable{ID: "atoms"},
		Atoms:      atoms,
		BondTarget: buffer.NopRenderable{ID: "bonds"},
		Bonds:      bonds,
	}); err != nil {
		panic(err)
	}

	id, err := scene.CreateAtom(meta.AtomMeta{
		Element:  "H",
		Position: [3]float32{3, 0, 0},
	}, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println("new atom id:", id)

	min, max, _ := scene.Bounds()
	fmt.Println("bounds:", min, max)

	scene.Flush()
	fmt.Println("unsaved:", scene.HasUnsavedChanges())

	// Output:
	// new atom id: 3
	// bounds: [0 0 0] [3 0 0]
	// unsaved: true
}

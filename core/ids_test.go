package core

import "testing"

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindAtom:    "atom",
		KindBond:    "bond",
		KindBox:     "box",
		KindInvalid: "invalid",
		Kind(99):    "invalid",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}

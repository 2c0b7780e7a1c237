package nearpy

import "testing"

func TestFlipKeysSingleBitOrder(t *testing.T) {
	const k0, nbits = 0b0101, 4
	got := flipKeys(k0, nbits, 1)
	want := []uint64{k0 ^ 1, k0 ^ 2, k0 ^ 4, k0 ^ 8}
	if len(got) != len(want) {
		t.Fatalf("got %d keys, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("flip key %d = %d, want %d", i, got[i], w)
		}
	}
}

func TestFlipKeysDefaultsToOneBit(t *testing.T) {
	got0 := flipKeys(5, 3, 0)
	got1 := flipKeys(5, 3, 1)
	if len(got0) != len(got1) {
		t.Fatalf("flipCount=0 should default to flipCount=1: got %v vs %v", got0, got1)
	}
	for i := range got0 {
		if got0[i] != got1[i] {
			t.Fatalf("flipCount=0 diverges from flipCount=1 at %d: %d vs %d", i, got0[i], got1[i])
		}
	}
}

func TestFlipKeysTwoBitCombinations(t *testing.T) {
	const nbits = 4
	got := flipKeys(0, nbits, 2)
	// C(4,2) = 6 distinct two-bit masks.
	if len(got) != 6 {
		t.Fatalf("got %d two-bit flips, want 6", len(got))
	}
	seen := make(map[uint64]bool)
	for _, k := range got {
		seen[k] = true
		ones := 0
		for b := uint64(0); b < nbits; b++ {
			if k&(1<<b) != 0 {
				ones++
			}
		}
		if ones != 2 {
			t.Fatalf("key %d does not have exactly 2 bits set", k)
		}
	}
	if len(seen) != len(got) {
		t.Fatal("two-bit flip keys are not all distinct")
	}
}

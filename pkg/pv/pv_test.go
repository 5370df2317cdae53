package pv

import "testing"

func TestSlotsAreUnique(t *testing.T) {
	seen := map[Output]bool{}
	for _, s := range Slots {
		if seen[s.Name] {
			t.Errorf("duplicate slot %s", s.Name)
		}
		seen[s.Name] = true
		if s.Precision != 3 {
			t.Errorf("slot %s precision = %d, want 3", s.Name, s.Precision)
		}
	}
	if len(Slots) != 7 {
		t.Errorf("got %d slots, want 7", len(Slots))
	}
	if len(Inputs) != 11 {
		t.Errorf("got %d inputs, want 11", len(Inputs))
	}
}

func TestLookupSlot(t *testing.T) {
	s, ok := LookupSlot(LinearDispersion)
	if !ok || s.Units != "meV/um" {
		t.Errorf("LookupSlot(LIN_DISP) = %+v, %v", s, ok)
	}
	if _, ok := LookupSlot("NOPE"); ok {
		t.Errorf("LookupSlot(NOPE) should fail")
	}
	if got := FullName("RIX:CALC:01:", MonoEnergy); got != "RIX:CALC:01:MONO_E" {
		t.Errorf("FullName() = %s", got)
	}
}

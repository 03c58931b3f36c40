package mode

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Mode{Unfiltered, Filtered, Fallback, Empty}
	for _, m := range valid {
		if !m.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", m)
		}
	}

	invalid := []Mode{"", "hybrid", "semantic", "FILTERED"}
	for _, m := range invalid {
		if m.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", m)
		}
	}
}

func TestIsSemantic(t *testing.T) {
	if !Unfiltered.IsSemantic() || !Filtered.IsSemantic() {
		t.Error("unfiltered and filtered paths are semantic")
	}
	if Fallback.IsSemantic() || Empty.IsSemantic() {
		t.Error("fallback and empty paths are not semantic")
	}
}

func TestConstants(t *testing.T) {
	if Unfiltered != "unfiltered" {
		t.Errorf("Unfiltered = %q", Unfiltered)
	}
	if Fallback != "fallback" {
		t.Errorf("Fallback = %q", Fallback)
	}
}

package models

import "testing"

func TestFileSet_TakeClaimsOnce(t *testing.T) {
	s := NewFileSet("a.wav", "b.wav")
	if !s.Take("a.wav") {
		t.Fatal("first take should succeed")
	}
	if s.Take("a.wav") {
		t.Error("second take should fail")
	}
	if s.Len() != 1 || !s.Has("b.wav") {
		t.Errorf("remaining = %v, want [b.wav]", s.Sorted())
	}
}

func TestFileSet_SortedAndClone(t *testing.T) {
	s := NewFileSet("snare.wav", "hat.wav", "kick.wav")
	got := s.Sorted()
	want := []string{"hat.wav", "kick.wav", "snare.wav"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", got, want)
		}
	}

	c := s.Clone()
	c.Take("hat.wav")
	if !s.Has("hat.wav") {
		t.Error("clone must not alias the original set")
	}
}

package model

import "testing"

func TestParseSharingState(t *testing.T) {
	t.Parallel()

	cases := map[string]SharingState{
		"on":      SharingOn,
		"OFF":     SharingOff,
		" Toggle": SharingToggle,
	}
	for in, want := range cases {
		got, err := ParseSharingState(in)
		if err != nil {
			t.Fatalf("ParseSharingState(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseSharingState(%q)=%q", in, got)
		}
	}
	if _, err := ParseSharingState("maybe"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSharingState_Apply(t *testing.T) {
	t.Parallel()

	if got, _ := SharingOn.Apply(0); got != 1 {
		t.Fatalf("on=%d", got)
	}
	if got, _ := SharingOff.Apply(1); got != 0 {
		t.Fatalf("off=%d", got)
	}

	v := 0
	for i := 0; i < 2; i++ {
		next, err := SharingToggle.Apply(v)
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		v = next
	}
	if v != 0 {
		t.Fatalf("toggle twice=%d", v)
	}

	if _, err := SharingState("SIDEWAYS").Apply(0); err == nil {
		t.Fatalf("expected error")
	}
}

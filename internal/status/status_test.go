package status

import "testing"

func TestResolve_LegacyAliases(t *testing.T) {
	tests := []struct {
		raw  Status
		want Status
	}{
		{"pending", New},
		{"pre-field", PreFielding},
		{"in-progress", InProgress},
		{"completed", ReadyToSubmit},
	}

	for _, tt := range tests {
		if got := Resolve(tt.raw); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestResolve_CanonicalPassthrough(t *testing.T) {
	for _, s := range All() {
		if got := Resolve(s); got != s {
			t.Errorf("Resolve(%q) = %q, want unchanged", s, got)
		}
	}
}

func TestResolve_UnknownAndEmptyPassthrough(t *testing.T) {
	for _, raw := range []Status{"", "bogus", "PENDING"} {
		if got := Resolve(raw); got != raw {
			t.Errorf("Resolve(%q) = %q, want unchanged", raw, got)
		}
	}
}

// Resolving twice always yields the same value as resolving once.
func TestResolve_Idempotent(t *testing.T) {
	inputs := []Status{"pending", "pre-field", "in-progress", "completed", "new", "", "bogus"}
	for _, raw := range inputs {
		once := Resolve(raw)
		if twice := Resolve(once); twice != once {
			t.Errorf("Resolve(Resolve(%q)) = %q, want %q", raw, twice, once)
		}
	}
}

func TestIsCanonical(t *testing.T) {
	if len(All()) != 14 {
		t.Fatalf("expected 14 canonical statuses, got %d", len(All()))
	}
	for _, s := range All() {
		if !IsCanonical(s) {
			t.Errorf("IsCanonical(%q) = false, want true", s)
		}
	}
	for _, s := range []Status{"pending", "pre-field", "in-progress", "completed", "", "bogus"} {
		if IsCanonical(s) {
			t.Errorf("IsCanonical(%q) = true, want false", s)
		}
	}
}

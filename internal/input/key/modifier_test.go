package key

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestModifierHas(t *testing.T) {
	tests := []struct {
		mod    Modifier
		check  Modifier
		expect bool
	}{
		{ModNone, ModCtrl, false},
		{ModCtrl, ModCtrl, true},
		{ModCtrl | ModAlt, ModCtrl, true},
		{ModCtrl | ModAlt, ModAlt, true},
		{ModCtrl | ModAlt, ModShift, false},
		{ModCtrl | ModAlt | ModShift | ModMeta, ModMeta, true},
	}

	for _, tt := range tests {
		if got := tt.mod.Has(tt.check); got != tt.expect {
			t.Errorf("Modifier(%d).Has(%d) = %v, want %v", tt.mod, tt.check, got, tt.expect)
		}
	}
}

func TestModifierKeys(t *testing.T) {
	got := (ModShift | ModCtrl).Keys()
	want := []ID{LCtrl, LShift}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
	if keys := ModNone.Keys(); len(keys) != 0 {
		t.Errorf("ModNone.Keys() = %v, want empty", keys)
	}
}

func TestModifierString(t *testing.T) {
	if got := (ModCtrl | ModShift).String(); got != "Ctrl+Shift" {
		t.Errorf("String() = %q, want Ctrl+Shift", got)
	}
}

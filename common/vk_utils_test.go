package common

import "testing"

func TestAllOfAinB(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want bool
	}{
		{"subset", []string{"x"}, []string{"x", "y"}, true},
		{"equal", []string{"x", "y"}, []string{"x", "y"}, true},
		{"missing", []string{"x", "z"}, []string{"x", "y"}, false},
		{"empty a", nil, []string{"x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AllOfAinB(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTerminatedStr(t *testing.T) {
	if got := TerminatedStr("VK_LAYER"); got != "VK_LAYER\x00" {
		t.Errorf("expected appended terminator, got %q", got)
	}
	if got := TerminatedStr("VK_LAYER\x00"); got != "VK_LAYER\x00" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}

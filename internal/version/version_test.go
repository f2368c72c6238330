package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestPretty(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	orig := Version
	defer func() { Version = orig }()

	cases := []struct {
		in, want string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.0.0-beta.1", "1.0.0-beta.1"},
		{"dev", "dev"},
		{"1.2", "1.2"},
	}
	for _, tc := range cases {
		Version = tc.in
		if got := Pretty(); got != tc.want {
			t.Errorf("Pretty(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPrettyColorsComponents(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	defer func() { color.NoColor = prev }()

	orig := Version
	defer func() { Version = orig }()
	Version = "1.2.3-rc"

	got := Pretty()
	if got == Version {
		t.Fatal("expected escape sequences")
	}
	if got[len(got)-3:] != "-rc" {
		t.Fatalf("suffix must stay plain: %q", got)
	}
}

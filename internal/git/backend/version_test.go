package backend

import "testing"

func TestParseVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Version
		ok   bool
	}{
		{name: "empty", in: "", ok: false},
		{name: "plain", in: "git version 2.44.0\n", want: Version{Major: 2, Minor: 44, Patch: 0}, ok: true},
		{name: "apple_git", in: "git version 2.39.3 (Apple Git-146)\n", want: Version{Major: 2, Minor: 39, Patch: 3}, ok: true},
		{name: "windows_suffix", in: "git version 2.39.3.windows.1\n", want: Version{Major: 2, Minor: 39, Patch: 3}, ok: true},
		{name: "no_prefix", in: "2.42.1\n", want: Version{Major: 2, Minor: 42, Patch: 1}, ok: true},
		{name: "no_patch", in: "git version 2.42\n", want: Version{Major: 2, Minor: 42, Patch: 0}, ok: true},
		{name: "lfs", in: "git-lfs/3.4.1 (GitHub; linux amd64; go 1.21.5)\n", want: Version{Major: 3, Minor: 4, Patch: 1}, ok: true},
		{name: "invalid", in: "git version not-a-version\n", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseVersion(tt.in)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (got=%+v)", ok, tt.ok, got)
			}
			if !ok {
				return
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateVersionOutput(t *testing.T) {
	old := minVersion
	t.Cleanup(func() { minVersion = old })
	minVersion = Version{Major: 2, Minor: 23, Patch: 0}

	if _, err := validateVersionOutput("git", "git version 2.23.0\n"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if _, err := validateVersionOutput("git", "git version 2.22.9\n"); err == nil {
		t.Fatal("expected error for old git")
	}
}

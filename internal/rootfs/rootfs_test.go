package rootfs

import "testing"

func TestSamePkgSet(t *testing.T) {
	cases := []struct {
		a, b []string
		want bool
	}{
		{nil, nil, true},
		{[]string{"git"}, []string{"git"}, true},
		{[]string{"git", "curl"}, []string{"curl", "git"}, true},
		{[]string{"git"}, []string{"curl"}, false},
		{[]string{"git"}, []string{"git", "curl"}, false},
	}
	for _, c := range cases {
		if got := samePkgSet(c.a, c.b); got != c.want {
			t.Fatalf("samePkgSet(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSeedScriptIncludesRootPkgs(t *testing.T) {
	script := seedScript([]string{"build-essential", "git"})
	for _, want := range []string{"locale-gen", "apt-get update", "build-essential", "git", "locale.gen", "apt.conf"} {
		if !contains(script, want) {
			t.Fatalf("seedScript() missing %q:\n%s", want, script)
		}
	}
}

func TestSeedScriptNoRootPkgs(t *testing.T) {
	script := seedScript(nil)
	if contains(script, "install -y  ") {
		t.Fatalf("seedScript(nil) should not emit an empty package install: %s", script)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

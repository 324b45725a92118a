package sandbox

import (
	"reflect"
	"testing"
)

func TestScriptArgv(t *testing.T) {
	cases := []struct {
		lang string
		want []string
	}{
		{"sh", []string{"bash", "-e", "-c", "echo hi"}},
		{"bash", []string{"bash", "-e", "-c", "echo hi"}},
		{"python", []string{"python3", "-c", "echo hi"}},
		{"py", []string{"python3", "-c", "echo hi"}},
	}
	for _, c := range cases {
		got, err := ScriptArgv(c.lang, "echo hi")
		if err != nil {
			t.Fatalf("ScriptArgv(%q): %v", c.lang, err)
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("ScriptArgv(%q) = %v, want %v", c.lang, got, c.want)
		}
	}
}

func TestScriptArgvUnsupportedLang(t *testing.T) {
	if _, err := ScriptArgv("ruby", "puts 1"); err == nil {
		t.Fatal("expected error for unsupported language")
	}
}

func TestBuildEnvironOverlay(t *testing.T) {
	cfg := Config{
		UID: 1000,
		Cwd: "/chariot/build",
		Environment: map[string]string{
			"PREFIX": "/usr",
			"PATH":   "/custom/path",
		},
	}
	env := buildEnviron(cfg)

	got := make(map[string]string, len(env))
	for _, kv := range env {
		for i := range kv {
			if kv[i] == '=' {
				got[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	if got["PATH"] != "/custom/path" {
		t.Fatalf("PATH override not applied: %v", got)
	}
	if got["PREFIX"] != "/usr" {
		t.Fatalf("PREFIX not set: %v", got)
	}
	if got["HOME"] != "/chariot/build" {
		t.Fatalf("HOME = %q, want cwd", got["HOME"])
	}
	if got["LANG"] != "C" {
		t.Fatalf("LANG = %q, want C", got["LANG"])
	}
}

func TestBuildEnvironRootPath(t *testing.T) {
	env := buildEnviron(Config{UID: 0, Cwd: "/root"})
	for _, kv := range env {
		if len(kv) > 5 && kv[:5] == "PATH=" {
			if kv[5:] != rootPath {
				t.Fatalf("root PATH = %q, want %q", kv[5:], rootPath)
			}
			return
		}
	}
	t.Fatal("PATH not set")
}

func TestStreamPrefixed(t *testing.T) {
	remainder := streamPrefixed(nil, []byte("partial"))
	if string(remainder) != "partial" {
		t.Fatalf("remainder = %q, want %q", remainder, "partial")
	}
	remainder = streamPrefixed(remainder, []byte(" line\nnext"))
	if string(remainder) != "next" {
		t.Fatalf("remainder = %q, want %q", remainder, "next")
	}
}

package rootfs

import "strings"

// aptConfBody disables apt's recommends/suggests pull-in and its
// valid-until staleness check, written to /etc/apt/apt.conf.d/ ahead of the
// seed install.
const aptConfBody = `APT::Install-Recommends "0";
APT::Install-Suggests "0";
Acquire::Check-Valid-Until "0";
`

// localeGenBody enables the single locale chariot's ambient environment
// relies on.
const localeGenBody = "C.UTF-8 UTF-8\n"

// seedScript builds the shell script run once against a freshly extracted
// base rootfs: write /etc/locale.gen and apt.conf, then
// `apt-get update && apt-get install -y locales && locale-gen && apt-get
// install -y <root_pkgs…>`.
func seedScript(rootPkgs []string) string {
	var b strings.Builder
	b.WriteString("set -e\n")
	b.WriteString("mkdir -p /etc/apt/apt.conf.d\n")
	b.WriteString("cat > /etc/locale.gen <<'EOF'\n")
	b.WriteString(localeGenBody)
	b.WriteString("EOF\n")
	b.WriteString("cat > /etc/apt/apt.conf.d/99chariot <<'EOF'\n")
	b.WriteString(aptConfBody)
	b.WriteString("EOF\n")
	b.WriteString("apt-get update && apt-get install -y locales && locale-gen")
	if len(rootPkgs) > 0 {
		b.WriteString(" && apt-get install -y")
		for _, pkg := range rootPkgs {
			b.WriteString(" ")
			b.WriteString(pkg)
		}
	}
	b.WriteString("\n")
	return b.String()
}

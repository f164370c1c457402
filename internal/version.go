package internal

import "runtime/debug"

// Version is the build version. It can be set at build time with
// -ldflags "-X go.vocdoni.io/tokenvote/internal.Version=v1.0.0".
var Version = ""

func init() {
	if Version != "" {
		return
	}
	Version = "dev"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
}

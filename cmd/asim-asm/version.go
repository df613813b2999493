package main

import (
	"fmt"
	"runtime/debug"
)

// Various version related constants.
const (
	AppName    = "asim-asm"
	AppVersion = "v1.0.0"
)

// Version returns program version information.
func Version() string {
	version := AppVersion
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	return fmt.Sprintf("%s %s", AppName, version)
}

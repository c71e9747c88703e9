// Package assets provides resources embedded into the zealbuild binary.
package assets

import (
	_ "embed"
)

// LinkerScriptName is the arena name the default linker script is staged under.
const LinkerScriptName = "zeal8bit.ld"

//go:embed zeal8bit.ld
var linkerScript []byte

// LinkerScript returns a copy of the default Zeal 8-bit linker script.
func LinkerScript() []byte {
	out := make([]byte, len(linkerScript))
	copy(out, linkerScript)
	return out
}

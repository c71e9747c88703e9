package include

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScan(t *testing.T) {
	src := "nop\n" +
		".include \"sub.asm\"\n" +
		"  \t.incbin \"font.bin\" ; glyphs\r\n" +
		".INCLUDE \"upper.asm\"\n" +
		"ld a, b ; .include \"comment.asm\"\n" +
		".include \"unterminated.asm\n" +
		".include\t\"zos_sys.asm\"   \n"

	want := []Directive{
		{Kind: KindInclude, Path: "sub.asm", Line: 2},
		{Kind: KindIncbin, Path: "font.bin", Line: 3},
		{Kind: KindInclude, Path: "zos_sys.asm", Line: 7},
	}
	assert.Equal(t, want, Scan([]byte(src)))
	assert.Empty(t, Scan(nil))
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"sub.asm", "sub.asm", true},
		{"./sub.asm", "sub.asm", true},
		{"/sub.asm", "sub.asm", true},
		{"lib//io/./uart.asm", "lib/io/uart.asm", true},
		{`lib\io.asm`, "lib/io.asm", true},
		{"café.asm", "café.asm", true},
		{"../secret.asm", "", false},
		{"lib/../x.asm", "", false},
		{".", "", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		got, ok := Canonical(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestBundleDirs(t *testing.T) {
	b := Bundle{
		"sub.asm":                   {Name: "sub.asm"},
		"files/headers/zos_sys.asm": {Name: "files/headers/zos_sys.asm"},
		"files/headers/zos_err.asm": {Name: "files/headers/zos_err.asm"},
		"files/font.bin":            {Name: "files/font.bin", Binary: true},
		"lib/io/uart.asm":           {Name: "lib/io/uart.asm"},
	}
	assert.Equal(t, []string{"files", "files/headers", "lib", "lib/io"}, b.Dirs())
	assert.Equal(t, []string{"files/font.bin", "files/headers/zos_err.asm", "files/headers/zos_sys.asm", "lib/io/uart.asm", "sub.asm"}, b.Names())
}

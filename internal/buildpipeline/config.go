package buildpipeline

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"zealbuild/internal/include"
)

// BaseAddress selects how the linker places the text section: either the
// default linker script governs placement, or an explicit origin is passed.
type BaseAddress struct {
	fixed bool
	addr  uint16
}

// Linked selects the default linker script.
func Linked() BaseAddress { return BaseAddress{} }

// Fixed places the text section at addr.
func Fixed(addr uint16) BaseAddress { return BaseAddress{fixed: true, addr: addr} }

// IsLinked reports whether the linker script governs placement.
func (b BaseAddress) IsLinked() bool { return !b.fixed }

// Addr returns the explicit origin, if any.
func (b BaseAddress) Addr() (uint16, bool) { return b.addr, b.fixed }

func (b BaseAddress) String() string {
	if !b.fixed {
		return "linked"
	}
	return fmt.Sprintf("0x%04x", b.addr)
}

// ParseBaseAddress accepts "linked" (or empty) and any Go integer literal
// that fits in 16 bits: "0x4000", "16384", "0o40000".
func ParseBaseAddress(s string) (BaseAddress, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "linked") {
		return Linked(), nil
	}
	n, err := strconv.ParseUint(strings.ReplaceAll(s, "_", ""), 0, 64)
	if err != nil {
		return BaseAddress{}, fmt.Errorf("invalid base address %q: %w", s, err)
	}
	addr, err := safecast.Conv[uint16](n)
	if err != nil {
		return BaseAddress{}, fmt.Errorf("base address %q does not fit in 16 bits", s)
	}
	return Fixed(addr), nil
}

func (b BaseAddress) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *BaseAddress) UnmarshalText(text []byte) error {
	v, err := ParseBaseAddress(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Config is the per-run pipeline configuration. It is not modified by Run.
type Config struct {
	Verbose      bool
	BaseAddress  BaseAddress
	Dependencies include.Bundle
	// AllowWarnings makes only error-severity diagnostics fatal. By default
	// every diagnostic line fails the run.
	AllowWarnings bool
}

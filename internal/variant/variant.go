package variant

import (
	"fmt"
)

// Variant is a build flavor of the distribution
type Variant string

// Platform is a target operating system/architecture identifier
type Platform string

// The fixed variant enumeration
const (
	VariantCPU Variant = "cpu"
	VariantGPU Variant = "gpu"
)

// The fixed platform enumeration
const (
	PlatformLinux64 Platform = "linux-64"
	PlatformOSX64   Platform = "osx-64"
	PlatformWin64   Platform = "win-64"
)

// Variants returns the fixed variant enumeration in declaration order
func Variants() []Variant {
	return []Variant{VariantCPU, VariantGPU}
}

// Platforms returns the fixed platform enumeration in declaration order
func Platforms() []Platform {
	return []Platform{PlatformLinux64, PlatformOSX64, PlatformWin64}
}

// ParseVariant parses a string into a Variant
func ParseVariant(s string) (Variant, error) {
	for _, v := range Variants() {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown variant %q (expected one of cpu, gpu)", s)
}

// ParsePlatform parses a string into a Platform
func ParsePlatform(s string) (Platform, error) {
	for _, p := range Platforms() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q (expected one of linux-64, osx-64, win-64)", s)
}

// InstallerExt returns the installer file extension the constructor
// produces for the platform
func (p Platform) InstallerExt() string {
	if p == PlatformWin64 {
		return ".exe"
	}
	return ".sh"
}

// Pair is one buildable (variant, platform) combination
type Pair struct {
	Variant  Variant
	Platform Platform
}

// String returns the canonical variant:platform task-name form
func (p Pair) String() string {
	return fmt.Sprintf("%s:%s", p.Variant, p.Platform)
}

// Slug returns the variant-platform file-name form
func (p Pair) Slug() string {
	return fmt.Sprintf("%s-%s", p.Variant, p.Platform)
}

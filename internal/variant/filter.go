package variant

import (
	"os"
	"path/filepath"
)

// Layout locates the specification files for a pair inside the specs
// directory. Core specs apply to every pair; the platform and variant
// specs narrow the environment.
type Layout struct {
	// SpecsDir is the directory holding the YAML specification files
	SpecsDir string
}

// CoreSpecs returns the spec files shared by all pairs, in compose order
func (l Layout) CoreSpecs() []string {
	return []string{
		filepath.Join(l.SpecsDir, "_base.yml"),
		filepath.Join(l.SpecsDir, "core.yml"),
	}
}

// PlatformSpec returns the per-platform spec file path
func (l Layout) PlatformSpec(p Platform) string {
	return filepath.Join(l.SpecsDir, string(p)+".yml")
}

// PairSpec returns the per-pair spec file path whose existence decides
// whether the pair is built at all
func (l Layout) PairSpec(pair Pair) string {
	return filepath.Join(l.SpecsDir, pair.Slug()+".yml")
}

// ComposedSpecs returns the ordered spec list the lock tool consumes
// for a pair: core specs, then the platform spec, then the pair spec.
func (l Layout) ComposedSpecs(pair Pair) []string {
	specs := l.CoreSpecs()
	specs = append(specs, l.PlatformSpec(pair.Platform))
	specs = append(specs, l.PairSpec(pair))
	return specs
}

// ExistingPairs returns the cross-product of variants and platforms
// filtered to pairs whose pair spec exists on disk. Missing combinations
// are silently skipped.
func (l Layout) ExistingPairs() []Pair {
	var pairs []Pair
	for _, v := range Variants() {
		for _, p := range Platforms() {
			pair := Pair{Variant: v, Platform: p}
			if _, err := os.Stat(l.PairSpec(pair)); err != nil {
				continue
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// FilterPairs narrows pairs to those matching the optional variant and
// platform selectors. Empty selectors match everything.
func FilterPairs(pairs []Pair, variant, platform string) []Pair {
	if variant == "" && platform == "" {
		return pairs
	}
	var out []Pair
	for _, pair := range pairs {
		if variant != "" && string(pair.Variant) != variant {
			continue
		}
		if platform != "" && string(pair.Platform) != platform {
			continue
		}
		out = append(out, pair)
	}
	return out
}

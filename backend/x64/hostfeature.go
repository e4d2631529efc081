package x64

import "github.com/klauspost/cpuid/v2"

// HostFeature is a bitset of x86-64 CPU features. The emitters in this
// package do not consult it: they always use the baseline encodings
// (e.g. the legacy CL-shift form, never BMI2 shift forms). Detection is
// delegated to cpuid.v2 rather than hand-rolled CPUID leaf parsing.
type HostFeature uint32

const (
	FeatureSSE42 HostFeature = 1 << iota
	FeatureAVX
	FeatureAVX2
	FeatureBMI1
	FeatureBMI2
	FeatureFMA3
	FeatureLZCNT
	FeaturePOPCNT
)

// DetectHostFeatures probes the running CPU. Jit construction does not
// call it.
func DetectHostFeatures() HostFeature {
	var f HostFeature
	if cpuid.CPU.Supports(cpuid.SSE42) {
		f |= FeatureSSE42
	}
	if cpuid.CPU.Supports(cpuid.AVX) {
		f |= FeatureAVX
	}
	if cpuid.CPU.Supports(cpuid.AVX2) {
		f |= FeatureAVX2
	}
	if cpuid.CPU.Supports(cpuid.BMI1) {
		f |= FeatureBMI1
	}
	if cpuid.CPU.Supports(cpuid.BMI2) {
		f |= FeatureBMI2
	}
	if cpuid.CPU.Supports(cpuid.FMA3) {
		f |= FeatureFMA3
	}
	if cpuid.CPU.Supports(cpuid.LZCNT) {
		f |= FeatureLZCNT
	}
	if cpuid.CPU.Supports(cpuid.POPCNT) {
		f |= FeaturePOPCNT
	}
	return f
}

func (f HostFeature) Has(feature HostFeature) bool { return f&feature != 0 }

package kbench

import (
	"os"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sys/cpu"
)

// Host describes the machine a report was produced on
type Host struct {
	Hostname  string
	GOOS      string
	GOARCH    string
	NumCPU    int
	GoVersion string
	Version   string // kbench module version, empty outside module builds
	Features  []string
}

var (
	hostOnce sync.Once
	host     Host
)

// HostInfo returns the host description, detected once per process
func HostInfo() Host {
	hostOnce.Do(func() {
		name, _ := os.Hostname()
		version, _ := Version()
		host = Host{
			Hostname:  name,
			GOOS:      runtime.GOOS,
			GOARCH:    runtime.GOARCH,
			NumCPU:    runtime.NumCPU(),
			GoVersion: runtime.Version(),
			Version:   version,
			Features:  cpuFeatures(),
		}
	})
	return host
}

// FeatureString joins the detected SIMD extensions for display
func (h Host) FeatureString() string {
	if len(h.Features) == 0 {
		return "no SIMD extensions detected"
	}
	return strings.Join(h.Features, ",")
}

func cpuFeatures() []string {
	var features []string
	add := func(ok bool, name string) {
		if ok {
			features = append(features, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add(cpu.X86.HasSSE41 || cpu.X86.HasSSE42, "SSE4")
		add(cpu.X86.HasAVX, "AVX")
		add(cpu.X86.HasAVX2, "AVX2")
		add(cpu.X86.HasFMA, "FMA")
		add(cpu.X86.HasAVX512F, "AVX512F")
		add(cpu.X86.HasAVX512DQ, "AVX512DQ")
		add(cpu.X86.HasAVX512BW, "AVX512BW")
		add(cpu.X86.HasAVX512VL, "AVX512VL")
		add(cpu.X86.HasAVX512BF16, "AVX512BF16")
	case "arm64":
		// ASIMD is NEON; FPHP and ASIMDHP together give native half precision
		add(cpu.ARM64.HasASIMD, "NEON")
		add(cpu.ARM64.HasFPHP && cpu.ARM64.HasASIMDHP, "FP16")
		add(cpu.ARM64.HasSVE, "SVE")
	}
	return features
}

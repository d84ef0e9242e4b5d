package kbench

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostInfo(t *testing.T) {
	h := HostInfo()
	assert.Equal(t, runtime.GOOS, h.GOOS)
	assert.Equal(t, runtime.GOARCH, h.GOARCH)
	assert.Equal(t, runtime.NumCPU(), h.NumCPU)
	assert.Equal(t, runtime.Version(), h.GoVersion)
	assert.NotEmpty(t, h.FeatureString())
	assert.Equal(t, h, HostInfo(), "detected once")
}

func TestFeatureStringEmpty(t *testing.T) {
	assert.Equal(t, "no SIMD extensions detected", Host{}.FeatureString())
	assert.Equal(t, "AVX,AVX2", Host{Features: []string{"AVX", "AVX2"}}.FeatureString())
}

func TestFlushCaches(t *testing.T) {
	assert.NotPanics(t, func() {
		FlushCaches(0)
		FlushCaches(-1)
		FlushCaches(1 << 16)
	})
}

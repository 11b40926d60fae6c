package exposure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEntryPoints(t *testing.T) {
	resolved, err := ResolveEntryPoints([]string{"ApplyExposure", "AccumulateLuminance", "ComputeTargetEV", "Unused"})
	require.NoError(t, err)
	assert.Len(t, resolved, 3)
	for _, k := range Kernels {
		assert.Equal(t, k.EntryPoint(), resolved[k])
	}
}

func TestResolveEntryPointsMissing(t *testing.T) {
	_, err := ResolveEntryPoints([]string{"AccumulateLuminance", "ApplyExposure"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingEntryPoint))
	assert.Contains(t, err.Error(), "ComputeTargetEV")
}

func TestKernelOrder(t *testing.T) {
	assert.Equal(t, []Kernel{KernelAccumulateLuminance, KernelComputeTargetEV, KernelApplyExposure}, Kernels)
	assert.Equal(t, "Kernel(9)", Kernel(9).String())
}

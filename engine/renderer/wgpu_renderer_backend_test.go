package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeBindGroupLayoutsCombinesVisibility(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 1, Visibility: wgpu.ShaderStageVertex},
		}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 3, Visibility: wgpu.ShaderStageFragment},
			{Binding: 1, Visibility: wgpu.ShaderStageFragment},
		}},
		1: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
		}},
	}

	merged := mergeBindGroupLayouts(vertex, fragment)
	require.Len(t, merged, 2)

	entries := merged[0].Entries
	require.Len(t, entries, 2)
	assert.Equal(t, uint32(1), entries[0].Binding)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[0].Visibility)
	assert.Equal(t, uint32(3), entries[1].Binding)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[1].Visibility)

	assert.Len(t, merged[1].Entries, 1)
}

func TestPreferredSurfaceFormatPicksSRGB(t *testing.T) {
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, preferredSurfaceFormat([]wgpu.TextureFormat{
		wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb,
	}))
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, preferredSurfaceFormat([]wgpu.TextureFormat{
		wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA8Unorm,
	}), "falls back to the first format")
}

func TestParsePresentMode(t *testing.T) {
	m, err := ParsePresentMode("VSync")
	require.NoError(t, err)
	assert.Equal(t, PresentModeVSync, m)

	m, err = ParsePresentMode(PresentModeUncapped.String())
	require.NoError(t, err)
	assert.Equal(t, PresentModeUncapped, m)

	_, err = ParsePresentMode("mailbox")
	assert.Error(t, err)
}

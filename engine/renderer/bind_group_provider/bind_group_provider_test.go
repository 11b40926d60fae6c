package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestNewBindGroupProviderKeepsLabel(t *testing.T) {
	p := NewBindGroupProvider("auto_exposure")
	assert.Equal(t, "auto_exposure", p.Label())
	assert.Empty(t, p.Buffers())
	assert.Nil(t, p.BindGroup())
}

func TestSharedBuffersAreTracked(t *testing.T) {
	shared := &wgpu.Buffer{}
	p := NewBindGroupProvider("present", WithBuffer(3, shared))

	assert.Same(t, shared, p.Buffer(3))
	assert.True(t, p.Shared(3))

	p.SetBuffer(3, nil)
	assert.False(t, p.Shared(3), "owned buffers replace shared ones")

	p.ShareBuffer(1, shared)
	assert.True(t, p.Shared(1))
}

func TestReleaseDropsSharedBuffersWithoutFreeing(t *testing.T) {
	p := NewBindGroupProvider("present", WithBuffer(1, &wgpu.Buffer{}), WithBuffer(3, &wgpu.Buffer{}))
	p.Release()
	assert.Empty(t, p.Buffers())
	assert.False(t, p.Shared(1))
}

func TestBufferWriteFits(t *testing.T) {
	assert.True(t, BufferWrite{Data: make([]byte, 16)}.Fits(16))
	assert.True(t, BufferWrite{Offset: 8, Data: make([]byte, 8)}.Fits(16))
	assert.False(t, BufferWrite{Offset: 12, Data: make([]byte, 8)}.Fits(16), "past the end")
	assert.False(t, BufferWrite{Data: make([]byte, 6)}.Fits(16), "unaligned size")
	assert.False(t, BufferWrite{Offset: 2, Data: make([]byte, 4)}.Fits(16), "unaligned offset")
}

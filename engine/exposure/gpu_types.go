package exposure

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"
)

// GPUExposureStateSource is the canonical WGSL definition of the ExposureState struct.
// Matches GPUExposureState layout exactly (16 bytes, std430 aligned).
//
//go:embed assets/exposure_state.wgsl
var GPUExposureStateSource string

// GPUExposureState is the persistent read-write parameter block shared by all three kernels
// and carried across frames. Matches the WGSL ExposureState struct (see GPUExposureStateSource).
// Size: 16 bytes.
type GPUExposureState struct {
	Importance uint32  // offset  0: fixed-point sum of normalized metering weights
	Luminance  uint32  // offset  4: fixed-point sum of normalized weighted luminance
	HistoryEV  float32 // offset  8: smoothed exposure value in log2 space
	Exposure   float32 // offset 12: multiplicative factor applied to pixels
}

// NewGPUExposureState returns the construction-time state: no accumulated samples, an EV
// history of zero and the matching unit exposure.
func NewGPUExposureState() GPUExposureState {
	return GPUExposureState{Exposure: ExposureFromEV(0)}
}

// Size returns the size of the GPUExposureState struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUExposureState) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUExposureState struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPUExposureState) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], g.Importance)
	binary.LittleEndian.PutUint32(buf[4:8], g.Luminance)
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.HistoryEV))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Exposure))
	return buf
}

// Unmarshal decodes a state block read back from the GPU.
//
// Parameters:
//   - data: at least 16 bytes in the layout produced by Marshal
//
// Returns:
//   - error: an error if data is too short
func (g *GPUExposureState) Unmarshal(data []byte) error {
	if len(data) < 16 {
		return fmt.Errorf("exposure state needs 16 bytes, got %d", len(data))
	}
	g.Importance = binary.LittleEndian.Uint32(data[0:4])
	g.Luminance = binary.LittleEndian.Uint32(data[4:8])
	g.HistoryEV = math.Float32frombits(binary.LittleEndian.Uint32(data[8:12]))
	g.Exposure = math.Float32frombits(binary.LittleEndian.Uint32(data[12:16]))
	return nil
}

// GPUFrameParamsSource is the canonical WGSL definition of the FrameParams struct.
// Matches GPUFrameParams layout exactly (16 bytes, uniform aligned).
//
//go:embed assets/frame_params.wgsl
var GPUFrameParamsSource string

// GPUFrameParams is the transient per-frame uniform block. It is fully rewritten before every
// dispatch sequence. Size: 16 bytes.
type GPUFrameParams struct {
	DeltaTime float32 // offset  0: seconds since the previous frame
	Width     uint32  // offset  4: image width in pixels
	Height    uint32  // offset  8: image height in pixels
	TileCount uint32  // offset 12: number of work-groups in the accumulation grid
}

// NewGPUFrameParams builds the frame parameter block for an image of the given size.
//
// Parameters:
//   - deltaTime: seconds since the previous frame
//   - width, height: image dimensions in pixels
//
// Returns:
//   - GPUFrameParams: the populated block
func NewGPUFrameParams(deltaTime float32, width, height int) GPUFrameParams {
	counts := WorkGroupCounts(width, height)
	return GPUFrameParams{
		DeltaTime: deltaTime,
		Width:     uint32(width),
		Height:    uint32(height),
		TileCount: counts[0] * counts[1],
	}
}

// Size returns the size of the GPUFrameParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUFrameParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFrameParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload
func (g *GPUFrameParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.DeltaTime))
	binary.LittleEndian.PutUint32(buf[4:8], g.Width)
	binary.LittleEndian.PutUint32(buf[8:12], g.Height)
	binary.LittleEndian.PutUint32(buf[12:16], g.TileCount)
	return buf
}

// GPUExposureSettingsSource is the canonical WGSL definition of the ExposureSettings struct.
// Matches GPUExposureSettings layout exactly (32 bytes, uniform aligned).
//
//go:embed assets/exposure_settings.wgsl
var GPUExposureSettingsSource string

// GPUExposureSettings is the uniform representation of Settings. Size: 32 bytes.
type GPUExposureSettings struct {
	Tau          float32 // offset  0
	TargetGray   float32 // offset  4
	MinEV        float32 // offset  8
	MaxEV        float32 // offset 12
	Compensation float32 // offset 16
	MaxLuminance float32 // offset 20
	OutputMax    float32 // offset 24
	Metering     uint32  // offset 28
}

// Size returns the size of the GPUExposureSettings struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUExposureSettings) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUExposureSettings struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (g *GPUExposureSettings) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Tau))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.TargetGray))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.MinEV))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.MaxEV))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Compensation))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.MaxLuminance))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.OutputMax))
	binary.LittleEndian.PutUint32(buf[28:32], g.Metering)
	return buf
}

package exposure

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-exposure/common"
)

// TileSize is the width and height in pixels of the square tile processed by one
// work-group of the per-pixel kernels. It must match @workgroup_size in the kernel module.
const TileSize = 16

// TilePixels is the number of work-items in one work-group.
const TilePixels = TileSize * TileSize

// TileCounts computes the number of tiles in each dimension for a given resolution,
// rounding up so a partial trailing tile is still covered.
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//
// Returns:
//   - tileCountX: number of tile columns
//   - tileCountY: number of tile rows
func TileCounts(width, height int) (tileCountX, tileCountY uint32) {
	tileCountX = common.CeilDiv(uint32(width), TileSize)
	tileCountY = common.CeilDiv(uint32(height), TileSize)
	return
}

// WorkGroupCounts returns the dispatch grid for the per-pixel kernels
// (AccumulateLuminance and ApplyExposure).
//
// Parameters:
//   - width: image width in pixels
//   - height: image height in pixels
//
// Returns:
//   - [3]uint32: work-group counts in x, y and z
func WorkGroupCounts(width, height int) [3]uint32 {
	x, y := TileCounts(width, height)
	return [3]uint32{x, y, 1}
}

// DispatchSize returns the dispatch grid for a kernel at the given resolution.
// ComputeTargetEV always runs as a single work-item.
func DispatchSize(k Kernel, width, height int) [3]uint32 {
	if k == KernelComputeTargetEV {
		return [3]uint32{1, 1, 1}
	}
	return WorkGroupCounts(width, height)
}

// ValidateResolution rejects non-positive dimensions.
//
// Returns:
//   - error: an error wrapping ErrInvalidResolution
func ValidateResolution(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, width, height)
	}
	return nil
}

// Tile identifies one work-group of the per-pixel grid.
type Tile struct {
	X, Y uint32
}

// Tiles enumerates every work-group of the grid in row-major order.
func Tiles(width, height int) []Tile {
	tx, ty := TileCounts(width, height)
	tiles := make([]Tile, 0, tx*ty)
	for y := uint32(0); y < ty; y++ {
		for x := uint32(0); x < tx; x++ {
			tiles = append(tiles, Tile{X: x, Y: y})
		}
	}
	return tiles
}

// Pixels returns the in-bounds pixel rectangle [x0, x1) x [y0, y1) covered by the tile.
// Work-items past the image edge are masked out by this clamp.
func (t Tile) Pixels(width, height int) (x0, y0, x1, y1 int) {
	x0 = int(t.X) * TileSize
	y0 = int(t.Y) * TileSize
	x1 = min(x0+TileSize, width)
	y1 = min(y0+TileSize, height)
	return
}

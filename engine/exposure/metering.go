package exposure

import (
	"fmt"
	"math"
	"strings"

	"github.com/Carmen-Shannon/oxy-exposure/common"
)

// MeteringMode selects how each pixel is weighted when accumulating scene luminance.
type MeteringMode uint32

const (
	// MeteringAverage weights every pixel equally.
	MeteringAverage MeteringMode = iota

	// MeteringCenterWeighted falls off smoothly from the image center to the corners.
	MeteringCenterWeighted

	// MeteringSpot only meters a small circle in the middle of the frame.
	MeteringSpot

	// MeteringMask reads per-pixel weights from a host-supplied importance mask.
	MeteringMask
)

// SpotRadius is the spot metering radius as a fraction of the shorter image side.
const SpotRadius float32 = 0.1

var meteringNames = map[MeteringMode]string{
	MeteringAverage:        "average",
	MeteringCenterWeighted: "center",
	MeteringSpot:           "spot",
	MeteringMask:           "mask",
}

func (m MeteringMode) String() string {
	if name, ok := meteringNames[m]; ok {
		return name
	}
	return fmt.Sprintf("MeteringMode(%d)", uint32(m))
}

// Valid reports whether m is a known metering mode.
func (m MeteringMode) Valid() bool {
	_, ok := meteringNames[m]
	return ok
}

// ParseMeteringMode resolves a metering mode from its name as printed by String.
//
// Parameters:
//   - name: one of "average", "center", "spot" or "mask" (case-insensitive)
//
// Returns:
//   - MeteringMode: the matching mode
//   - error: an error wrapping ErrInvalidSettings if the name is unknown
func ParseMeteringMode(name string) (MeteringMode, error) {
	for mode, n := range meteringNames {
		if strings.EqualFold(n, name) {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown metering mode %q", ErrInvalidSettings, name)
}

// Weight returns the metering weight of pixel (x, y) in a width x height frame. It mirrors the
// weight function in the accumulation kernel. maskWeight is only consulted for MeteringMask.
//
// Parameters:
//   - mode: the metering mode
//   - x, y: pixel coordinates
//   - width, height: frame dimensions
//   - maskWeight: the importance mask value for this pixel
//
// Returns:
//   - float32: the weight in [0, 1]
func Weight(mode MeteringMode, x, y, width, height int, maskWeight float32) float32 {
	switch mode {
	case MeteringCenterWeighted:
		// normalized so the corners sit at distance 1
		dx := (float32(x) + 0.5 - float32(width)*0.5) / (float32(width) * 0.5)
		dy := (float32(y) + 0.5 - float32(height)*0.5) / (float32(height) * 0.5)
		r := float32(math.Sqrt(float64(dx*dx+dy*dy))) / math.Sqrt2
		return 1 - common.Smoothstep(0, 1, r)
	case MeteringSpot:
		dx := float32(x) + 0.5 - float32(width)*0.5
		dy := float32(y) + 0.5 - float32(height)*0.5
		radius := SpotRadius * float32(min(width, height))
		if dx*dx+dy*dy <= radius*radius {
			return 1
		}
		return 0
	case MeteringMask:
		return common.Saturate(maskWeight)
	default:
		return 1
	}
}

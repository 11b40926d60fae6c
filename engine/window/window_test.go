package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitSize(t *testing.T) {
	cases := map[string]struct {
		width, height         int
		wantWidth, wantHeight int
	}{
		"fits":       {1280, 720, 1280, 720},
		"too wide":   {7680, 2160, 3840, 1080},
		"too tall":   {1000, 4320, 500, 2160},
		"both":       {7680, 4320, 3840, 2160},
		"degenerate": {0, 100, 0, 100},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			w, h := fitSize(c.width, c.height, 3840, 2160)
			assert.Equal(t, c.wantWidth, w)
			assert.Equal(t, c.wantHeight, h)
		})
	}
}

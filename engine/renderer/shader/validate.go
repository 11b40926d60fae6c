package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

func (s *shader) Validate() error {
	spirv, err := naga.Compile(s.source)
	if err != nil {
		return fmt.Errorf("shader: %s failed wgsl validation: %w", s.key, err)
	}
	if len(spirv) == 0 {
		return fmt.Errorf("shader: %s compiled to an empty module", s.key)
	}
	return nil
}

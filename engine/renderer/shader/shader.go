package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies whether a shader is a render shader or a compute shader.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing @compute entry points.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	entryPoints                []string
	workGroupSizes             map[string][3]uint32
	module                     *wgpu.ShaderModuleDescriptor

	pp PreProcessor
}

// Shader defines the interface for a loaded and parsed WGSL shader module. It exposes the
// shader's unique key, pre-processed source code, entry points of its stage, bind group layout
// descriptors, per-entry workgroup sizes, and the pre-processor declarations needed for
// pipeline creation and resource wiring.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a specific group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor for the group, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	// These are the CPU-side descriptors extracted from the shader source which the
	// renderer uses to create the actual wgpu.BindGroupLayout GPU objects.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name associated with the group and binding, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name, if it exists.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index associated with the variable name, or -1 if not found
	//   - bool: true if the variable name was found, false otherwise
	BindGroupFromVarName(group int, varName string) (int, bool)

	// BindGroupVarNames retrieves all variable names for all bind groups.
	//
	// Returns:
	//   - map[int]map[int]string: variable names keyed by group and binding index
	BindGroupVarNames() map[int]map[int]string

	// EntryPoint returns the first entry point of the shader's stage.
	//
	// Returns:
	//   - string: the entry point name
	EntryPoint() string

	// EntryPoints returns every entry point of the shader's stage in source order. A single
	// compute module may declare several kernels.
	//
	// Returns:
	//   - []string: the entry point names
	EntryPoints() []string

	// WorkgroupSize returns the workgroup size of the first compute entry point.
	// Returns [0, 0, 0] for non-compute shaders.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// WorkgroupSizeOf returns the workgroup size declared on a specific compute entry point.
	//
	// Parameters:
	//   - entryPoint: the compute function name
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	//   - bool: false if the shader has no such compute entry point
	WorkgroupSizeOf(entryPoint string) ([3]uint32, bool)

	// Module returns the wgpu.ShaderModuleDescriptor for this shader.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the type of the shader (vertex, fragment, or compute).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// Declarations returns the list of parsed annotations from the shader source that represent
	// resource bindings and providers.
	//
	// Returns:
	//   - []Annotation: the bind group declarations and providers parsed from the shader source
	Declarations() []Annotation

	// Binding resolves the group and binding index declared for a struct type or provider identity.
	//
	// Parameters:
	//   - identity: a struct type key (e.g. AnnotationArgExposureState) or provider identity (e.g. AnnotationArgColor)
	//
	// Returns:
	//   - int: the group index
	//   - int: the binding index
	//   - bool: false if the shader declares no such binding
	Binding(identity AnnotationArg) (int, int, bool)

	// Validate compiles the pre-processed source with naga to catch WGSL errors before
	// the source is handed to the device.
	//
	// Returns:
	//   - error: the compilation error, if any
	Validate() error
}

var _ Shader = &shader{}

// NewShader creates a new Shader by reading WGSL source from a file.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage whose entry points this shader exposes
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the file cannot be read or the source fails to parse
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read source file %q: %w", sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data))
}

// NewShaderFromSource creates a new Shader from in-memory WGSL source, typically an embedded asset.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage whose entry points this shader exposes
//   - source: the raw WGSL source, which may contain @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or the source has no entry point for shaderType
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:                        key,
		shaderType:                 shaderType,
		bindGroupLayoutDescriptors: make(map[int]wgpu.BindGroupLayoutDescriptor),
		bindingVarNames:            make(map[int]map[int]string),
		workGroupSizes:             make(map[string][3]uint32),
		pp:                         NewPreProcessor(),
	}
	if err := s.parseSource(source); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	if len(s.entryPoints) == 0 {
		return ""
	}
	return s.entryPoints[0]
}

func (s *shader) EntryPoints() []string {
	return s.entryPoints
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSizes[s.EntryPoint()]
}

func (s *shader) WorkgroupSizeOf(entryPoint string) ([3]uint32, bool) {
	size, ok := s.workGroupSizes[entryPoint]
	return size, ok
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	if s.bindingVarNames[group] == nil {
		return -1, false
	}
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) BindGroupVarNames() map[int]map[int]string {
	return s.bindingVarNames
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

func (s *shader) Binding(identity AnnotationArg) (int, int, bool) {
	for _, d := range s.pp.Declarations() {
		if d.Identity() == identity {
			return *d.Group, *d.Binding, true
		}
	}
	return -1, -1, false
}

// parseSource pre-processes the WGSL source, builds the shader module descriptor, collects
// the entry points of the shader's stage and extracts the bind group layouts.
func (s *shader) parseSource(raw string) error {
	var err error
	s.source, err = s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("shader: failed to pre-process %s: %w", s.key, err)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}

	for _, ep := range parseEntryPoints(s.source) {
		if ep.shaderType != s.shaderType {
			continue
		}
		s.entryPoints = append(s.entryPoints, ep.name)
		if ep.shaderType == ShaderTypeCompute {
			s.workGroupSizes[ep.name] = ep.workgroupSize
		}
	}
	if len(s.entryPoints) == 0 {
		return fmt.Errorf("shader: %s declares no %s entry point", s.key, s.shaderType)
	}

	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		visibility = wgpu.ShaderStageCompute
	default:
		visibility = wgpu.ShaderStageNone
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(s.source, visibility)
	return nil
}

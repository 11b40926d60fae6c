// pre_processor.go expands @oxy: annotations in WGSL source. Includes inject the WGSL
// definition of a host-mirrored struct, group annotations become @group/@binding
// declarations, and both group and provider annotations are collected so the auto
// exposure and present passes can find their buffers without hard-coded binding indices.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-exposure/engine/exposure"
)

// registryEntry pairs the WGSL definition of a struct with its type name.
type registryEntry struct {
	// Source is the struct definition injected by @oxy:include.
	Source string
	// Type is the WGSL type name emitted in @oxy:group declarations (e.g. "ExposureState").
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structRegistry       map[AnnotationArg]registryEntry
	addressSpaceRegistry map[AnnotationArg]string

	// declarations holds the group and provider annotations of the last Process call
	declarations []Annotation
}

// PreProcessor rewrites WGSL source containing @oxy: annotations into plain WGSL and records
// the binding declarations it found.
type PreProcessor interface {
	// Process expands every annotation in source. An include of a struct already included
	// earlier in the same source expands to nothing, so shared snippets may include their
	// dependencies freely. Provider annotations produce no output.
	//
	// Parameters:
	//   - source: the annotated WGSL source
	//
	// Returns:
	//   - string: plain WGSL
	//   - error: an error if an annotation is malformed, references an unknown type, or a
	//     group/binding pair is declared twice
	Process(source string) (string, error)

	// Declarations returns the group and provider annotations collected by the most recent
	// Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that knows the exposure package's GPU structs.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgExposureState:    {Source: exposure.GPUExposureStateSource, Type: "ExposureState"},
			AnnotationArgFrameParams:      {Source: exposure.GPUFrameParamsSource, Type: "FrameParams"},
			AnnotationArgExposureSettings: {Source: exposure.GPUExposureSettingsSource, Type: "ExposureSettings"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgStorageTypeUniform:   "var<uniform>",
			annotationArgStorageTypeRead:      "var<storage, read>",
			annotationArgStorageTypeReadWrite: "var<storage, read_write>",
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]
	bound := make(map[[2]int]int)
	included := make(map[AnnotationArg]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		lineNum := i + 1
		a, err := parseAnnotation(line, lineNum)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		if a.Group != nil {
			key := [2]int{*a.Group, *a.Binding}
			if prev, dup := bound[key]; dup {
				return "", fmt.Errorf("line %d: group %d binding %d already declared on line %d", lineNum, key[0], key[1], prev)
			}
			bound[key] = lineNum
		}

		switch a.Type {
		case annotationTypeInclude:
			if included[a.Args[0]] {
				continue
			}
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", lineNum, a.Args[0])
			}
			included[a.Args[0]] = true
			out = append(out, entry.Source)
		case AnnotationTypeBindingGroup:
			out = append(out, p.declaration(*a))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeProvider:
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", lineNum, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}

// declaration renders a group annotation as a WGSL variable, resolving struct keys (optionally
// wrapped in array<>) to their WGSL type names. parseAnnotation has already checked the keys.
func (p *preProcessor) declaration(a Annotation) string {
	typeName := p.structRegistry[a.Args[2]].Type
	if inner, ok := cutGeneric(string(a.Args[2]), "array"); ok {
		typeName = fmt.Sprintf("array<%s>", p.structRegistry[AnnotationArg(inner)].Type)
	}
	return fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
		*a.Group, *a.Binding, p.addressSpaceRegistry[a.Args[0]], a.Args[1], typeName)
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}

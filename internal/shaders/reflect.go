package shaders

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga/spirv"
)

// EntryPoint describes one OpEntryPoint of a SPIR-V module.
type EntryPoint struct {
	Name  string
	Stage gputypes.ShaderStage

	// LocalSize is set from OpExecutionMode LocalSize for compute entries.
	LocalSize [3]uint32
}

const spirvHeaderWords = 5

var errTruncated = errors.New("shaders: truncated SPIR-V")

// EntryPoints lists the entry points of a SPIR-V module together with the
// compute workgroup size declared for each.
func EntryPoints(words []uint32) ([]EntryPoint, error) {
	if len(words) < spirvHeaderWords {
		return nil, errTruncated
	}
	if words[0] != spirv.MagicNumber {
		return nil, fmt.Errorf("shaders: bad SPIR-V magic %#08x", words[0])
	}

	var eps []EntryPoint
	byID := map[uint32]int{}
	for i := spirvHeaderWords; i < len(words); {
		count := int(words[i] >> 16)
		op := spirv.OpCode(words[i] & 0xffff)
		if count == 0 || i+count > len(words) {
			return nil, errTruncated
		}
		operands := words[i+1 : i+count]
		switch op {
		case spirv.OpEntryPoint:
			if len(operands) < 3 {
				return nil, errTruncated
			}
			stage, ok := stageOf(spirv.ExecutionModel(operands[0]))
			if !ok {
				break
			}
			byID[operands[1]] = len(eps)
			eps = append(eps, EntryPoint{Name: literalString(operands[2:]), Stage: stage})
		case spirv.OpExecutionMode:
			if len(operands) >= 5 && spirv.ExecutionMode(operands[1]) == spirv.ExecutionModeLocalSize {
				if idx, ok := byID[operands[0]]; ok {
					eps[idx].LocalSize = [3]uint32{operands[2], operands[3], operands[4]}
				}
			}
		}
		i += count
	}
	return eps, nil
}

func stageOf(m spirv.ExecutionModel) (gputypes.ShaderStage, bool) {
	switch m {
	case spirv.ExecutionModelVertex:
		return gputypes.ShaderStageVertex, true
	case spirv.ExecutionModelFragment:
		return gputypes.ShaderStageFragment, true
	case spirv.ExecutionModelGLCompute:
		return gputypes.ShaderStageCompute, true
	default:
		return 0, false
	}
}

// literalString decodes a nul-terminated SPIR-V string literal.
func literalString(words []uint32) string {
	var b []byte
	for _, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(b)
			}
			b = append(b, c)
		}
	}
	return string(b)
}

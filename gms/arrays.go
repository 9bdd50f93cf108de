package gms

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var singleFlagWords = map[string]bool{
	"VERTEX":   true,
	"NORMAL":   true,
	"TEXCOORD": true,
	"COLOR":    true,
	"WEIGHT1":  true,
	"WEIGHT2":  true,
	"WEIGHT3":  true,
	"WEIGHT4":  true,
	"WEIGHT5":  true,
	"WEIGHT6":  true,
	"WEIGHT7":  true,
	"WEIGHT8":  true,
}

// isFormatFlagsToken recognizes the format word of an Arrays header,
// either a combined VERTEX|NORMAL|... token or a single known flag.
func isFormatFlagsToken(text string) bool {
	return strings.Contains(text, "|") || singleFlagWords[text]
}

func ParseArrayFormat(flags string) ArrayFormat {
	f := ArrayFormat{
		HasPosition: strings.Contains(flags, "VERTEX"),
		HasNormal:   strings.Contains(flags, "NORMAL"),
		HasTexCoord: strings.Contains(flags, "TEXCOORD"),
		HasColor:    strings.Contains(flags, "COLOR"),
	}
	for i := 1; i <= 8; i++ {
		if strings.Contains(flags, fmt.Sprintf("WEIGHT%d", i)) {
			f.WeightCount = i
			break
		}
	}
	return f
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func newVertexArray(name string, format ArrayFormat, declared int) *VertexArray {
	va := &VertexArray{
		Name:          name,
		Format:        format,
		DeclaredCount: declared,
	}
	if format.WeightCount > 0 {
		va.Weights.Form = WEIGHTS_DENSE
	}
	return va
}

// appendRow consumes one data line positionally. A stream whose values
// ran out is left alone for this row, later streams never shift left to
// fill the gap. That keeps stream lengths honest when dumps truncate
// trailing fields.
func (va *VertexArray) appendRow(values []float32) {
	idx := 0
	f := &va.Format

	if f.HasPosition && idx+3 <= len(values) {
		va.Positions = append(va.Positions, mgl32.Vec3{values[idx], values[idx+1], values[idx+2]})
		idx += 3
	}
	if f.HasNormal && idx+3 <= len(values) {
		va.Normals = append(va.Normals, mgl32.Vec3{values[idx], values[idx+1], values[idx+2]})
		idx += 3
	}
	if f.HasTexCoord && idx+2 <= len(values) {
		va.UVs = append(va.UVs, mgl32.Vec2{values[idx], values[idx+1]})
		idx += 2
	}
	if f.HasColor && idx+4 <= len(values) {
		va.Colors = append(va.Colors, mgl32.Vec4{values[idx], values[idx+1], values[idx+2], values[idx+3]})
		idx += 4
	}
	if f.WeightCount > 0 && idx+f.WeightCount <= len(values) {
		row := make([]float32, f.WeightCount)
		copy(row, values[idx:idx+f.WeightCount])
		va.Weights.Dense = append(va.Weights.Dense, row)
	}
}

// Package geom expands draw commands into plain index lists. Primitives
// are flattened per vertex array so consumers can feed the untouched
// vertex streams straight to an exporter.
package geom

import (
	"github.com/mogaika/gms_browser/gms"
)

// Group collects everything a mesh draws from one vertex array. Indices
// point into that array's streams.
type Group struct {
	ArraysName string
	Triangles  [][3]uint32
	Lines      [][2]uint32
	Points     []uint32
}

type Geometry struct {
	Groups []Group
}

func (g *Geometry) Empty() bool {
	for i := range g.Groups {
		gr := &g.Groups[i]
		if len(gr.Triangles) > 0 || len(gr.Lines) > 0 || len(gr.Points) > 0 {
			return false
		}
	}
	return true
}

// Expand walks the draw commands of a mesh. A primitive touching a
// vertex outside its array is dropped whole so faces never go stale,
// strips skip degenerate windows the way the format intends.
func Expand(m *gms.Model, mesh *gms.Mesh) (*Geometry, []gms.Diagnostic) {
	geo := &Geometry{}
	var diags []gms.Diagnostic
	groupIdx := make(map[string]int)

	for ci := range mesh.DrawCommands {
		cmd := &mesh.DrawCommands[ci]
		va, ok := m.Arrays[cmd.ArraysName]
		if !ok {
			diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
				"Arrays %q of mesh %q not found, draw command dropped", cmd.ArraysName, mesh.Name)
			continue
		}
		if cmd.VertsPerPrim <= 0 {
			diags = gms.Diagf(diags, gms.DIAG_FIELD, 0,
				"Draw command on %q declares %d vertices per primitive, dropped",
				cmd.ArraysName, cmd.VertsPerPrim)
			continue
		}

		gi, ok := groupIdx[cmd.ArraysName]
		if !ok {
			geo.Groups = append(geo.Groups, Group{ArraysName: cmd.ArraysName})
			gi = len(geo.Groups) - 1
			groupIdx[cmd.ArraysName] = gi
		}
		g := &geo.Groups[gi]

		vertCount := len(va.Positions)
		skipped := 0
		short := false
		for pi := 0; pi < cmd.PrimitiveCount; pi++ {
			start := pi * cmd.VertsPerPrim
			end := start + cmd.VertsPerPrim
			if start >= len(cmd.Indices) {
				short = true
				break
			}
			if end > len(cmd.Indices) {
				short = true
				end = len(cmd.Indices)
			}
			expandPrimitive(g, cmd.Primitive, cmd.Indices[start:end], vertCount, &skipped)
		}
		if short {
			diags = gms.Diagf(diags, gms.DIAG_FIELD, 0,
				"Draw command on %q ran out of indices for %d declared primitives",
				cmd.ArraysName, cmd.PrimitiveCount)
		}
		if skipped > 0 {
			diags = gms.Diagf(diags, gms.DIAG_REFERENCE, 0,
				"%d primitives of mesh %q reference vertices outside %q, skipped",
				skipped, mesh.Name, cmd.ArraysName)
		}
	}
	return geo, diags
}

func expandPrimitive(g *Group, prim int, idx []int, vertCount int, skipped *int) {
	switch prim {
	case gms.PRIM_TRIANGLES:
		for i := 0; i+2 < len(idx); i += 3 {
			g.tri(idx[i], idx[i+1], idx[i+2], vertCount, skipped)
		}
	case gms.PRIM_TRIANGLE_STRIP:
		for i := 0; i+2 < len(idx); i++ {
			i0, i1, i2 := idx[i], idx[i+1], idx[i+2]
			if i0 == i1 || i1 == i2 || i0 == i2 {
				continue
			}
			if i%2 == 0 {
				g.tri(i0, i1, i2, vertCount, skipped)
			} else {
				g.tri(i1, i0, i2, vertCount, skipped)
			}
		}
	case gms.PRIM_TRIANGLE_FAN:
		for i := 1; i+1 < len(idx); i++ {
			g.tri(idx[0], idx[i], idx[i+1], vertCount, skipped)
		}
	case gms.PRIM_LINES:
		for i := 0; i+1 < len(idx); i += 2 {
			g.line(idx[i], idx[i+1], vertCount, skipped)
		}
	case gms.PRIM_LINE_STRIP:
		for i := 0; i+1 < len(idx); i++ {
			g.line(idx[i], idx[i+1], vertCount, skipped)
		}
	case gms.PRIM_POINTS:
		for _, v := range idx {
			if v < 0 || v >= vertCount {
				*skipped++
				continue
			}
			g.Points = append(g.Points, uint32(v))
		}
	}
}

func (g *Group) tri(a, b, c, vertCount int, skipped *int) {
	if a < 0 || a >= vertCount || b < 0 || b >= vertCount || c < 0 || c >= vertCount {
		*skipped++
		return
	}
	g.Triangles = append(g.Triangles, [3]uint32{uint32(a), uint32(b), uint32(c)})
}

func (g *Group) line(a, b, vertCount int, skipped *int) {
	if a < 0 || a >= vertCount || b < 0 || b >= vertCount {
		*skipped++
		return
	}
	g.Lines = append(g.Lines, [2]uint32{uint32(a), uint32(b)})
}
